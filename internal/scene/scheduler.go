package scene

import (
	"sort"
	"strings"

	"github.com/roleverse/sceneflow/internal/domain"
)

// ExpertiseIndex maps lowercase topical keywords to role tags (or role
// names). It is injected at construction so deployments can swap tables
// without touching scheduler code.
type ExpertiseIndex map[string][]string

// DefaultExpertiseIndex covers the builtin roles.
func DefaultExpertiseIndex() ExpertiseIndex {
	return ExpertiseIndex{
		"philosophy":  {"philosophy"},
		"meaning":     {"philosophy"},
		"ethics":      {"philosophy", "ethics"},
		"science":     {"science"},
		"physics":     {"physics", "science"},
		"relativity":  {"physics"},
		"mystery":     {"deduction"},
		"clue":        {"deduction"},
		"evidence":    {"deduction"},
		"feelings":    {"psychology"},
		"anxious":     {"psychology"},
		"stress":      {"psychology"},
		"code":        {"engineering"},
		"programming": {"engineering"},
		"backend":     {"engineering"},
		"frontend":    {"frontend"},
		"poem":        {"literature"},
		"novel":       {"literature"},
	}
}

// Speaker pairs a participant with its resolved role for one turn.
type Speaker struct {
	Participant domain.Participant
	Role        domain.Role
}

// Selection is the scheduler's output: the ordered speakers for a turn plus
// routing metadata.
type Selection struct {
	Strategy domain.Strategy
	Speakers []Speaker
	// MatchedKeyword is set when ExpertiseMatch found a keyword hit.
	MatchedKeyword string
	// Collaborative marks a two-speaker primary/supplementary turn.
	Collaborative bool
}

// Scheduler picks the next speaker(s) for an incoming message.
type Scheduler struct {
	expertise ExpertiseIndex
	keywords  []string // sorted for deterministic scans
	rng       *lockedRand
}

func NewScheduler(expertise ExpertiseIndex, rng *lockedRand) *Scheduler {
	if expertise == nil {
		expertise = DefaultExpertiseIndex()
	}
	keywords := make([]string, 0, len(expertise))
	for kw := range expertise {
		keywords = append(keywords, strings.ToLower(kw))
	}
	sort.Strings(keywords)
	return &Scheduler{expertise: expertise, keywords: keywords, rng: rng}
}

// Select returns the ordered speakers for one turn. active must be the
// session's active participants in join order; roles must resolve every AI
// participant's role id. currentSpeaker is the caller's continuation hint;
// with no hint the first active AI participant leads.
func (s *Scheduler) Select(strategy domain.Strategy, active []domain.Participant, roles map[int64]domain.Role, content string, currentSpeaker *int64) (Selection, error) {
	ai := aiParticipants(active)
	if len(ai) == 0 {
		return Selection{}, domain.ErrNoActiveParticipants
	}

	switch strategy {
	case domain.StrategySequential:
		return s.selectSequential(ai, roles, currentSpeaker), nil
	case domain.StrategyExpertiseMatch:
		return s.selectExpertise(ai, roles, content), nil
	case domain.StrategyCollaborative:
		return s.selectCollaborative(ai, roles, currentSpeaker), nil
	default:
		return Selection{}, domain.ErrUnknownStrategy
	}
}

// selectSequential is a strict round-robin over active AI participants in
// join order, wrapping after the last. An unknown hint behaves like no hint.
func (s *Scheduler) selectSequential(ai []domain.Participant, roles map[int64]domain.Role, currentSpeaker *int64) Selection {
	idx := -1
	if currentSpeaker != nil {
		for i, p := range ai {
			if p.RoleID == *currentSpeaker {
				idx = i
				break
			}
		}
	}
	next := ai[(idx+1)%len(ai)]
	return Selection{
		Strategy: domain.StrategySequential,
		Speakers: []Speaker{{Participant: next, Role: roles[next.RoleID]}},
	}
}

// selectExpertise scans the message for keyword hits and picks the first
// active participant whose role matches; otherwise a uniformly chosen one.
func (s *Scheduler) selectExpertise(ai []domain.Participant, roles map[int64]domain.Role, content string) Selection {
	lower := strings.ToLower(content)
	for _, kw := range s.keywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		for _, p := range ai {
			if roleMatches(roles[p.RoleID], s.expertise[kw]) {
				return Selection{
					Strategy:       domain.StrategyExpertiseMatch,
					Speakers:       []Speaker{{Participant: p, Role: roles[p.RoleID]}},
					MatchedKeyword: kw,
				}
			}
		}
	}

	pick := ai[s.rng.Intn(len(ai))]
	return Selection{
		Strategy: domain.StrategyExpertiseMatch,
		Speakers: []Speaker{{Participant: pick, Role: roles[pick.RoleID]}},
	}
}

// selectCollaborative pairs the first two AI participants by join order as
// primary and supplementary speakers. Fewer than two falls back to
// Sequential.
func (s *Scheduler) selectCollaborative(ai []domain.Participant, roles map[int64]domain.Role, currentSpeaker *int64) Selection {
	if len(ai) < 2 {
		return s.selectSequential(ai, roles, currentSpeaker)
	}
	return Selection{
		Strategy: domain.StrategyCollaborative,
		Speakers: []Speaker{
			{Participant: ai[0], Role: roles[ai[0].RoleID]},
			{Participant: ai[1], Role: roles[ai[1].RoleID]},
		},
		Collaborative: true,
	}
}

func aiParticipants(active []domain.Participant) []domain.Participant {
	var ai []domain.Participant
	for _, p := range active {
		if p.Kind == domain.KindAI {
			ai = append(ai, p)
		}
	}
	return ai
}

// roleMatches reports whether any wanted tag matches the role's tags or its
// name, case-insensitively.
func roleMatches(role domain.Role, wanted []string) bool {
	for _, w := range wanted {
		if strings.EqualFold(role.Name, w) {
			return true
		}
		for _, tag := range role.Tags {
			if strings.EqualFold(tag, w) {
				return true
			}
		}
	}
	return false
}
