package domain

import (
	"fmt"
	"time"
)

type SceneType string

const (
	SceneDiscussion    SceneType = "discussion"
	SceneTeaching      SceneType = "teaching"
	SceneDebate        SceneType = "debate"
	SceneCollaboration SceneType = "collaboration"
	SceneEntertainment SceneType = "entertainment"
)

type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusPaused   SessionStatus = "paused"
	StatusEnded    SessionStatus = "ended"
	StatusArchived SessionStatus = "archived"
)

// CanTransitionTo reports whether the status machine allows moving to next.
// Legal moves: active<->paused, active->ended, paused->ended, ended->archived.
// Ending is allowed from any live state so a paused scene can still be
// closed out.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusPaused || next == StatusEnded
	case StatusPaused:
		return next == StatusActive || next == StatusEnded
	case StatusEnded:
		return next == StatusArchived
	default:
		return false
	}
}

// Terminal reports whether a session can never become active again.
func (s SessionStatus) Terminal() bool {
	return s == StatusEnded || s == StatusArchived
}

// Strategy selects how speakers are picked for a turn.
type Strategy int

const (
	StrategySequential Strategy = iota
	StrategyExpertiseMatch
	StrategyCollaborative
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyExpertiseMatch:
		return "expertise_match"
	case StrategyCollaborative:
		return "collaborative"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a stored strategy tag to its enum value.
// "expertise_based" is accepted as a legacy spelling of expertise_match.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "sequential":
		return StrategySequential, nil
	case "expertise_match", "expertise_based":
		return StrategyExpertiseMatch, nil
	case "collaborative":
		return StrategyCollaborative, nil
	default:
		return StrategySequential, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

type ParticipantKind string

const (
	KindAI    ParticipantKind = "ai"
	KindHuman ParticipantKind = "human"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageAction MessageType = "action"
)

// SceneTemplate is immutable once loaded; the engine never writes templates
// outside the builtin seed.
type SceneTemplate struct {
	ID          int64
	Name        string
	Title       string
	Description string
	SceneType   SceneType
	MinRoles    int
	MaxRoles    int
	Strategy    Strategy
	Rules       []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Session struct {
	ID          int64
	PublicID    string
	TemplateID  int64
	OwnerID     int64
	Name        string
	Description string
	Status      SessionStatus
	// CurrentSpeaker is the role id of the last AI participant that spoke,
	// nil until the first AI reply.
	CurrentSpeaker *int64
	MessageCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EndedAt        *time.Time
}

// PersonalityConfig is the typed per-participant tuning. Version guards
// future field changes; unknown versions are rejected at the registry.
type PersonalityConfig struct {
	Version     int      `json:"version"`
	Tone        string   `json:"tone,omitempty"`
	Verbosity   string   `json:"verbosity,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Quirks      []string `json:"quirks,omitempty"`
	Model       string   `json:"model,omitempty"`
}

type Participant struct {
	ID          int64
	SessionID   int64
	RoleID      int64
	Kind        ParticipantKind
	JoinOrder   int
	Active      bool
	Personality PersonalityConfig
	SpeakCount  int
	LastSpokeAt *time.Time
	CreatedAt   time.Time
}

type Message struct {
	ID        int64
	SessionID int64
	// ParticipantID is nil only for system messages not bound to a speaker.
	ParticipantID       *int64
	RoleID              *int64
	Type                MessageType
	Content             string
	TargetParticipantID *int64
	// Order is 1..N per session, gapless, assigned on durable append.
	Order     int
	CreatedAt time.Time
}
