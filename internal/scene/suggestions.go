package scene

import (
	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
)

// suggester samples follow-up prompts shown to the user after a turn with at
// least one reply.
type suggester struct {
	rng *lockedRand
}

var baseSuggestions = []string{
	"Could you go deeper on that?",
	"What would you say to someone who disagrees?",
	"Can you give a concrete example?",
	"How does that apply in practice?",
}

var sceneSuggestions = map[domain.SceneType][]string{
	domain.SceneTeaching: {
		"Can you explain that more simply?",
		"What should I learn next?",
	},
	domain.SceneDiscussion: {
		"What's the strongest counterargument?",
		"Where do you all agree?",
	},
}

// suggest returns SuggestionCount prompts sampled without replacement, or
// nil when no reply was produced this turn.
func (s *suggester) suggest(sceneType domain.SceneType, hasReplies bool) []string {
	if !hasReplies {
		return nil
	}
	pool := make([]string, 0, len(baseSuggestions)+2)
	pool = append(pool, baseSuggestions...)
	pool = append(pool, sceneSuggestions[sceneType]...)

	n := config.SuggestionCount
	if n > len(pool) {
		n = len(pool)
	}
	perm := s.rng.Perm(len(pool))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}
