package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/repository"
)

// BuiltinTemplates are the stock scene templates seeded on startup.
func BuiltinTemplates() []domain.SceneTemplate {
	return []domain.SceneTemplate{
		{
			Name:        "philosophy_roundtable",
			Title:       "Philosophy Roundtable",
			Description: "An open exchange on life's big questions, each thinker speaking in turn.",
			SceneType:   domain.SceneDiscussion,
			MinRoles:    2,
			MaxRoles:    4,
			Strategy:    domain.StrategySequential,
			Rules:       []string{"Speak in turn", "Question assumptions", "No appeals to authority"},
			IsActive:    true,
		},
		{
			Name:        "science_classroom",
			Title:       "Science Classroom",
			Description: "A teaching scene where the most relevant expert answers each question.",
			SceneType:   domain.SceneTeaching,
			MinRoles:    1,
			MaxRoles:    3,
			Strategy:    domain.StrategyExpertiseMatch,
			Rules:       []string{"Explain from first principles", "Use analogies", "Admit uncertainty"},
			IsActive:    true,
		},
		{
			Name:        "detective_debate",
			Title:       "Detective Debate",
			Description: "Two investigators build on each other's reasoning over the same evidence.",
			SceneType:   domain.SceneDebate,
			MinRoles:    2,
			MaxRoles:    2,
			Strategy:    domain.StrategyCollaborative,
			Rules:       []string{"Reason from evidence", "Challenge weak inferences"},
			IsActive:    true,
		},
		{
			Name:        "counseling_session",
			Title:       "Counseling Session",
			Description: "A supportive conversation with a primary counselor and a second perspective.",
			SceneType:   domain.SceneCollaboration,
			MinRoles:    1,
			MaxRoles:    2,
			Strategy:    domain.StrategyCollaborative,
			Rules:       []string{"Listen first", "No diagnoses", "Keep it confidential in tone"},
			IsActive:    true,
		},
		{
			Name:        "tech_roundtable",
			Title:       "Tech Roundtable",
			Description: "Engineers field design questions, routed to whoever knows the area best.",
			SceneType:   domain.SceneDiscussion,
			MinRoles:    2,
			MaxRoles:    4,
			Strategy:    domain.StrategyExpertiseMatch,
			Rules:       []string{"Trade-offs over dogma", "Name the failure modes"},
			IsActive:    true,
		},
		{
			Name:        "literature_salon",
			Title:       "Literature Salon",
			Description: "Writers respond to prompts in turn, building a shared piece.",
			SceneType:   domain.SceneEntertainment,
			MinRoles:    1,
			MaxRoles:    3,
			Strategy:    domain.StrategySequential,
			Rules:       []string{"Yes-and the previous speaker", "Keep contributions short"},
			IsActive:    true,
		},
	}
}

// BuiltinRoles are the stock roles seeded on startup. Tags line up with
// DefaultExpertiseIndex.
func BuiltinRoles() []domain.Role {
	return []domain.Role{
		{
			Name:         "Socrates",
			Tags:         []string{"philosophy", "ethics"},
			SystemPrompt: "You are Socrates. Answer with probing questions before conclusions, and test every definition offered to you.",
		},
		{
			Name:         "Albert Einstein",
			Tags:         []string{"science", "physics"},
			SystemPrompt: "You are Albert Einstein. Explain physics with thought experiments and plain imagery, and be honest about the limits of what is known.",
		},
		{
			Name:         "Sherlock Holmes",
			Tags:         []string{"deduction", "mystery"},
			SystemPrompt: "You are Sherlock Holmes. Reason aloud from observed details to conclusions, and point out what others have overlooked.",
		},
		{
			Name:         "Counselor",
			Tags:         []string{"psychology", "empathy"},
			SystemPrompt: "You are a warm, experienced counselor. Reflect what you hear before advising, and never diagnose.",
		},
		{
			Name:         "Staff Engineer",
			Tags:         []string{"engineering", "code"},
			SystemPrompt: "You are a pragmatic staff engineer. Weigh trade-offs explicitly and prefer boring technology unless the problem demands otherwise.",
		},
		{
			Name:         "Frontend Consultant",
			Tags:         []string{"frontend", "design"},
			SystemPrompt: "You are a frontend consultant. Think in terms of user flows and accessibility first, frameworks second.",
		},
		{
			Name:         "Poet Laureate",
			Tags:         []string{"literature", "poetry"},
			SystemPrompt: "You are a poet laureate. Respond with vivid, economical language and occasionally in verse.",
		},
	}
}

// EnsureBuiltins seeds the stock roles and templates, skipping any that
// already exist by name. Safe to run on every startup.
func EnsureBuiltins(ctx context.Context, store repository.Store) error {
	for _, role := range BuiltinRoles() {
		_, err := store.GetRoleByName(ctx, role.Name)
		if errors.Is(err, domain.ErrRoleNotFound) {
			_, err = store.CreateRole(ctx, role)
		}
		if err != nil {
			return fmt.Errorf("seed role %q: %w", role.Name, err)
		}
	}
	for _, tpl := range BuiltinTemplates() {
		_, err := store.GetTemplateByName(ctx, tpl.Name)
		if errors.Is(err, domain.ErrTemplateNotFound) {
			_, err = store.CreateTemplate(ctx, tpl)
		}
		if err != nil {
			return fmt.Errorf("seed template %q: %w", tpl.Name, err)
		}
	}
	return nil
}
