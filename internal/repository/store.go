// Package repository provides the persistence boundary for the scene engine:
// a Postgres implementation for production and an in-memory implementation
// used by tests.
package repository

import (
	"context"
	"time"

	"github.com/roleverse/sceneflow/internal/domain"
)

type TemplateStore interface {
	CreateTemplate(ctx context.Context, t domain.SceneTemplate) (domain.SceneTemplate, error)
	GetTemplate(ctx context.Context, id int64) (domain.SceneTemplate, error)
	GetTemplateByName(ctx context.Context, name string) (domain.SceneTemplate, error)
	// ListTemplates returns active templates, newest first. sceneType filters
	// when non-empty.
	ListTemplates(ctx context.Context, sceneType domain.SceneType, page, size int) ([]domain.SceneTemplate, int64, error)
}

type RoleStore interface {
	CreateRole(ctx context.Context, r domain.Role) (domain.Role, error)
	GetRole(ctx context.Context, id int64) (domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s domain.Session) (domain.Session, error)
	GetSession(ctx context.Context, id int64) (domain.Session, error)
	ListSessionsByOwner(ctx context.Context, ownerID int64, page, size int) ([]domain.Session, int64, error)
	UpdateSessionStatus(ctx context.Context, id int64, status domain.SessionStatus, endedAt *time.Time) error
	// UpdateSessionInfo rewrites the user-facing name and description.
	UpdateSessionInfo(ctx context.Context, id int64, name, description string) error
	// UpdateSessionTurn records the post-turn bookkeeping: current speaker,
	// message count, and a fresh updated_at.
	UpdateSessionTurn(ctx context.Context, id int64, currentSpeaker *int64, messageCount int) error
}

type ParticipantStore interface {
	// AddParticipant persists a participant with the join order already
	// assigned by the registry. Implementations report a duplicate
	// (session, role) pair as domain.ErrRoleAlreadyJoined.
	AddParticipant(ctx context.Context, p domain.Participant) (domain.Participant, error)
	GetParticipant(ctx context.Context, id int64) (domain.Participant, error)
	ListParticipants(ctx context.Context, sessionID int64) ([]domain.Participant, error)
	ListActiveParticipants(ctx context.Context, sessionID int64) ([]domain.Participant, error)
	// DeactivateParticipant soft-removes; join orders are never renumbered.
	DeactivateParticipant(ctx context.Context, id int64) (bool, error)
	RecordSpeech(ctx context.Context, id int64, at time.Time) error
}

type MessageStore interface {
	// AppendMessage assigns the next per-session order and persists
	// atomically; Order on the input is ignored.
	AppendMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, sessionID int64, page, size int) ([]domain.Message, int64, error)
	// RecentMessages returns the last n messages in ascending order.
	RecentMessages(ctx context.Context, sessionID int64, n int) ([]domain.Message, error)
}

type StatsStore interface {
	SceneStats(ctx context.Context, ownerID int64) (domain.SceneStats, error)
}

// Store bundles the per-entity stores behind a single implementation.
type Store interface {
	TemplateStore
	RoleStore
	SessionStore
	ParticipantStore
	MessageStore
	StatsStore
}
