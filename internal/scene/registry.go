package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/repository"
)

// humanRoleName is the stand-in role bound to lazily created human
// participants.
const humanRoleName = "User"

// Registry tracks which roles have joined a session, their join order, and
// activity. Join order is an immutable historical fact: it is assigned once
// and never renumbered, even after removals.
type Registry struct {
	store repository.Store
	locks *sessionLocks
}

func newRegistry(store repository.Store, locks *sessionLocks) *Registry {
	return &Registry{store: store, locks: locks}
}

// Add joins a role to a session as a new participant.
func (r *Registry) Add(ctx context.Context, session domain.Session, template domain.SceneTemplate, roleID int64, kind domain.ParticipantKind, personality domain.PersonalityConfig) (domain.Participant, error) {
	release := r.locks.acquire(session.ID)
	defer release()
	return r.add(ctx, session, template, roleID, kind, personality)
}

// add requires the session lock to be held.
func (r *Registry) add(ctx context.Context, session domain.Session, template domain.SceneTemplate, roleID int64, kind domain.ParticipantKind, personality domain.PersonalityConfig) (domain.Participant, error) {
	if err := normalizePersonality(&personality); err != nil {
		return domain.Participant{}, err
	}

	existing, err := r.store.ListParticipants(ctx, session.ID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("list participants: %w", err)
	}

	activeAI := 0
	maxOrder := 0
	for _, p := range existing {
		if p.RoleID == roleID {
			return domain.Participant{}, domain.ErrRoleAlreadyJoined
		}
		if p.Active && p.Kind == domain.KindAI {
			activeAI++
		}
		if p.JoinOrder > maxOrder {
			maxOrder = p.JoinOrder
		}
	}

	// Only AI participants count against the template limit.
	if kind == domain.KindAI && activeAI >= template.MaxRoles {
		return domain.Participant{}, domain.ErrMaxRolesExceeded
	}

	return r.store.AddParticipant(ctx, domain.Participant{
		SessionID:   session.ID,
		RoleID:      roleID,
		Kind:        kind,
		JoinOrder:   maxOrder + 1,
		Active:      true,
		Personality: personality,
	})
}

// Remove soft-removes a participant. Join orders of the remaining
// participants are untouched.
func (r *Registry) Remove(ctx context.Context, participantID int64) (bool, error) {
	return r.store.DeactivateParticipant(ctx, participantID)
}

// ListActive returns the session's active participants in join order.
func (r *Registry) ListActive(ctx context.Context, sessionID int64) ([]domain.Participant, error) {
	return r.store.ListActiveParticipants(ctx, sessionID)
}

// ensureHuman returns the session's human participant, creating it on first
// use. Requires the session lock to be held.
func (r *Registry) ensureHuman(ctx context.Context, session domain.Session, template domain.SceneTemplate) (domain.Participant, error) {
	existing, err := r.store.ListParticipants(ctx, session.ID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("list participants: %w", err)
	}
	for _, p := range existing {
		if p.Kind == domain.KindHuman {
			return p, nil
		}
	}

	role, err := r.store.GetRoleByName(ctx, humanRoleName)
	if errors.Is(err, domain.ErrRoleNotFound) {
		role, err = r.store.CreateRole(ctx, domain.Role{Name: humanRoleName, Tags: []string{"human"}})
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("resolve human role: %w", err)
	}

	return r.add(ctx, session, template, role.ID, domain.KindHuman, domain.PersonalityConfig{})
}

// normalizePersonality applies defaults and validates the typed config at
// the registry boundary.
func normalizePersonality(p *domain.PersonalityConfig) error {
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Version != 1 {
		return fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidPersonality, p.Version)
	}
	if p.Temperature == 0 {
		p.Temperature = config.DefaultTemperature
	}
	if p.Temperature < 0 || p.Temperature > config.MaxTemperature {
		return fmt.Errorf("%w: temperature %.2f out of range", domain.ErrInvalidPersonality, p.Temperature)
	}
	return nil
}
