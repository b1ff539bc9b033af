package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/repository"
)

// Notifier receives operational events. Implementations must tolerate being
// called concurrently.
type Notifier interface {
	Event(ctx context.Context, kind, message string)
}

// Service is the scene orchestration facade: session lifecycle, participant
// management, and turn processing. All session mutations are serialized
// through a per-session lock.
type Service struct {
	store     repository.Store
	registry  *Registry
	scheduler *Scheduler
	router    *Router
	notifier  Notifier
	locks     *sessionLocks
	now       func() time.Time
	newID     func() string
	log       *slog.Logger
}

// Deps carries the service's constructor dependencies. Store and Responder
// are required; everything else has a production default.
type Deps struct {
	Store     repository.Store
	Responder Responder
	Notifier  Notifier
	// Expertise overrides the keyword table for the expertise_match
	// strategy; nil uses DefaultExpertiseIndex.
	Expertise ExpertiseIndex
	// Seed pins scheduler randomness; 0 seeds from crypto/rand.
	Seed          int64
	ContextWindow int
	Logger        *slog.Logger
	Now           func() time.Time
	NewID         func() string
}

func New(deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Responder == nil {
		return nil, errors.New("scene: store and responder are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	seed := deps.Seed
	if seed == 0 {
		var err error
		if seed, err = newSeed(); err != nil {
			return nil, err
		}
	}
	rng := newLockedRand(seed)
	locks := newSessionLocks()
	return &Service{
		store:     deps.Store,
		registry:  newRegistry(deps.Store, locks),
		scheduler: NewScheduler(deps.Expertise, rng),
		router: newRouter(deps.Store, deps.Responder, &suggester{rng: rng},
			deps.ContextWindow, deps.Now, deps.Logger),
		notifier: deps.Notifier,
		locks:    locks,
		now:      deps.Now,
		newID:    deps.NewID,
		log:      deps.Logger,
	}, nil
}

// CreateSession instantiates a session from an active template.
func (s *Service) CreateSession(ctx context.Context, ownerID, templateID int64, name, description string) (domain.Session, error) {
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.Session{}, err
	}
	if !tpl.IsActive {
		return domain.Session{}, domain.ErrTemplateNotFound
	}
	if name == "" {
		name = tpl.Title
	}
	sess, err := s.store.CreateSession(ctx, domain.Session{
		PublicID:    s.newID(),
		TemplateID:  tpl.ID,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Status:      domain.StatusActive,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("session created",
		slog.Int64("session_id", sess.ID),
		slog.String("template", tpl.Name),
		slog.Int64("owner_id", ownerID))
	return sess, nil
}

// GetSession returns the owner's session. Sessions of other owners are
// indistinguishable from missing ones.
func (s *Service) GetSession(ctx context.Context, ownerID, sessionID int64) (domain.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.OwnerID != ownerID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) ListSessions(ctx context.Context, ownerID int64, page, size int) ([]domain.Session, int64, error) {
	return s.store.ListSessionsByOwner(ctx, ownerID, page, size)
}

// SessionDetail bundles a session with its template, participants, and the
// most recent messages.
type SessionDetail struct {
	Session      domain.Session
	Template     domain.SceneTemplate
	Participants []domain.Participant
	Recent       []domain.Message
}

func (s *Service) SessionDetail(ctx context.Context, ownerID, sessionID int64) (SessionDetail, error) {
	sess, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	tpl, err := s.store.GetTemplate(ctx, sess.TemplateID)
	if err != nil {
		return SessionDetail{}, err
	}
	parts, err := s.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return SessionDetail{}, err
	}
	recent, err := s.store.RecentMessages(ctx, sessionID, config.DetailMessageCount)
	if err != nil {
		return SessionDetail{}, err
	}
	return SessionDetail{Session: sess, Template: tpl, Participants: parts, Recent: recent}, nil
}

// EndSession moves a live session (active or paused) to ended. Ending an
// already terminal session is a no-op returning false.
func (s *Service) EndSession(ctx context.Context, ownerID, sessionID int64) (bool, error) {
	release := s.locks.acquire(sessionID)
	defer release()

	sess, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return false, err
	}
	if sess.Status.Terminal() {
		return false, nil
	}
	if !sess.Status.CanTransitionTo(domain.StatusEnded) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, sess.Status, domain.StatusEnded)
	}
	endedAt := s.now()
	if err := s.store.UpdateSessionStatus(ctx, sessionID, domain.StatusEnded, &endedAt); err != nil {
		return false, fmt.Errorf("end session: %w", err)
	}
	s.log.Info("session ended", slog.Int64("session_id", sessionID))
	if s.notifier != nil {
		s.notifier.Event(ctx, "session_ended",
			fmt.Sprintf("session %d (%s) ended by owner %d", sessionID, sess.Name, ownerID))
	}
	return true, nil
}

// UpdateSession rewrites a live session's name and/or description. A nil
// pointer keeps the stored value.
func (s *Service) UpdateSession(ctx context.Context, ownerID, sessionID int64, name, description *string) (domain.Session, error) {
	release := s.locks.acquire(sessionID)
	defer release()

	sess, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Status.Terminal() {
		return domain.Session{}, domain.ErrSessionNotActive
	}
	if name != nil {
		sess.Name = *name
	}
	if description != nil {
		sess.Description = *description
	}
	if err := s.store.UpdateSessionInfo(ctx, sessionID, sess.Name, sess.Description); err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	return s.store.GetSession(ctx, sessionID)
}

func (s *Service) PauseSession(ctx context.Context, ownerID, sessionID int64) error {
	return s.transition(ctx, ownerID, sessionID, domain.StatusPaused)
}

func (s *Service) ResumeSession(ctx context.Context, ownerID, sessionID int64) error {
	return s.transition(ctx, ownerID, sessionID, domain.StatusActive)
}

func (s *Service) ArchiveSession(ctx context.Context, ownerID, sessionID int64) error {
	return s.transition(ctx, ownerID, sessionID, domain.StatusArchived)
}

func (s *Service) transition(ctx context.Context, ownerID, sessionID int64, next domain.SessionStatus) error {
	release := s.locks.acquire(sessionID)
	defer release()

	sess, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}
	if !sess.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, sess.Status, next)
	}
	if err := s.store.UpdateSessionStatus(ctx, sessionID, next, nil); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// AddParticipant joins a role to the owner's session.
func (s *Service) AddParticipant(ctx context.Context, ownerID, sessionID, roleID int64, personality domain.PersonalityConfig) (domain.Participant, error) {
	sess, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return domain.Participant{}, err
	}
	if sess.Status.Terminal() {
		return domain.Participant{}, domain.ErrSessionNotActive
	}
	tpl, err := s.store.GetTemplate(ctx, sess.TemplateID)
	if err != nil {
		return domain.Participant{}, err
	}
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return domain.Participant{}, err
	}
	return s.registry.Add(ctx, sess, tpl, roleID, domain.KindAI, personality)
}

// RemoveParticipant soft-removes a participant from the owner's session.
// Returns false when the participant was not found. Removing the current
// speaker clears the session's speaker pointer so it never references an
// inactive participant.
func (s *Service) RemoveParticipant(ctx context.Context, ownerID, sessionID, participantID int64) (bool, error) {
	release := s.locks.acquire(sessionID)
	defer release()

	sess, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return false, err
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.SessionID != sessionID {
		return false, nil
	}
	removed, err := s.registry.Remove(ctx, participantID)
	if err != nil || !removed {
		return removed, err
	}
	if sess.CurrentSpeaker != nil && *sess.CurrentSpeaker == p.RoleID {
		if err := s.store.UpdateSessionTurn(ctx, sessionID, nil, sess.MessageCount); err != nil {
			return true, fmt.Errorf("clear current speaker: %w", err)
		}
	}
	return true, nil
}

func (s *Service) ListParticipants(ctx context.Context, ownerID, sessionID int64) ([]domain.Participant, error) {
	if _, err := s.GetSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, sessionID)
}

// SendMessageInput is one incoming user message. CurrentSpeaker is the
// continuation hint echoed back from the previous SceneResponse; nil starts
// the rotation from the first participant.
type SendMessageInput struct {
	OwnerID        int64
	SessionID      int64
	Content        string
	CurrentSpeaker *int64
	TargetID       *int64
}

// SendMessage runs one orchestrated turn. The returned response may be
// partial: when a responder fails mid-turn the error is a
// *domain.ResponderError and the response carries whatever replies landed.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*domain.SceneResponse, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, domain.ErrEmptyContent
	}

	release := s.locks.acquire(in.SessionID)
	defer release()

	sess, err := s.GetSession(ctx, in.OwnerID, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrSessionNotActive, sess.Status)
	}
	tpl, err := s.store.GetTemplate(ctx, sess.TemplateID)
	if err != nil {
		return nil, err
	}

	active, err := s.registry.ListActive(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list active participants: %w", err)
	}

	human, err := s.registry.ensureHuman(ctx, sess, tpl)
	if err != nil {
		return nil, err
	}

	roles, err := s.resolveRoles(ctx, active)
	if err != nil {
		return nil, err
	}

	sel, err := s.scheduler.Select(tpl.Strategy, active, roles, in.Content, in.CurrentSpeaker)
	if err != nil {
		return nil, err
	}

	humanID, humanRole := human.ID, human.RoleID
	resp, err := s.router.routeAndRespond(ctx, turnInput{
		session:  sess,
		template: tpl,
		sel:      sel,
		active:   active,
		incoming: domain.Message{
			SessionID:           sess.ID,
			ParticipantID:       &humanID,
			RoleID:              &humanRole,
			Type:                domain.MessageText,
			Content:             in.Content,
			TargetParticipantID: in.TargetID,
		},
	})

	var respErr *domain.ResponderError
	if errors.As(err, &respErr) && s.notifier != nil {
		s.notifier.Event(ctx, "responder_failure",
			fmt.Sprintf("session %d role %d: %v", sess.ID, respErr.RoleID, respErr.Err))
	}
	return resp, err
}

func (s *Service) resolveRoles(ctx context.Context, participants []domain.Participant) (map[int64]domain.Role, error) {
	roles := make(map[int64]domain.Role, len(participants))
	for _, p := range participants {
		if _, ok := roles[p.RoleID]; ok {
			continue
		}
		role, err := s.store.GetRole(ctx, p.RoleID)
		if err != nil {
			return nil, fmt.Errorf("resolve role %d: %w", p.RoleID, err)
		}
		roles[p.RoleID] = role
	}
	return roles, nil
}

func (s *Service) GetMessages(ctx context.Context, ownerID, sessionID int64, page, size int) ([]domain.Message, int64, error) {
	if _, err := s.GetSession(ctx, ownerID, sessionID); err != nil {
		return nil, 0, err
	}
	return s.store.ListMessages(ctx, sessionID, page, size)
}

func (s *Service) GetStats(ctx context.Context, ownerID int64) (domain.SceneStats, error) {
	return s.store.SceneStats(ctx, ownerID)
}
