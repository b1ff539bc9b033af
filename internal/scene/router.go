package scene

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/repository"
)

// Responder produces a role's reply for one turn given the conversation
// window and the participant's personality tuning.
type Responder interface {
	Respond(ctx context.Context, role domain.Role, window []domain.Message, personality domain.PersonalityConfig) (string, error)
}

// Router runs one turn: it persists the incoming message, drives the
// selected speakers through the responder, records the replies, and updates
// the session's turn bookkeeping. The caller must hold the session lock.
type Router struct {
	store     repository.Store
	responder Responder
	suggester *suggester
	window    int
	now       func() time.Time
	log       *slog.Logger
}

func newRouter(store repository.Store, responder Responder, suggester *suggester, window int, now func() time.Time, log *slog.Logger) *Router {
	if window <= 0 {
		window = config.DefaultContextWindow
	}
	return &Router{store: store, responder: responder, suggester: suggester, window: window, now: now, log: log}
}

// turnInput is everything the router needs for one turn. incoming has no
// order yet; the router assigns it on append.
type turnInput struct {
	session  domain.Session
	template domain.SceneTemplate
	sel      Selection
	active   []domain.Participant
	incoming domain.Message
}

// routeAndRespond executes the turn. A responder failure skips that speaker
// and the turn continues; the first such failure is returned as a
// *domain.ResponderError alongside the (possibly partial) response. The
// incoming message is durable even when every speaker fails.
func (rt *Router) routeAndRespond(ctx context.Context, in turnInput) (*domain.SceneResponse, error) {
	userMsg, err := rt.store.AppendMessage(ctx, in.incoming)
	if err != nil {
		return nil, fmt.Errorf("append incoming message: %w", err)
	}

	window, err := rt.store.RecentMessages(ctx, in.session.ID, rt.window)
	if err != nil {
		return nil, fmt.Errorf("load context window: %w", err)
	}

	var (
		replies     []domain.Message
		upstream    error
		primary     *Speaker
		primaryText string
		lastSpoken  *int64
	)
	for i, sp := range in.sel.Speakers {
		win := make([]domain.Message, 0, len(window)+len(replies)+1)
		win = append(win, window...)
		win = append(win, replies...)
		if in.sel.Collaborative && i > 0 && primary != nil {
			win = append(win, followUpPrompt(userMsg.Content, primary.Role.Name, primaryText))
		}

		callCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
		text, err := rt.responder.Respond(callCtx, sp.Role, win, sp.Participant.Personality)
		cancel()
		if err != nil {
			rt.log.Warn("speaker skipped",
				slog.Int64("session_id", in.session.ID),
				slog.Int64("role_id", sp.Role.ID),
				slog.String("error", err.Error()))
			if upstream == nil {
				upstream = &domain.ResponderError{RoleID: sp.Role.ID, Err: err}
			}
			continue
		}

		pid, rid := sp.Participant.ID, sp.Role.ID
		reply, err := rt.store.AppendMessage(ctx, domain.Message{
			SessionID:     in.session.ID,
			ParticipantID: &pid,
			RoleID:        &rid,
			Type:          domain.MessageText,
			Content:       text,
		})
		if err != nil {
			return rt.response(in, replies, lastSpoken), fmt.Errorf("append reply: %w", err)
		}
		replies = append(replies, reply)
		lastSpoken = &rid
		if i == 0 {
			sp := sp
			primary, primaryText = &sp, text
		}

		if err := rt.store.RecordSpeech(ctx, pid, rt.now()); err != nil {
			rt.log.Warn("record speech", slog.Int64("participant_id", pid), slog.String("error", err.Error()))
		}
	}

	currentSpeaker := in.session.CurrentSpeaker
	if lastSpoken != nil {
		currentSpeaker = lastSpoken
	}
	count := in.session.MessageCount + 1 + len(replies)
	if err := rt.store.UpdateSessionTurn(ctx, in.session.ID, currentSpeaker, count); err != nil {
		return rt.response(in, replies, lastSpoken), fmt.Errorf("update session turn: %w", err)
	}

	return rt.response(in, replies, lastSpoken), upstream
}

func (rt *Router) response(in turnInput, replies []domain.Message, lastSpoken *int64) *domain.SceneResponse {
	currentSpeaker := in.session.CurrentSpeaker
	if lastSpoken != nil {
		currentSpeaker = lastSpoken
	}
	rotation := make([]int64, 0, len(in.active))
	for _, p := range in.active {
		if p.Kind == domain.KindAI {
			rotation = append(rotation, p.RoleID)
		}
	}
	return &domain.SceneResponse{
		SessionID:       in.session.ID,
		Messages:        replies,
		CurrentSpeaker:  currentSpeaker,
		SpeakerRotation: rotation,
		Suggestions:     rt.suggester.suggest(in.template.SceneType, len(replies) > 0),
	}
}

// followUpPrompt is the synthetic instruction handed to the supplementary
// speaker of a collaborative turn. It rides the window as a user-origin
// message and is never persisted.
func followUpPrompt(question, primaryName, primaryText string) domain.Message {
	return domain.Message{
		Type: domain.MessageText,
		Content: fmt.Sprintf(
			"The user asked: %q. %s already answered: %q. Add your own supplementary perspective without repeating it.",
			question, primaryName, primaryText,
		),
	}
}
