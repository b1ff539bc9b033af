package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/repository"
)

const testOwner int64 = 42

type fakeResponder struct {
	mu      sync.Mutex
	fail    map[int64]error
	calls   []int64
	windows map[int64][]domain.Message
}

func newFakeResponder() *fakeResponder {
	return &fakeResponder{
		fail:    make(map[int64]error),
		windows: make(map[int64][]domain.Message),
	}
}

func (f *fakeResponder) Respond(_ context.Context, role domain.Role, window []domain.Message, _ domain.PersonalityConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, role.ID)
	f.windows[role.ID] = append([]domain.Message(nil), window...)
	if err := f.fail[role.ID]; err != nil {
		return "", err
	}
	return "reply from " + role.Name, nil
}

type testEnv struct {
	svc      *Service
	store    *repository.Memory
	resp     *fakeResponder
	template domain.SceneTemplate
	roles    map[string]domain.Role
}

func newTestEnv(t *testing.T, strategy domain.Strategy, maxRoles int) *testEnv {
	t.Helper()
	store := repository.NewMemory()
	ctx := context.Background()

	tpl, err := store.CreateTemplate(ctx, domain.SceneTemplate{
		Name:      "test_scene",
		Title:     "Test Scene",
		SceneType: domain.SceneDiscussion,
		MinRoles:  1,
		MaxRoles:  maxRoles,
		Strategy:  strategy,
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}

	roles := make(map[string]domain.Role)
	for _, r := range []domain.Role{
		{Name: "Socrates", Tags: []string{"philosophy"}},
		{Name: "Einstein", Tags: []string{"physics", "science"}},
		{Name: "Holmes", Tags: []string{"deduction"}},
	} {
		created, err := store.CreateRole(ctx, r)
		if err != nil {
			t.Fatalf("seed role: %v", err)
		}
		roles[created.Name] = created
	}

	resp := newFakeResponder()
	svc, err := New(Deps{
		Store:     store,
		Responder: resp,
		Seed:      1,
		Logger:    slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{svc: svc, store: store, resp: resp, template: tpl, roles: roles}
}

func (e *testEnv) session(t *testing.T, roleNames ...string) domain.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := e.svc.CreateSession(ctx, testOwner, e.template.ID, "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for _, name := range roleNames {
		if _, err := e.svc.AddParticipant(ctx, testOwner, sess.ID, e.roles[name].ID, domain.PersonalityConfig{}); err != nil {
			t.Fatalf("AddParticipant(%s): %v", name, err)
		}
	}
	return sess
}

func TestSendMessageSequentialRotation(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")
	socID, einID := env.roles["Socrates"].ID, env.roles["Einstein"].ID

	resp, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(resp.Messages) != 1 || *resp.Messages[0].RoleID != socID {
		t.Fatalf("first turn should go to Socrates, got %+v", resp.Messages)
	}
	if resp.CurrentSpeaker == nil || *resp.CurrentSpeaker != socID {
		t.Fatalf("current speaker should be Socrates, got %v", resp.CurrentSpeaker)
	}
	if want := []int64{socID, einID}; len(resp.SpeakerRotation) != 2 ||
		resp.SpeakerRotation[0] != want[0] || resp.SpeakerRotation[1] != want[1] {
		t.Fatalf("rotation want %v, got %v", want, resp.SpeakerRotation)
	}
	if len(resp.Suggestions) != 3 {
		t.Fatalf("want 3 suggestions, got %d", len(resp.Suggestions))
	}

	got, err := env.svc.GetSession(ctx, testOwner, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.MessageCount != 2 {
		t.Fatalf("want message count 2 (user + reply), got %d", got.MessageCount)
	}

	// Echoing the hint back advances the rotation.
	resp, err = env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "and you?",
		CurrentSpeaker: resp.CurrentSpeaker,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if *resp.Messages[0].RoleID != einID {
		t.Fatalf("second turn should go to Einstein, got role %d", *resp.Messages[0].RoleID)
	}
	got, _ = env.svc.GetSession(ctx, testOwner, sess.ID)
	if got.MessageCount != 4 {
		t.Fatalf("want message count 4, got %d", got.MessageCount)
	}
}

func TestSendMessageExpertiseRouting(t *testing.T) {
	env := newTestEnv(t, domain.StrategyExpertiseMatch, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")

	resp, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID,
		Content: "What does physics tell us about time?",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if *resp.Messages[0].RoleID != env.roles["Einstein"].ID {
		t.Fatalf("physics question should route to Einstein, got role %d", *resp.Messages[0].RoleID)
	}
}

func TestSendMessageCollaborative(t *testing.T) {
	env := newTestEnv(t, domain.StrategyCollaborative, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")

	resp, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello all",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("want primary and supplementary replies, got %d", len(resp.Messages))
	}
	if *resp.Messages[0].RoleID != env.roles["Socrates"].ID ||
		*resp.Messages[1].RoleID != env.roles["Einstein"].ID {
		t.Fatalf("want Socrates then Einstein, got %+v", resp.Messages)
	}

	// The supplementary speaker sees the primary's answer in its window.
	win := env.resp.windows[env.roles["Einstein"].ID]
	last := win[len(win)-1]
	if !strings.Contains(last.Content, "reply from Socrates") {
		t.Fatalf("follow-up prompt should embed the primary answer, got %q", last.Content)
	}
	if got, _ := env.svc.GetSession(ctx, testOwner, sess.ID); got.MessageCount != 3 {
		t.Fatalf("want message count 3, got %d", got.MessageCount)
	}
}

func TestSendMessageResponderFailureIsPartial(t *testing.T) {
	env := newTestEnv(t, domain.StrategyCollaborative, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")
	env.resp.fail[env.roles["Socrates"].ID] = errors.New("upstream 500")

	resp, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello",
	})
	var respErr *domain.ResponderError
	if !errors.As(err, &respErr) {
		t.Fatalf("want ResponderError, got %v", err)
	}
	if respErr.RoleID != env.roles["Socrates"].ID {
		t.Fatalf("want failing role id %d, got %d", env.roles["Socrates"].ID, respErr.RoleID)
	}
	if resp == nil || len(resp.Messages) != 1 || *resp.Messages[0].RoleID != env.roles["Einstein"].ID {
		t.Fatalf("turn should continue past the failure, got %+v", resp)
	}

	// The incoming message stays durable.
	msgs, total, err := env.svc.GetMessages(ctx, testOwner, sess.ID, 1, 50)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if total != 2 || msgs[0].Content != "hello" {
		t.Fatalf("user message must survive the failed speaker, got %d messages", total)
	}
}

func TestSendMessageAllSpeakersFail(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates")
	env.resp.fail[env.roles["Socrates"].ID] = errors.New("timeout")

	resp, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "anyone there?",
	})
	var respErr *domain.ResponderError
	if !errors.As(err, &respErr) {
		t.Fatalf("want ResponderError, got %v", err)
	}
	if len(resp.Messages) != 0 {
		t.Fatalf("no replies expected, got %d", len(resp.Messages))
	}
	if resp.CurrentSpeaker != nil {
		t.Fatalf("current speaker must not advance on a failed turn, got %v", resp.CurrentSpeaker)
	}
	// Bookkeeping still counts the persisted user message.
	if got, _ := env.svc.GetSession(ctx, testOwner, sess.ID); got.MessageCount != 1 {
		t.Fatalf("want message count 1, got %d", got.MessageCount)
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates")

	if _, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "   ",
	}); !errors.Is(err, domain.ErrEmptyContent) {
		t.Fatalf("want ErrEmptyContent, got %v", err)
	}

	empty := env.session(t)
	if _, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: empty.ID, Content: "hello",
	}); !errors.Is(err, domain.ErrNoActiveParticipants) {
		t.Fatalf("want ErrNoActiveParticipants, got %v", err)
	}
}

func TestSendMessagePausedSession(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates")

	if err := env.svc.PauseSession(ctx, testOwner, sess.ID); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	if _, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello",
	}); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("want ErrSessionNotActive, got %v", err)
	}

	if err := env.svc.ResumeSession(ctx, testOwner, sess.ID); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if _, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello again",
	}); err != nil {
		t.Fatalf("SendMessage after resume: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t)

	ended, err := env.svc.EndSession(ctx, testOwner, sess.ID)
	if err != nil || !ended {
		t.Fatalf("first EndSession: ended=%v err=%v", ended, err)
	}
	got, _ := env.svc.GetSession(ctx, testOwner, sess.ID)
	if got.Status != domain.StatusEnded || got.EndedAt == nil {
		t.Fatalf("want ended with timestamp, got %+v", got)
	}

	// Ending again is a no-op.
	ended, err = env.svc.EndSession(ctx, testOwner, sess.ID)
	if err != nil || ended {
		t.Fatalf("second EndSession: ended=%v err=%v", ended, err)
	}

	if err := env.svc.ArchiveSession(ctx, testOwner, sess.ID); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if err := env.svc.ResumeSession(ctx, testOwner, sess.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("resume of archived session: want ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateSession(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t)

	name := "Renamed Scene"
	got, err := env.svc.UpdateSession(ctx, testOwner, sess.ID, &name, nil)
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if got.Name != name || got.Description != sess.Description {
		t.Fatalf("want name updated and description kept, got %+v", got)
	}

	desc := "a fresh description"
	got, err = env.svc.UpdateSession(ctx, testOwner, sess.ID, nil, &desc)
	if err != nil {
		t.Fatalf("UpdateSession description: %v", err)
	}
	if got.Name != name || got.Description != desc {
		t.Fatalf("want both fields current, got %+v", got)
	}

	if _, err := env.svc.UpdateSession(ctx, testOwner+1, sess.ID, &name, nil); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("foreign owner: want ErrSessionNotFound, got %v", err)
	}

	if _, err := env.svc.EndSession(ctx, testOwner, sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, err := env.svc.UpdateSession(ctx, testOwner, sess.ID, &name, nil); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("ended session: want ErrSessionNotActive, got %v", err)
	}
}

func TestEndPausedSession(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t)

	if err := env.svc.PauseSession(ctx, testOwner, sess.ID); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	ended, err := env.svc.EndSession(ctx, testOwner, sess.ID)
	if err != nil || !ended {
		t.Fatalf("EndSession on paused session: ended=%v err=%v", ended, err)
	}
	got, _ := env.svc.GetSession(ctx, testOwner, sess.ID)
	if got.Status != domain.StatusEnded || got.EndedAt == nil {
		t.Fatalf("paused session must end cleanly, got %+v", got)
	}
	// Ended stays terminal afterwards.
	if err := env.svc.ResumeSession(ctx, testOwner, sess.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("resume of ended session: want ErrInvalidTransition, got %v", err)
	}
}

func TestAddParticipantRules(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 2)
	ctx := context.Background()
	sess := env.session(t, "Socrates")

	if _, err := env.svc.AddParticipant(ctx, testOwner, sess.ID, env.roles["Socrates"].ID, domain.PersonalityConfig{}); !errors.Is(err, domain.ErrRoleAlreadyJoined) {
		t.Fatalf("want ErrRoleAlreadyJoined, got %v", err)
	}

	if _, err := env.svc.AddParticipant(ctx, testOwner, sess.ID, env.roles["Einstein"].ID, domain.PersonalityConfig{}); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if _, err := env.svc.AddParticipant(ctx, testOwner, sess.ID, env.roles["Holmes"].ID, domain.PersonalityConfig{}); !errors.Is(err, domain.ErrMaxRolesExceeded) {
		t.Fatalf("want ErrMaxRolesExceeded, got %v", err)
	}

	if _, err := env.svc.AddParticipant(ctx, testOwner, sess.ID, 9999, domain.PersonalityConfig{}); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("want ErrRoleNotFound, got %v", err)
	}
	if _, err := env.svc.AddParticipant(ctx, testOwner, sess.ID, env.roles["Holmes"].ID, domain.PersonalityConfig{Temperature: 5}); !errors.Is(err, domain.ErrInvalidPersonality) {
		t.Fatalf("want ErrInvalidPersonality, got %v", err)
	}
}

func TestRemoveParticipantKeepsJoinOrder(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 2)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")

	parts, err := env.svc.ListParticipants(ctx, testOwner, sess.ID)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	removed, err := env.svc.RemoveParticipant(ctx, testOwner, sess.ID, parts[1].ID)
	if err != nil || !removed {
		t.Fatalf("RemoveParticipant: removed=%v err=%v", removed, err)
	}
	// Removing an unknown participant reports false without error.
	removed, err = env.svc.RemoveParticipant(ctx, testOwner, sess.ID, 9999)
	if err != nil || removed {
		t.Fatalf("remove unknown: removed=%v err=%v", removed, err)
	}

	// The freed slot gets a fresh join order, never a recycled one.
	p, err := env.svc.AddParticipant(ctx, testOwner, sess.ID, env.roles["Holmes"].ID, domain.PersonalityConfig{})
	if err != nil {
		t.Fatalf("AddParticipant after removal: %v", err)
	}
	if p.JoinOrder != 3 {
		t.Fatalf("want join order 3, got %d", p.JoinOrder)
	}
}

func TestRemoveCurrentSpeakerClearsPointer(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")

	resp, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.CurrentSpeaker == nil {
		t.Fatal("want a current speaker after the turn")
	}

	parts, _ := env.svc.ListParticipants(ctx, testOwner, sess.ID)
	var speakerPID int64
	for _, p := range parts {
		if p.RoleID == *resp.CurrentSpeaker {
			speakerPID = p.ID
		}
	}
	if _, err := env.svc.RemoveParticipant(ctx, testOwner, sess.ID, speakerPID); err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	got, _ := env.svc.GetSession(ctx, testOwner, sess.ID)
	if got.CurrentSpeaker != nil {
		t.Fatalf("current speaker must be cleared with its participant, got %v", *got.CurrentSpeaker)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates")

	const stranger int64 = 7
	if _, err := env.svc.GetSession(ctx, stranger, sess.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound for foreign owner, got %v", err)
	}
	if _, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: stranger, SessionID: sess.ID, Content: "hi",
	}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound for foreign owner, got %v", err)
	}
}

func TestCreateSessionInactiveTemplate(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()

	tpl, err := env.store.CreateTemplate(ctx, domain.SceneTemplate{
		Name: "retired", Title: "Retired", SceneType: domain.SceneDiscussion,
		MinRoles: 1, MaxRoles: 2, Strategy: domain.StrategySequential,
	})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	if _, err := env.svc.CreateSession(ctx, testOwner, tpl.ID, "", ""); !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("want ErrTemplateNotFound for inactive template, got %v", err)
	}
}

func TestConcurrentSendsKeepOrdersGapless(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates", "Einstein")

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.SendMessage(ctx, SendMessageInput{
				OwnerID: testOwner, SessionID: sess.ID,
				Content: fmt.Sprintf("message %d", i),
			})
			if err != nil {
				t.Errorf("SendMessage: %v", err)
			}
		}(i)
	}
	wg.Wait()

	msgs, total, err := env.svc.GetMessages(ctx, testOwner, sess.ID, 1, 200)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if total != senders*2 {
		t.Fatalf("want %d messages, got %d", senders*2, total)
	}
	for i, m := range msgs {
		if m.Order != i+1 {
			t.Fatalf("orders must be gapless 1..N: index %d has order %d", i, m.Order)
		}
	}
	if got, _ := env.svc.GetSession(ctx, testOwner, sess.ID); got.MessageCount != senders*2 {
		t.Fatalf("want message count %d, got %d", senders*2, got.MessageCount)
	}
}

func TestSessionDetail(t *testing.T) {
	env := newTestEnv(t, domain.StrategySequential, 3)
	ctx := context.Background()
	sess := env.session(t, "Socrates")

	if _, err := env.svc.SendMessage(ctx, SendMessageInput{
		OwnerID: testOwner, SessionID: sess.ID, Content: "hello",
	}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	detail, err := env.svc.SessionDetail(ctx, testOwner, sess.ID)
	if err != nil {
		t.Fatalf("SessionDetail: %v", err)
	}
	if detail.Template.ID != env.template.ID {
		t.Fatalf("want template %d, got %d", env.template.ID, detail.Template.ID)
	}
	// Socrates plus the lazily created human participant.
	if len(detail.Participants) != 2 {
		t.Fatalf("want 2 participants, got %d", len(detail.Participants))
	}
	if len(detail.Recent) != 2 {
		t.Fatalf("want 2 recent messages, got %d", len(detail.Recent))
	}
}

func TestEnsureBuiltinsIdempotent(t *testing.T) {
	store := repository.NewMemory()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := EnsureBuiltins(ctx, store); err != nil {
			t.Fatalf("EnsureBuiltins run %d: %v", i+1, err)
		}
	}
	roles, err := store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != len(BuiltinRoles()) {
		t.Fatalf("want %d roles after reseed, got %d", len(BuiltinRoles()), len(roles))
	}
	_, total, err := store.ListTemplates(ctx, "", 1, 50)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if total != int64(len(BuiltinTemplates())) {
		t.Fatalf("want %d templates after reseed, got %d", len(BuiltinTemplates()), total)
	}
}
