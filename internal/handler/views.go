package handler

import (
	"time"

	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/scene"
)

type templateView struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	SceneType   domain.SceneType `json:"scene_type"`
	MinRoles    int              `json:"min_roles"`
	MaxRoles    int              `json:"max_roles"`
	Strategy    string           `json:"strategy"`
	Rules       []string         `json:"rules"`
}

func toTemplateView(t domain.SceneTemplate) templateView {
	return templateView{
		ID:          t.ID,
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		SceneType:   t.SceneType,
		MinRoles:    t.MinRoles,
		MaxRoles:    t.MaxRoles,
		Strategy:    t.Strategy.String(),
		Rules:       t.Rules,
	}
}

type sessionView struct {
	ID             int64      `json:"id"`
	PublicID       string     `json:"public_id"`
	TemplateID     int64      `json:"template_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	CurrentSpeaker *int64     `json:"current_speaker,omitempty"`
	MessageCount   int        `json:"message_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

func toSessionView(s domain.Session) sessionView {
	return sessionView{
		ID:             s.ID,
		PublicID:       s.PublicID,
		TemplateID:     s.TemplateID,
		Name:           s.Name,
		Description:    s.Description,
		Status:         string(s.Status),
		CurrentSpeaker: s.CurrentSpeaker,
		MessageCount:   s.MessageCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		EndedAt:        s.EndedAt,
	}
}

type participantView struct {
	ID          int64                    `json:"id"`
	RoleID      int64                    `json:"role_id"`
	Kind        domain.ParticipantKind   `json:"kind"`
	JoinOrder   int                      `json:"join_order"`
	Active      bool                     `json:"active"`
	Personality domain.PersonalityConfig `json:"personality"`
	SpeakCount  int                      `json:"speak_count"`
	LastSpokeAt *time.Time               `json:"last_spoke_at,omitempty"`
}

func toParticipantView(p domain.Participant) participantView {
	return participantView{
		ID:          p.ID,
		RoleID:      p.RoleID,
		Kind:        p.Kind,
		JoinOrder:   p.JoinOrder,
		Active:      p.Active,
		Personality: p.Personality,
		SpeakCount:  p.SpeakCount,
		LastSpokeAt: p.LastSpokeAt,
	}
}

type messageView struct {
	ID            int64              `json:"id"`
	ParticipantID *int64             `json:"participant_id,omitempty"`
	RoleID        *int64             `json:"role_id,omitempty"`
	Type          domain.MessageType `json:"type"`
	Content       string             `json:"content"`
	TargetID      *int64             `json:"target_participant_id,omitempty"`
	Order         int                `json:"order"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toMessageView(m domain.Message) messageView {
	return messageView{
		ID:            m.ID,
		ParticipantID: m.ParticipantID,
		RoleID:        m.RoleID,
		Type:          m.Type,
		Content:       m.Content,
		TargetID:      m.TargetParticipantID,
		Order:         m.Order,
		CreatedAt:     m.CreatedAt,
	}
}

type roleView struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Tags         []string `json:"tags"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Background   string   `json:"background,omitempty"`
	Model        string   `json:"model,omitempty"`
}

func toRoleView(r domain.Role) roleView {
	return roleView{
		ID:           r.ID,
		Name:         r.Name,
		Tags:         r.Tags,
		SystemPrompt: r.SystemPrompt,
		Background:   r.Background,
		Model:        r.Model,
	}
}

type sceneResponseView struct {
	SessionID       int64         `json:"session_id"`
	Messages        []messageView `json:"messages"`
	CurrentSpeaker  *int64        `json:"current_speaker,omitempty"`
	SpeakerRotation []int64       `json:"speaker_rotation"`
	Suggestions     []string      `json:"suggestions,omitempty"`
	Error           string        `json:"error,omitempty"`
}

func toSceneResponseView(resp *domain.SceneResponse, errMsg string) sceneResponseView {
	msgs := make([]messageView, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, toMessageView(m))
	}
	return sceneResponseView{
		SessionID:       resp.SessionID,
		Messages:        msgs,
		CurrentSpeaker:  resp.CurrentSpeaker,
		SpeakerRotation: resp.SpeakerRotation,
		Suggestions:     resp.Suggestions,
		Error:           errMsg,
	}
}

type sessionDetailView struct {
	Session      sessionView       `json:"session"`
	Template     templateView      `json:"template"`
	Participants []participantView `json:"participants"`
	Recent       []messageView     `json:"recent_messages"`
}

func toSessionDetailView(d scene.SessionDetail) sessionDetailView {
	parts := make([]participantView, 0, len(d.Participants))
	for _, p := range d.Participants {
		parts = append(parts, toParticipantView(p))
	}
	msgs := make([]messageView, 0, len(d.Recent))
	for _, m := range d.Recent {
		msgs = append(msgs, toMessageView(m))
	}
	return sessionDetailView{
		Session:      toSessionView(d.Session),
		Template:     toTemplateView(d.Template),
		Participants: parts,
		Recent:       msgs,
	}
}

type pageView[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
