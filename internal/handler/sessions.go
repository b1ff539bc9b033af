package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/scene"
)

type createSessionRequest struct {
	TemplateID  int64  `json:"template_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.scenes.CreateSession(r.Context(), owner, req.TemplateID, req.Name, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, toSessionView(sess))
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	page, size := pagination(r, config.SessionsPerPage, config.MaxPageSize)
	sessions, total, err := h.scenes.ListSessions(r.Context(), owner, page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, toSessionView(s))
	}
	JSON(w, http.StatusOK, pageView[sessionView]{Items: items, Total: total, Page: page, Size: size})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	detail, err := h.scenes.SessionDetail(r.Context(), owner, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, toSessionDetailView(detail))
}

type updateSessionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req updateSessionRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.scenes.UpdateSession(r.Context(), owner, sessionID, req.Name, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	ended, err := h.scenes.EndSession(r.Context(), owner, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ended": ended})
}

func (h *Handler) pauseSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.scenes.PauseSession)
}

func (h *Handler) resumeSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.scenes.ResumeSession)
}

func (h *Handler) archiveSession(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.scenes.ArchiveSession)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, owner, session int64) error) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := op(r.Context(), owner, sessionID); err != nil {
		h.writeError(w, err)
		return
	}
	sess, err := h.scenes.GetSession(r.Context(), owner, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, toSessionView(sess))
}

type addParticipantRequest struct {
	RoleID      int64                    `json:"role_id"`
	Personality domain.PersonalityConfig `json:"personality"`
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req addParticipantRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.scenes.AddParticipant(r.Context(), owner, sessionID, req.RoleID, req.Personality)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, toParticipantView(p))
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	parts, err := h.scenes.ListParticipants(r.Context(), owner, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]participantView, 0, len(parts))
	for _, p := range parts {
		items = append(items, toParticipantView(p))
	}
	JSON(w, http.StatusOK, items)
}

func (h *Handler) removeParticipant(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	participantID, ok := pathID(r, "participantID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid participant id")
		return
	}
	removed, err := h.scenes.RemoveParticipant(r.Context(), owner, sessionID, participantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

type sendMessageRequest struct {
	Content        string `json:"content"`
	CurrentSpeaker *int64 `json:"current_speaker"`
	TargetID       *int64 `json:"target_participant_id"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.scenes.SendMessage(r.Context(), scene.SendMessageInput{
		OwnerID:        owner,
		SessionID:      sessionID,
		Content:        req.Content,
		CurrentSpeaker: req.CurrentSpeaker,
		TargetID:       req.TargetID,
	})

	var respErr *domain.ResponderError
	if errors.As(err, &respErr) && resp != nil {
		// Partial turn: the user message landed, some speakers failed.
		JSON(w, http.StatusBadGateway, toSceneResponseView(resp, respErr.Error()))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, toSceneResponseView(resp, ""))
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	sessionID, ok := pathID(r, "sessionID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}
	page, size := pagination(r, config.MessagesPerPage, config.MaxMessagesPerPage)
	msgs, total, err := h.scenes.GetMessages(r.Context(), owner, sessionID, page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, toMessageView(m))
	}
	JSON(w, http.StatusOK, pageView[messageView]{Items: items, Total: total, Page: page, Size: size})
}
