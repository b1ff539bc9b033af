// Package handler provides HTTP handlers for the scene API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roleverse/sceneflow/internal/domain"
	"github.com/roleverse/sceneflow/internal/lore"
	"github.com/roleverse/sceneflow/internal/repository"
	"github.com/roleverse/sceneflow/internal/scene"
)

type Handler struct {
	scenes *scene.Service
	store  repository.Store
	lore   *lore.Importer
	log    *slog.Logger
}

type Deps struct {
	Scenes *scene.Service
	Store  repository.Store
	Lore   *lore.Importer
	Logger *slog.Logger
}

func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{scenes: deps.Scenes, store: deps.Store, lore: deps.Lore, log: deps.Logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrRoleNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRoleAlreadyJoined),
		errors.Is(err, domain.ErrMaxRolesExceeded):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNoActiveParticipants):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrInvalidPersonality),
		errors.Is(err, domain.ErrUnknownStrategy),
		errors.Is(err, domain.ErrEmptyRoleName):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// ownerID reads the calling user's id from the X-User-ID header.
func ownerID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pagination reads page/size query params, clamping size to maxSize.
func pagination(r *http.Request, defaultSize, maxSize int) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
