package handler

import (
	"net/http"
	"strings"

	"github.com/roleverse/sceneflow/internal/domain"
)

type createRoleRequest struct {
	Name         string   `json:"name"`
	Tags         []string `json:"tags"`
	SystemPrompt string   `json:"system_prompt"`
	Model        string   `json:"model"`
	// BackgroundURL points at a page to scrape for background lore.
	BackgroundURL string `json:"background_url"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerID(r); !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	var req createRoleRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, domain.ErrEmptyRoleName)
		return
	}

	role := domain.Role{
		Name:         strings.TrimSpace(req.Name),
		Tags:         req.Tags,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
	}
	if req.BackgroundURL != "" && h.lore != nil {
		_, body, err := h.lore.Fetch(r.Context(), req.BackgroundURL)
		if err != nil {
			Error(w, http.StatusBadRequest, "background import failed: "+err.Error())
			return
		}
		role.Background = body
	}

	created, err := h.store.CreateRole(r.Context(), role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusCreated, toRoleView(created))
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]roleView, 0, len(roles))
	for _, role := range roles {
		items = append(items, toRoleView(role))
	}
	JSON(w, http.StatusOK, items)
}
