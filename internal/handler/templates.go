package handler

import (
	"net/http"

	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
)

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r, config.TemplatesPerPage, config.MaxPageSize)
	sceneType := domain.SceneType(r.URL.Query().Get("scene_type"))

	templates, total, err := h.store.ListTemplates(r.Context(), sceneType, page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]templateView, 0, len(templates))
	for _, t := range templates {
		items = append(items, toTemplateView(t))
	}
	JSON(w, http.StatusOK, pageView[templateView]{Items: items, Total: total, Page: page, Size: size})
}

func (h *Handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := pathID(r, "templateID")
	if !ok {
		Error(w, http.StatusBadRequest, "invalid template id")
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), templateID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, toTemplateView(tpl))
}

func (h *Handler) sceneStats(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}
	stats, err := h.scenes.GetStats(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}
