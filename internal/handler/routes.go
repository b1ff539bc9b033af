package handler

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the scene API onto the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/roles", func(r chi.Router) {
			r.Get("/", h.listRoles)
			r.Post("/", h.createRole)
		})

		r.Route("/scene", func(r chi.Router) {
			r.Get("/templates", h.listTemplates)
			r.Get("/templates/{templateID}", h.getTemplate)
			r.Get("/stats", h.sceneStats)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.createSession)
				r.Get("/", h.listSessions)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", h.getSession)
					r.Put("/", h.updateSession)
					r.Post("/end", h.endSession)
					r.Post("/pause", h.pauseSession)
					r.Post("/resume", h.resumeSession)
					r.Post("/archive", h.archiveSession)

					r.Get("/participants", h.listParticipants)
					r.Post("/participants", h.addParticipant)
					r.Delete("/participants/{participantID}", h.removeParticipant)

					r.Get("/messages", h.listMessages)
					r.Post("/messages", h.sendMessage)
				})
			})
		})
	})
}
