package reconcile

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the finance endpoints under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/finance", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/trend", h.Trend)
		r.Get("/orders", h.OrderBalances)
		r.Post("/carry-forward", h.CarryForward)
	})
}
