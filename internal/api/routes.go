package api

import (
	"warimas-pay/internal/middleware"
	"warimas-pay/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Register mounts the order routes. Authentication middleware must already
// be installed on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/checkout", h.StartCheckout)
		r.Post("/{id}/cancel", h.CancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(utils.RoleAdmin))

			r.Post("/{id}/ship", h.ShipOrder)
			r.Post("/{id}/deliver", h.DeliverOrder)
			r.Post("/{id}/refund", h.RefundOrder)
		})
	})
}
