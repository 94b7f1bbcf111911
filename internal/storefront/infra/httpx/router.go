package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evercart/storefront/internal/storefront/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Put("/session", handler.StartSession)
	r.Delete("/session", handler.EndSession)

	r.Get("/profile", handler.GetProfile)
	r.Get("/products/{id}", handler.GetProduct)

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", handler.StartCheckout)
		r.Get("/{id}", handler.GetCheckout)
		r.Delete("/{id}", handler.AbandonCheckout)
		r.Put("/{id}/items", handler.SetItems)
		r.Put("/{id}/address", handler.SelectAddress)
		r.Post("/{id}/coupon", handler.ApplyCoupon)
		r.Put("/{id}/payment", handler.ChoosePayment)
		r.Post("/{id}/advance", handler.Advance)
		r.Post("/{id}/back", handler.Back)
		r.Get("/{id}/payment/return", handler.PaymentReturn)
		r.Post("/{id}/submit", handler.Submit)
	})

	r.Get("/orders/{id}", handler.GetOrder)
	r.Post("/orders/{id}/cancel", handler.CancelOrder)

	return r
}
