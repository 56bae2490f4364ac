package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetOrder)
			r.Post("/items", handler.AddItem)
			r.Delete("/items/{lineID}", handler.RemoveItem)
			r.Post("/confirm", handler.ConfirmOrder)
			r.Post("/cancel", handler.CancelOrder)
		})
	})

	return r
}
