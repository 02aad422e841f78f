package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pocamarket/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", handler(s.getV1Sales))
			r.Post("/", handler(s.postV1Sales))
			r.Get("/{id}", handler(s.getV1Sale))
			r.Post("/{id}/order", handler(s.postV1SaleOrder))
			r.Get("/cards/{cardId}/cheapest", handler(s.getV1CheapestSale))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", handler(s.getV1Users))
			r.Post("/", handler(s.postV1Users))
		})

		r.Get("/photocards/{id}", handler(s.getV1PhotoCard))
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, toFailure(err), errorOptions(err)...)
		}
	}
}
