package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", c.healthz)
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", c.createRoom)
			r.Get("/{room-id}", c.getRoom)
		})
		r.Route("/ws", func(r chi.Router) {
			r.Get("/room/{room-id}", c.joinRoom)
		})
	})

	return r
}
