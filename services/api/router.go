package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Post("/authenticate", a.handleAuthenticate)
		r.Get("/claim", a.handleClaim)
		r.Post("/reply", a.handleReply)
		r.Get("/get-replies", a.handleGetReplies)
		r.Post("/create-token", a.handleCreateToken)
	})

	return r, nil
}
