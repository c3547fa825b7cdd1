package me

import (
	"log/slog"
	"net/http"

	"canalyzer/internal/auth"
	"canalyzer/internal/http_server/handlers"
	resp "canalyzer/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type IdentityProvider interface {
	Me(authorization string) (auth.Identity, error)
}

func New(log *slog.Logger, provider IdentityProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		identity, err := provider.Me(r.Header.Get("Authorization"))
		if err != nil {
			log.Debug("identity lookup rejected", slog.String("error_code", auth.Code(err)))

			handlers.RenderError(w, r, err)

			return
		}

		render.JSON(w, r, resp.OK(identity))
	}
}
