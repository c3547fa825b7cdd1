package register

import (
	"context"
	"log/slog"
	"net/http"

	"canalyzer/internal/auth"
	"canalyzer/internal/http_server/handlers"
	"canalyzer/internal/lib/api/request"
	resp "canalyzer/internal/lib/api/response"
	sl "canalyzer/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type Registrar interface {
	Register(ctx context.Context, email, password string) error
}

func New(log *slog.Logger, registrar Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := request.Decode(w, r, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			handlers.RenderError(w, r, auth.ErrInvalidInput)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := registrar.Register(ctx, req.Email, req.Password); err != nil {
			log.Info("registration failed", slog.String("error_code", auth.Code(err)))

			handlers.RenderError(w, r, err)

			return
		}

		render.JSON(w, r, resp.Message(auth.MsgRegistered))
	}
}
