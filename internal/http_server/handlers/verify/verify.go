package verify

import (
	"context"
	"log/slog"
	"net/http"

	"canalyzer/internal/auth"
	"canalyzer/internal/http_server/handlers"
	resp "canalyzer/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type EmailVerifier interface {
	VerifyEmail(ctx context.Context, token string) error
}

func New(log *slog.Logger, verifier EmailVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Warn("missing verification token")

			handlers.RenderError(w, r, auth.ErrInvalidToken)

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlers.RequestTimeout)
		defer cancel()

		if err := verifier.VerifyEmail(ctx, token); err != nil {
			log.Info("verification failed", slog.String("error_code", auth.Code(err)))

			handlers.RenderError(w, r, err)

			return
		}

		render.JSON(w, r, resp.Message(auth.MsgVerified))
	}
}
