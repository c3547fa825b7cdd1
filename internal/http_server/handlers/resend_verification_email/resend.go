package resendEmail

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
	Email string `json:"email" form:"email"`
}

type VerificationResender interface {
	ResendVerification(ctx context.Context, email string) error
}

// New answers with the same message whether or not the email belongs to an
// unverified account.
func New(log *slog.Logger, resender VerificationResender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendVerificationEmail.New"

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

		if err := resender.ResendVerification(ctx, req.Email); err != nil {
			log.Info("resend failed", slog.String("error_code", auth.Code(err)))

			handlers.RenderError(w, r, err)

			return
		}

		render.JSON(w, r, resp.Message(auth.MsgVerification))
	}
}
