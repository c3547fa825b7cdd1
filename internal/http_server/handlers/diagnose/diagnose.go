package diagnose

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"canalyzer/internal/http_server/handlers"
	sl "canalyzer/internal/lib/logger"
	"canalyzer/internal/vision"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Diagnoser interface {
	Diagnose(ctx context.Context, img vision.Image) (json.RawMessage, error)
}

// New relays the model's verdict for an uploaded plant photo. A nil
// diagnoser means no provider is configured.
func New(log *slog.Logger, diagnoser Diagnoser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.diagnose.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if diagnoser == nil {
			handlers.RenderCode(w, r, handlers.CodeAIUnavailable, "Image analysis is not configured.")
			return
		}

		img, err := handlers.ReadImage(w, r)
		if err != nil {
			log.Info("rejected upload", sl.Err(err))

			handlers.RenderImageError(w, r, err)

			return
		}

		out, err := diagnoser.Diagnose(r.Context(), img)
		if err != nil {
			handlers.RenderVisionError(w, r, log, err)
			return
		}

		render.JSON(w, r, out)
	}
}
