package ripeness

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

type RipenessAssessor interface {
	Ripeness(ctx context.Context, img vision.Image, preference string) (json.RawMessage, error)
}

func New(log *slog.Logger, assessor RipenessAssessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ripeness.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if assessor == nil {
			handlers.RenderCode(w, r, handlers.CodeAIUnavailable, "Image analysis is not configured.")
			return
		}

		img, err := handlers.ReadImage(w, r)
		if err != nil {
			log.Info("rejected upload", sl.Err(err))

			handlers.RenderImageError(w, r, err)

			return
		}

		preference := r.FormValue("preference")
		if preference == "" {
			preference = vision.DefaultPreference
		}

		out, err := assessor.Ripeness(r.Context(), img, preference)
		if err != nil {
			handlers.RenderVisionError(w, r, log, err)
			return
		}

		render.JSON(w, r, out)
	}
}
