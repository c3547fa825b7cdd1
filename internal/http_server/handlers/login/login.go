package login

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

const tokenType = "bearer"

type Request struct {
	Email      string       `json:"email" form:"email"`
	Password   string       `json:"password" form:"password"`
	RememberMe request.Flag `json:"remember_me" form:"remember_me"`
}

type Data struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string, remember bool) (string, error)
}

func New(log *slog.Logger, authenticator Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		token, err := authenticator.Login(ctx, req.Email, req.Password, req.RememberMe.Bool())
		if err != nil {
			log.Info("login failed", slog.String("error_code", auth.Code(err)))

			handlers.RenderError(w, r, err)

			return
		}

		render.JSON(w, r, resp.OK(Data{
			AccessToken: token,
			TokenType:   tokenType,
		}))
	}
}
