package httpserver

import (
	"log/slog"
	"net/http"

	"canalyzer/internal/http_server/handlers/diagnose"
	"canalyzer/internal/http_server/handlers/health"
	"canalyzer/internal/http_server/handlers/login"
	"canalyzer/internal/http_server/handlers/me"
	"canalyzer/internal/http_server/handlers/register"
	resendEmail "canalyzer/internal/http_server/handlers/resend_verification_email"
	"canalyzer/internal/http_server/handlers/ripeness"
	"canalyzer/internal/http_server/handlers/root"
	"canalyzer/internal/http_server/handlers/verify"
	"canalyzer/internal/middleware/cors"
	rateLimit "canalyzer/internal/middleware/ratelimit"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type Account interface {
	register.Registrar
	verify.EmailVerifier
	login.Authenticator
	me.IdentityProvider
	resendEmail.VerificationResender
}

type Vision interface {
	diagnose.Diagnoser
	ripeness.RipenessAssessor
}

type Options struct {
	AllowedOrigins []string
	RateLimit      bool
}

// NewRouter wires every endpoint. analyzer may be nil, in which case the
// image routes report AI_UNAVAILABLE.
func NewRouter(log *slog.Logger, account Account, analyzer Vision, opts Options) *chi.Mux {
	var (
		diagnoser diagnose.Diagnoser
		assessor  ripeness.RipenessAssessor
	)
	if analyzer != nil {
		diagnoser = analyzer
		assessor = analyzer
	}

	limit := func(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		if !opts.RateLimit {
			return func(next http.Handler) http.Handler { return next }
		}
		return mw
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(opts.AllowedOrigins))

	r.Get("/", root.New())
	r.Get("/health", health.New())

	r.Route("/auth", func(r chi.Router) {
		r.With(limit(rateLimit.Register())).Post("/register", register.New(log, account))
		r.With(limit(rateLimit.Verify())).Get("/verify-email", verify.New(log, account))
		r.With(limit(rateLimit.Login())).Post("/login", login.New(log, account))
		r.Get("/me", me.New(log, account))
		r.With(limit(rateLimit.ResendVerificationEmail())).Post("/resend-verification", resendEmail.New(log, account))
	})

	r.Group(func(r chi.Router) {
		r.Use(limit(rateLimit.Vision()))

		r.Post("/diagnose", diagnose.New(log, diagnoser))
		r.Post("/ripeness", ripeness.New(log, assessor))
	})

	return r
}
