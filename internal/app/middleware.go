package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/observability"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 300
	defaultLoginLimit     = 10
)

// MiddlewareConfig carries what the page middleware needs.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// MiddlewareStack returns the chain every page route runs through, outermost first.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		withSession(cfg.Logger, cfg.SessionManager),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout(cfg.Config)),
		secureHeaders(cfg.Logger, cfg.Config),
		middleware.Compress(5),
		httprate.Limit(pageRateLimit(cfg.Config), time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		requireCSRF(cfg.Logger, cfg.CSRFManager),
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return chain
}

// withSession binds the operator session to the request. The session is
// saved to Redis and its cookie issued when the handler first writes.
func withSession(logger *slog.Logger, sessions *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			if err != nil {
				logger.Error("load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			next.ServeHTTP(&sessionWriter{ResponseWriter: w, r: r, sess: sess, sessions: sessions, logger: logger}, r)
		})
	}
}

// sessionWriter persists the session once, ahead of the status line, so
// redirects issued by handlers still carry the cookie and pending flash.
type sessionWriter struct {
	http.ResponseWriter
	r        *http.Request
	sess     *shared.Session
	sessions *shared.SessionManager
	logger   *slog.Logger
	saved    bool
}

func (w *sessionWriter) WriteHeader(status int) {
	if !w.saved {
		w.saved = true
		if err := w.sessions.Commit(w.r.Context(), w.ResponseWriter, w.r, w.sess); err != nil {
			w.logger.Error("save session", slog.String("path", w.r.URL.Path), slog.Any("error", err))
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(data []byte) (int, error) {
	if !w.saved {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// requireCSRF rejects state-changing requests whose token, taken from the form
// or the request header, does not match the session.
func requireCSRF(logger *slog.Logger, csrf *shared.CSRFManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			token := r.PostFormValue(shared.CSRFFormField)
			if token == "" {
				token = r.Header.Get(shared.CSRFHeader)
			}
			sess := shared.SessionFromContext(r.Context())
			if err := csrf.VerifyToken(r.Context(), sess, token); err != nil {
				logger.Warn("csrf rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secureHeaders(logger *slog.Logger, cfg *Config) func(http.Handler) http.Handler {
	headers := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg != nil && cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := headers.Process(w, r); err != nil {
				logger.Warn("request blocked by security headers", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestTimeout(cfg *Config) time.Duration {
	if cfg != nil && cfg.AppRequestTimeout > 0 {
		return cfg.AppRequestTimeout
	}
	return defaultRequestTimeout
}

func pageRateLimit(cfg *Config) int {
	if cfg != nil && cfg.RateLimit > 0 {
		return cfg.RateLimit
	}
	return defaultRateLimit
}

// LoginRateLimit throttles credential attempts per client address.
func LoginRateLimit(cfg *Config) func(http.Handler) http.Handler {
	limit := defaultLoginLimit
	if cfg != nil && cfg.LoginRateLimit > 0 {
		limit = cfg.LoginRateLimit
	}
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Demasiados intentos. Espere un minuto.", http.StatusTooManyRequests)
		}),
	)
}
