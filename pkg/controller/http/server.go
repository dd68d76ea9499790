package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/instaflow/pkg/usecase"
	"github.com/secmon-lab/instaflow/pkg/utils/metrics"
)

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	apiToken string
	metrics  bool
}

type Options func(*Server)

// WithAPIToken requires "Authorization: Bearer <token>" on every /api route
func WithAPIToken(token string) Options {
	return func(s *Server) {
		s.apiToken = token
	}
}

// WithMetrics exposes /metrics
func WithMetrics(enabled bool) Options {
	return func(s *Server) {
		s.metrics = enabled
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(requestMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metrics {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.apiToken != "" {
			r.Use(tokenAuth(s.apiToken))
		}

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.listUsers)
			r.Post("/", s.addUser)
			r.Post("/bulk", s.bulkAddUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getUser)
				r.Patch("/", s.updateUser)
				r.Delete("/", s.deleteUser)
				r.Post("/blacklist", s.blacklistUser)
				r.Post("/unblacklist", s.unblacklistUser)
			})
		})
		r.Get("/stats", s.dashboard)
		r.Get("/export/users.csv", s.exportCSV)

		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.updateSettings)

		r.Get("/reminders", s.listReminders)
		r.Post("/reminders/send", s.sendReminders)

		r.Post("/backup", s.downloadBackup)
		r.Post("/backup/save", s.saveBackup)

		r.Route("/restore", func(r chi.Router) {
			r.Post("/", s.startRestore)
			r.Route("/{sid}", func(r chi.Router) {
				r.Get("/", s.restoreStatus)
				r.Delete("/", s.closeRestore)
				r.Post("/request", s.requestRestore)
				r.Post("/confirm", s.confirmRestore)
				r.Post("/cancel", s.cancelRestore)
			})
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
