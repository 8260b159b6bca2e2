package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	if h.opts.Metrics != nil {
		r.Use(h.opts.Metrics.Middleware)
	}

	// Long-lived and operational endpoints sit outside the request timeout
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}
	if h.opts.Metrics != nil {
		r.Handle("/metrics", h.opts.Metrics.Handler())
	}
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		// Dashboard
		if h.templates != nil {
			r.Get("/", h.handleIndex)
		}
		if h.staticServer != nil {
			r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   h.corsOrigins(),
				AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
				ExposedHeaders:   []string{"Retry-After"},
				AllowCredentials: len(h.opts.CORSOrigins) > 0,
				MaxAge:           300,
			}))

			// Public API
			r.Get("/status", h.handleStatus)
			r.Get("/participants", h.handleParticipants)
			r.Get("/participants/{identity}", h.handleParticipant)
			r.Get("/participants/{identity}/contributions", h.handleParticipantContributions)
			r.Get("/draws", h.handleListDraws)
			r.Get("/draws/{id}", h.handleGetDraw)
			r.Get("/payouts", h.handleListPayouts)
			r.Get("/entry-qr", h.handleEntryQR)
			r.Group(func(r chi.Router) {
				if h.opts.Limiter != nil {
					r.Use(h.opts.Limiter.Middleware)
				}
				r.Post("/entries", h.handleEnter)
			})

			// Auth
			r.Post("/admin/login", h.handleLogin)
			r.Post("/admin/logout", h.handleLogout)

			// Admin API (protected)
			r.Group(func(r chi.Router) {
				r.Use(h.Auth.RequireAuthAPI)

				r.Post("/admin/tickets", h.handleGrantTickets)
				r.Post("/admin/draw", h.handleDraw)
				r.Post("/admin/payout", h.handlePayout)
				r.Post("/admin/crank", h.handleCrank)
				r.Post("/admin/winners", h.handleSetWinners)
				r.Post("/admin/pause", h.handleTogglePause)
				r.Put("/admin/fees", h.handleUpdateFees)
				r.Put("/admin/timing", h.handleConfigureTiming)
				r.Put("/admin/prize-pool", h.handleSetPrizePool)
				r.Post("/admin/fund", h.handleFundJackpot)
				r.Put("/admin/schedule", h.handleSetSchedule)
			})
		})
	})

	return r
}

func (h *Handlers) corsOrigins() []string {
	if len(h.opts.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return h.opts.CORSOrigins
}
