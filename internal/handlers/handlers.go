package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/abrezinsky/jackpot/internal/auth"
	"github.com/abrezinsky/jackpot/internal/metrics"
	"github.com/abrezinsky/jackpot/internal/services"
	"github.com/abrezinsky/jackpot/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index *template.Template
}

// Options carries the optional collaborators of the HTTP layer
type Options struct {
	Metrics     *metrics.Collector
	Limiter     *RateLimiter
	PublicURL   string
	CORSOrigins []string
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Lottery      services.LotteryServicer
	History      services.HistoryServicer
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          HTTPLogger
	opts         Options
	templates    *Templates
	staticServer http.Handler
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	lottery services.LotteryServicer,
	history services.HistoryServicer,
	templatesFS fs.FS,
	staticServer http.Handler,
	adminAuth *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
	opts Options,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Lottery:      lottery,
		History:      history,
		Auth:         adminAuth,
		Hub:          hub,
		Log:          log,
		opts:         opts,
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without templates, a hub or
// metrics, for exercising the JSON API
func NewForTesting(lottery services.LotteryServicer, history services.HistoryServicer, adminAuth *auth.Auth, opts Options) *Handlers {
	return &Handlers{
		Lottery: lottery,
		History: history,
		Auth:    adminAuth,
		Log:     NoopHTTPLogger{},
		opts:    opts,
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	funcs := template.FuncMap{"lamports": formatLamports}
	index, err := template.New("index.html").Funcs(funcs).ParseFS(templatesFS, "index.html")
	if err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	return &Templates{Index: index}, nil
}

// formatLamports renders an amount in whole SOL with nine decimals
func formatLamports(v uint64) string {
	return fmt.Sprintf("%d.%09d", v/1_000_000_000, v%1_000_000_000)
}
