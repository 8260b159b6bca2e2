package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/jackpot/internal/auth"
	"github.com/abrezinsky/jackpot/internal/config"
	"github.com/abrezinsky/jackpot/internal/handlers"
	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/metrics"
	"github.com/abrezinsky/jackpot/internal/repository"
	"github.com/abrezinsky/jackpot/internal/scheduler"
	"github.com/abrezinsky/jackpot/internal/services"
	"github.com/abrezinsky/jackpot/internal/websocket"
	"github.com/abrezinsky/jackpot/pkg/chain"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators App does not build from configuration
type Deps struct {
	TemplatesFS fs.FS
	StaticFS    fs.FS
	// Chain overrides the slot source chosen from configuration
	Chain   chain.Client
	Clock   clockwork.Clock
	Version string
}

// App holds all application dependencies
type App struct {
	log       logger.Logger
	cfg       *config.Config
	repo      *repository.Repository
	lottery   *services.LotteryService
	history   *services.HistoryService
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
	limiter   *handlers.RateLimiter
	metrics   *metrics.Collector
	auth      *auth.Auth
	handlers  *handlers.Handlers
	publicURL string
}

// New creates and initializes a new application instance. The lottery is
// created from configuration when the database holds none yet.
func New(ctx context.Context, log logger.Logger, cfg *config.Config, deps Deps) (*App, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a := &App{log: log, cfg: cfg, repo: repo}
	if err := a.build(ctx, deps); err != nil {
		repo.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, deps Deps) error {
	cfg := a.cfg

	client := deps.Chain
	if client == nil {
		var err error
		if client, err = a.chainClient(ctx, deps.Clock); err != nil {
			return err
		}
	}

	a.metrics = metrics.New()
	a.metrics.SetBuildInfo(deps.Version)

	a.lottery = services.NewLotteryService(a.log, a.repo, client, deps.Clock, services.LotteryOptions{
		Admin:             lottery.Identity(cfg.AdminIdentity),
		InitialJackpot:    cfg.InitialJackpot,
		Schedule:          cfg.Schedule(),
		BaseInterval:      cfg.BaseInterval,
		FastInterval:      cfg.FastInterval,
		FastModeThreshold: cfg.FastModeThreshold,
		AutoPayout:        cfg.AutoPayout,
	})
	a.lottery.SetMetrics(a.metrics)
	if _, err := a.lottery.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize lottery: %w", err)
	}
	st, err := a.lottery.State(ctx)
	if err != nil {
		return err
	}

	a.history, err = services.NewHistoryService(a.log, a.repo, services.DefaultDrawCacheLen)
	if err != nil {
		return err
	}

	a.hub = websocket.New(a.log, a.lottery)
	a.lottery.SetBroadcaster(a.hub)

	sched, err := scheduler.New(a.log, deps.Clock, cfg.DrawCron, a.lottery)
	if err != nil {
		return err
	}
	a.scheduler = sched.WithCountdown(a.lottery, a.hub, cfg.CountdownInterval)

	a.limiter = handlers.NewRateLimiter(cfg.EntryRatePerSecond, cfg.EntryBurst)

	// Sessions act as the stored admin, which may differ from the configured
	// one when the database predates a config change.
	a.auth = auth.New(cfg.AdminPassword, st.Admin, deps.Clock)

	a.publicURL = cfg.PublicURL
	if a.publicURL == "" {
		a.publicURL = defaultPublicURL(cfg.ListenAddress, realNetworkProvider{})
	}

	a.handlers, err = handlers.New(
		a.lottery,
		a.history,
		deps.TemplatesFS,
		handlers.NewStaticServer(deps.StaticFS),
		a.auth,
		a.hub,
		a.log,
		handlers.Options{
			Metrics:     a.metrics,
			Limiter:     a.limiter,
			PublicURL:   a.publicURL,
			CORSOrigins: cfg.CORSOrigins,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize handlers: %w", err)
	}
	return nil
}

// chainClient picks the slot source: Solana RPC when configured, otherwise
// a local counter resuming after the last slot a draw consumed.
func (a *App) chainClient(ctx context.Context, clock clockwork.Clock) (chain.Client, error) {
	if a.cfg.SolanaRPCURL != "" {
		a.log.Info("Using Solana RPC slot source", "endpoint", a.cfg.SolanaRPCURL)
		return chain.NewRPCClient(a.cfg.SolanaRPCURL, clock, a.log), nil
	}

	var start uint64
	raw, err := a.repo.GetSetting(ctx, services.SettingChainSlot)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("read %s: %w", services.SettingChainSlot, err)
	}
	if raw != "" {
		if start, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", services.SettingChainSlot, raw, err)
		}
	}
	a.log.Warn("No solana_rpc_url configured; using local slot counter", "start", start)
	return chain.NewLocalClient(start, clock), nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Lottery returns the lottery service
func (a *App) Lottery() *services.LotteryService {
	return a.lottery
}

// Scheduler returns the draw scheduler
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Auth returns the admin authenticator
func (a *App) Auth() *auth.Auth {
	return a.auth
}

// PublicURL is the address printed on entry QR codes
func (a *App) PublicURL() string {
	return a.publicURL
}

// Close performs graceful shutdown of app resources
func (a *App) Close() error {
	return a.repo.Close()
}

// Run serves HTTP and runs the hub, the scheduler and the rate limiter
// janitor until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.ListenAddress, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.hub.Run(ctx) })
	g.Go(func() error { return a.scheduler.Run(ctx) })
	g.Go(func() error { return a.limiter.Run(ctx) })
	g.Go(func() error {
		a.log.Info("Server starting", "addr", ln.Addr().String(), "url", a.publicURL)
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// defaultPublicURL builds a LAN URL from the listen address so QR codes are
// reachable from phones on the same network.
func defaultPublicURL(listenAddr string, provider networkProvider) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://localhost" + listenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = getPreferredIP(provider)
	}
	return "http://" + net.JoinHostPort(host, port)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists network interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access, preferring
// private ranges and falling back to localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
