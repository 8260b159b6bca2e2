package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abrezinsky/jackpot/internal/lottery"
)

const namespace = "jackpot"

// Collector holds the lottery and HTTP metrics on its own registry
type Collector struct {
	registry *prometheus.Registry

	BuildInfo *prometheus.GaugeVec

	EntriesTotal      prometheus.Counter
	TicketsTotal      prometheus.Counter
	ContributionTotal prometheus.Counter
	DrawsTotal        *prometheus.CounterVec
	PayoutsTotal      prometheus.Counter
	PaidOutTotal      *prometheus.CounterVec
	ChainErrorsTotal  prometheus.Counter

	PrizePool      prometheus.Gauge
	CarryOver      prometheus.Gauge
	Participants   prometheus.Gauge
	Tickets        prometheus.Gauge
	RolloverStreak prometheus.Gauge
	FastMode       prometheus.Gauge
	Active         prometheus.Gauge
	NextDrawAt     prometheus.Gauge

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates a Collector with Go and process collectors registered
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		BuildInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information of the jackpot service",
		}, []string{"version"}),

		EntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Total number of accepted entries",
		}),
		TicketsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_issued_total",
			Help:      "Total number of tickets credited",
		}),
		ContributionTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_total",
			Help:      "Sum of contributions converted into tickets, in base units",
		}),
		DrawsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Total number of draws by outcome",
		}, []string{"outcome"}),
		PayoutsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Total number of payouts",
		}),
		PaidOutTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paid_out_total",
			Help:      "Amount paid out by role, in base units",
		}, []string{"role"}),
		ChainErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_sample_errors_total",
			Help:      "Total number of failed chain samples",
		}),

		PrizePool: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prize_pool",
			Help:      "Current prize pool, in base units",
		}),
		CarryOver: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "carry_over",
			Help:      "Current carry-over, in base units",
		}),
		Participants: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants",
			Help:      "Participants in the current round",
		}),
		Tickets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tickets",
			Help:      "Tickets in the current round",
		}),
		RolloverStreak: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rollover_streak",
			Help:      "Consecutive rollovers since the last payout",
		}),
		FastMode: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fast_mode",
			Help:      "1 when the fast interval is in force",
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active",
			Help:      "1 when the lottery accepts entries and draws",
		}),
		NextDrawAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_draw_timestamp_seconds",
			Help:      "Unix time the draw interval next opens",
		}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
	}
}

// Registry returns the registry the collector writes to
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// SetBuildInfo publishes the running version
func (c *Collector) SetBuildInfo(version string) {
	c.BuildInfo.WithLabelValues(version).Set(1)
}

func (c *Collector) EntryRecorded(tickets uint32, contribution uint64) {
	c.EntriesTotal.Inc()
	c.TicketsTotal.Add(float64(tickets))
	c.ContributionTotal.Add(float64(contribution))
}

func (c *Collector) DrawCompleted(outcome lottery.Outcome) {
	c.DrawsTotal.WithLabelValues(outcome.String()).Inc()
}

func (c *Collector) PayoutCompleted(d lottery.Distribution) {
	c.PayoutsTotal.Inc()
	c.PaidOutTotal.WithLabelValues(lottery.RoleMain).Add(float64(d.Main))
	c.PaidOutTotal.WithLabelValues(lottery.RoleMinor).Add(float64(d.MinorPaid))
	c.PaidOutTotal.WithLabelValues(lottery.RoleHouse).Add(float64(d.House))
}

func (c *Collector) ChainSampleFailed() {
	c.ChainErrorsTotal.Inc()
}

// ObserveState refreshes the gauges from s
func (c *Collector) ObserveState(s lottery.State) {
	c.PrizePool.Set(float64(s.PrizePool))
	c.CarryOver.Set(float64(s.CarryOver))
	c.Participants.Set(float64(s.TotalParticipants))
	c.Tickets.Set(float64(s.TotalTickets))
	c.RolloverStreak.Set(float64(s.RolloverStreak))
	c.FastMode.Set(boolGauge(s.FastMode))
	c.Active.Set(boolGauge(s.Active))
	c.NextDrawAt.Set(float64(s.NextDrawAt().Unix()))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Middleware records request counts and latency by route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		c.HTTPRequestsInFlight.Inc()
		defer c.HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(ww.Status())

		c.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		c.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
