package services

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/jackpot/internal/errors"
	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
	"github.com/abrezinsky/jackpot/internal/repository"
	"github.com/abrezinsky/jackpot/pkg/chain"
)

// SettingChainSlot stores the last slot a draw consumed
const SettingChainSlot = "chain_slot"

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastEntry(res lottery.EntryResult)
	BroadcastDraw(d models.DrawRecord)
	BroadcastPayout(p models.PayoutRecord)
	BroadcastStatus(st *Status)
}

// Metrics receives lottery events for instrumentation
type Metrics interface {
	EntryRecorded(tickets uint32, contribution uint64)
	DrawCompleted(outcome lottery.Outcome)
	PayoutCompleted(d lottery.Distribution)
	ChainSampleFailed()
	ObserveState(s lottery.State)
}

type noopMetrics struct{}

func (noopMetrics) EntryRecorded(uint32, uint64)         {}
func (noopMetrics) DrawCompleted(lottery.Outcome)        {}
func (noopMetrics) PayoutCompleted(lottery.Distribution) {}
func (noopMetrics) ChainSampleFailed()                   {}
func (noopMetrics) ObserveState(lottery.State)           {}

// LotteryRepository defines the repository methods needed by LotteryService
type LotteryRepository interface {
	repository.StateRepository
	repository.SettingsRepository
}

// LotteryOptions configures first-start initialization and the crank.
// Zero timing values keep the lottery defaults.
type LotteryOptions struct {
	Admin             lottery.Identity
	InitialJackpot    uint64
	Schedule          lottery.Schedule
	BaseInterval      time.Duration
	FastInterval      time.Duration
	FastModeThreshold uint64
	AutoPayout        bool
}

// LotteryService is the single writer of the lottery state. Every operation
// loads the stored state, applies one pure transition and commits the result
// before the lock is released.
type LotteryService struct {
	log         logger.Logger
	repo        LotteryRepository
	chain       chain.Client
	clock       clockwork.Clock
	opts        LotteryOptions
	metrics     Metrics
	broadcaster Broadcaster

	mu sync.Mutex
}

// NewLotteryService creates a new LotteryService
func NewLotteryService(log logger.Logger, repo LotteryRepository, client chain.Client, clock clockwork.Clock, opts LotteryOptions) *LotteryService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LotteryService{
		log:     log,
		repo:    repo,
		chain:   client,
		clock:   clock,
		opts:    opts,
		metrics: noopMetrics{},
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *LotteryService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetMetrics sets the instrumentation sink
func (s *LotteryService) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// AutoPayout reports whether the crank pays payout-outcome draws immediately
func (s *LotteryService) AutoPayout() bool {
	return s.opts.AutoPayout
}

// Initialize creates the lottery from the configured options when no state
// is stored yet. It reports whether a new lottery was created.
func (s *LotteryService) Initialize(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.LoadState(ctx)
	if err == nil {
		s.metrics.ObserveState(st)
		return false, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return false, errors.Wrap(err, errors.ErrInternal, "load lottery state")
	}

	st, err = lottery.Initialize(s.opts.Admin, s.opts.InitialJackpot, s.clock.Now(), s.opts.Schedule)
	if err != nil {
		return false, err
	}
	if t, ok := s.timingOverrides(); ok {
		if st, err = st.ConfigureTiming(s.opts.Admin, t); err != nil {
			return false, err
		}
	}
	if err := s.repo.SaveState(ctx, st); err != nil {
		return false, errors.Wrap(err, errors.ErrInternal, "save lottery state")
	}

	s.log.Info("Lottery initialized",
		"admin", st.Admin,
		"prize_pool", st.PrizePool,
		"schedule", st.Schedule.Name,
		"base_interval", st.BaseInterval,
		"fast_interval", st.FastInterval)
	s.metrics.ObserveState(st)
	return true, nil
}

func (s *LotteryService) timingOverrides() (lottery.Timing, bool) {
	var t lottery.Timing
	if s.opts.BaseInterval > 0 {
		t.BaseInterval = &s.opts.BaseInterval
	}
	if s.opts.FastInterval > 0 {
		t.FastInterval = &s.opts.FastInterval
	}
	if s.opts.FastModeThreshold > 0 {
		t.FastModeThreshold = &s.opts.FastModeThreshold
	}
	return t, t.BaseInterval != nil || t.FastInterval != nil || t.FastModeThreshold != nil
}

func (s *LotteryService) load(ctx context.Context) (lottery.State, error) {
	st, err := s.repo.LoadState(ctx)
	if stderrors.Is(err, repository.ErrNotFound) {
		return lottery.State{}, ErrNotInitialized
	}
	if err != nil {
		return lottery.State{}, errors.Wrap(err, errors.ErrInternal, "load lottery state")
	}
	return st, nil
}

// ===== Queries =====

// State returns a copy of the stored lottery state
func (s *LotteryService) State(ctx context.Context) (lottery.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Status returns the public status snapshot
func (s *LotteryService) Status(ctx context.Context) (*Status, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return s.status(st), nil
}

func (s *LotteryService) status(st lottery.State) *Status {
	name := ""
	if s.chain != nil {
		name = s.chain.Name()
	}
	return NewStatus(st, s.clock.Now(), name)
}

// Participants returns the current round's ledger in ledger order
func (s *LotteryService) Participants(ctx context.Context) ([]lottery.Entry, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if st.Entries == nil {
		return []lottery.Entry{}, nil
	}
	return st.Entries, nil
}

// Participant returns identity's standing in the current round
func (s *LotteryService) Participant(ctx context.Context, identity string) (*ParticipantInfo, error) {
	p, err := parseIdentity(identity)
	if err != nil {
		return nil, err
	}
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	info := &ParticipantInfo{Participant: p, TotalTickets: st.TotalTickets}
	if e, ok := st.Entry(p); ok {
		info.Entered = true
		info.Tickets = e.Tickets
		info.Contribution = e.Contribution
		info.EnteredAt = e.EnteredAt
		info.ChanceBps = uint64(e.Tickets) * 10_000 / st.TotalTickets
	}
	if st.Winners.Main == p {
		info.PendingRole = lottery.RoleMain
	}
	for _, m := range st.Winners.Minor {
		if m == p {
			info.PendingRole = lottery.RoleMinor
		}
	}
	return info, nil
}

func parseIdentity(identity string) (lottery.Identity, error) {
	if err := chain.ValidateAddress(identity); err != nil {
		return "", ErrInvalidIdentity
	}
	return lottery.Identity(identity), nil
}

// ===== Ledger =====

// Enter converts a contribution into tickets for identity
func (s *LotteryService) Enter(ctx context.Context, identity string, contribution uint64) (*lottery.EntryResult, error) {
	p, err := parseIdentity(identity)
	if err != nil {
		return nil, err
	}
	return s.credit(ctx, "entry", p, contribution, func(st lottery.State, now time.Time) (lottery.State, lottery.EntryResult, error) {
		return st.RecordEntry(p, contribution, now)
	})
}

// GrantTickets credits an explicit ticket count without value conversion.
// Only the admin may grant tickets.
func (s *LotteryService) GrantTickets(ctx context.Context, caller lottery.Identity, identity string, tickets uint32) (*lottery.EntryResult, error) {
	p, err := parseIdentity(identity)
	if err != nil {
		return nil, err
	}
	return s.credit(ctx, "grant", p, 0, func(st lottery.State, now time.Time) (lottery.State, lottery.EntryResult, error) {
		if !lottery.IsAdmin(caller, st.Admin) {
			return st, lottery.EntryResult{}, lottery.ErrUnauthorized
		}
		return st.GrantTickets(p, tickets, now)
	})
}

func (s *LotteryService) credit(ctx context.Context, kind string, p lottery.Identity, amount uint64,
	apply func(lottery.State, time.Time) (lottery.State, lottery.EntryResult, error)) (*lottery.EntryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	next, res, err := apply(st, now)
	if err != nil {
		s.log.Debug("Entry rejected", "kind", kind, "participant", p, "error", err)
		return nil, err
	}

	c := models.Contribution{
		Participant: p,
		Amount:      amount,
		Tickets:     res.TicketsGranted,
		DrawNumber:  next.DrawCount,
		CreatedAt:   now.UTC(),
	}
	if err := s.repo.SaveEntry(ctx, next, c); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "save entry")
	}

	s.log.Info("Entry recorded",
		"kind", kind,
		"participant", p,
		"tickets", res.TicketsGranted,
		"participant_tickets", res.ParticipantTickets,
		"total_tickets", res.TotalTickets)
	s.metrics.EntryRecorded(res.TicketsGranted, amount)
	s.metrics.ObserveState(next)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEntry(res)
	}
	return &res, nil
}

// ===== Draw & Payout =====

// Draw samples the chain and runs a draw. A payout-outcome draw leaves its
// winners pending; call Payout (or let the crank) to settle them.
func (s *LotteryService) Draw(ctx context.Context) (*models.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	_, rec, err := s.draw(ctx, st)
	return rec, err
}

func (s *LotteryService) draw(ctx context.Context, st lottery.State) (lottery.State, *models.DrawRecord, error) {
	if err := st.CheckDraw(s.clock.Now()); err != nil {
		s.log.Debug("Draw rejected", "error", err)
		return st, nil, err
	}

	sample, err := s.chain.Sample(ctx)
	if err != nil {
		s.metrics.ChainSampleFailed()
		s.log.Warn("Chain sample failed", "source", s.chain.Name(), "error", err)
		return st, nil, errors.Unavailable("chain sample failed", err)
	}

	in := lottery.RandomnessInput{Slot: sample.Slot, Timestamp: sample.Time.Unix()}
	next, res, err := st.Draw(in)
	if err != nil {
		s.log.Debug("Draw rejected", "slot", sample.Slot, "error", err)
		return st, nil, err
	}

	rec := models.DrawRecord{
		ID:           uuid.NewString(),
		DrawNumber:   res.DrawNumber,
		Slot:         sample.Slot,
		Seed:         res.Seed,
		BallCount:    res.BallCount,
		Outcome:      res.Outcome.String(),
		MainWinner:   res.Winners.Main,
		MinorWinners: res.Winners.Minor,
		Participants: res.Participants,
		Tickets:      res.Tickets,
		PrizePool:    st.PrizePool + st.CarryOver,
		Extension:    res.Extension,
		NextDrawAt:   res.NextDrawAt,
		DrawnAt:      res.DrawnAt,
	}
	if err := s.repo.SaveDraw(ctx, next, rec); err != nil {
		return st, nil, errors.Wrap(err, errors.ErrInternal, "save draw")
	}
	if err := s.repo.SetSetting(ctx, SettingChainSlot, strconv.FormatUint(sample.Slot, 10)); err != nil {
		s.log.Warn("Failed to record chain slot", "slot", sample.Slot, "error", err)
	}

	s.log.Info("Draw completed",
		"draw", rec.DrawNumber,
		"slot", rec.Slot,
		"seed", rec.Seed,
		"ball_count", rec.BallCount,
		"outcome", rec.Outcome,
		"main_winner", rec.MainWinner,
		"minor_winners", len(rec.MinorWinners),
		"next_draw_at", rec.NextDrawAt)
	s.metrics.DrawCompleted(res.Outcome)
	s.metrics.ObserveState(next)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastDraw(rec)
	}
	return next, &rec, nil
}

// Payout settles the pending winners and starts a new round
func (s *LotteryService) Payout(ctx context.Context) (*models.PayoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	_, rec, err := s.payout(ctx, st)
	return rec, err
}

func (s *LotteryService) payout(ctx context.Context, st lottery.State) (lottery.State, *models.PayoutRecord, error) {
	next, res, err := st.Payout(s.clock.Now())
	if err != nil {
		s.log.Debug("Payout rejected", "error", err)
		return st, nil, err
	}

	rec := models.PayoutRecord{
		ID:           uuid.NewString(),
		DrawNumber:   res.DrawNumber,
		Seed:         res.Seed,
		Schedule:     res.Schedule,
		Distribution: res.Distribution,
		Payments:     res.Payments,
		PaidAt:       res.PaidAt,
	}
	if err := s.repo.SavePayout(ctx, next, rec); err != nil {
		return st, nil, errors.Wrap(err, errors.ErrInternal, "save payout")
	}

	s.log.Info("Payout completed",
		"draw", rec.DrawNumber,
		"total", res.Distribution.Total,
		"main", res.Distribution.Main,
		"minor_each", res.Distribution.MinorEach,
		"house", res.Distribution.House,
		"next_pool", res.NextPool)
	s.metrics.PayoutCompleted(res.Distribution)
	s.metrics.ObserveState(next)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPayout(rec)
	}
	return next, &rec, nil
}

// RunCrank is the scheduler's entry point. It settles a pending payout left
// by an earlier draw, then draws when every gate is open. With AutoPayout on,
// a payout-outcome draw is settled in the same call.
func (s *LotteryService) RunCrank(ctx context.Context) (*CrankResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result := &CrankResult{}

	if s.opts.AutoPayout && st.PendingPayout() {
		next, rec, err := s.payout(ctx, st)
		if err != nil {
			return result, err
		}
		st = next
		result.Payout = rec
	}

	if err := st.CheckDraw(s.clock.Now()); err != nil {
		result.Skipped = err.Error()
		return result, nil
	}

	next, drawRec, err := s.draw(ctx, st)
	if err != nil {
		return result, err
	}
	result.Draw = drawRec

	if s.opts.AutoPayout && next.PendingPayout() {
		_, payRec, err := s.payout(ctx, next)
		if err != nil {
			return result, err
		}
		result.Payout = payRec
	}
	return result, nil
}

// ===== Admin =====

func (s *LotteryService) applyAdmin(ctx context.Context, action string, apply func(lottery.State) (lottery.State, error)) (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next, err := apply(st)
	if err != nil {
		s.log.Debug("Admin action rejected", "action", action, "error", err)
		return nil, err
	}
	if err := s.repo.SaveState(ctx, next); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "save lottery state")
	}

	s.log.Info("Admin action applied", "action", action)
	s.metrics.ObserveState(next)
	status := s.status(next)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatus(status)
	}
	return status, nil
}

// TogglePause flips the active flag
func (s *LotteryService) TogglePause(ctx context.Context, caller lottery.Identity) (*Status, error) {
	return s.applyAdmin(ctx, "toggle_pause", func(st lottery.State) (lottery.State, error) {
		return st.TogglePause(caller)
	})
}

// UpdateFees replaces the accumulated fee counter
func (s *LotteryService) UpdateFees(ctx context.Context, caller lottery.Identity, total uint64) (*Status, error) {
	return s.applyAdmin(ctx, "update_fees", func(st lottery.State) (lottery.State, error) {
		return st.UpdateFees(caller, total)
	})
}

// ConfigureTiming updates any of the interval settings
func (s *LotteryService) ConfigureTiming(ctx context.Context, caller lottery.Identity, t lottery.Timing) (*Status, error) {
	return s.applyAdmin(ctx, "configure_timing", func(st lottery.State) (lottery.State, error) {
		return st.ConfigureTiming(caller, t)
	})
}

// SetPrizePool replaces the prize pool
func (s *LotteryService) SetPrizePool(ctx context.Context, caller lottery.Identity, amount uint64) (*Status, error) {
	return s.applyAdmin(ctx, "set_prize_pool", func(st lottery.State) (lottery.State, error) {
		return st.SetPrizePool(caller, amount)
	})
}

// FundJackpot adds to the prize pool
func (s *LotteryService) FundJackpot(ctx context.Context, caller lottery.Identity, amount uint64) (*Status, error) {
	return s.applyAdmin(ctx, "fund_jackpot", func(st lottery.State) (lottery.State, error) {
		return st.FundJackpot(caller, amount)
	})
}

// SetSchedule switches the payout schedule by name
func (s *LotteryService) SetSchedule(ctx context.Context, caller lottery.Identity, name string) (*Status, error) {
	sc, ok := lottery.ScheduleByName(name)
	if !ok {
		return nil, ErrUnknownSchedule
	}
	return s.applyAdmin(ctx, "set_schedule", func(st lottery.State) (lottery.State, error) {
		return st.SetSchedule(caller, sc)
	})
}

// SetWinners overrides the pending winners
func (s *LotteryService) SetWinners(ctx context.Context, caller lottery.Identity, main string, minor []string) (*Status, error) {
	w := lottery.Winners{Main: lottery.Identity(main)}
	for _, m := range minor {
		w.Minor = append(w.Minor, lottery.Identity(m))
	}
	return s.applyAdmin(ctx, "set_winners", func(st lottery.State) (lottery.State, error) {
		return st.SetWinners(caller, w)
	})
}
