package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	apperrors "github.com/abrezinsky/jackpot/internal/errors"
	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
	"github.com/abrezinsky/jackpot/internal/repository"
	"github.com/abrezinsky/jackpot/internal/repository/mock"
	"github.com/abrezinsky/jackpot/internal/services"
	"github.com/abrezinsky/jackpot/internal/testutil"
	"github.com/abrezinsky/jackpot/pkg/chain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// recorder captures broadcasts and metric events
type recorder struct {
	mu           sync.Mutex
	entries      []lottery.EntryResult
	draws        []models.DrawRecord
	payouts      []models.PayoutRecord
	statuses     []*services.Status
	chainErrors  int
	observations int
}

func (r *recorder) BroadcastEntry(res lottery.EntryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, res)
}

func (r *recorder) BroadcastDraw(d models.DrawRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, d)
}

func (r *recorder) BroadcastPayout(p models.PayoutRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts = append(r.payouts, p)
}

func (r *recorder) BroadcastStatus(st *services.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
}

func (r *recorder) EntryRecorded(uint32, uint64)         {}
func (r *recorder) DrawCompleted(lottery.Outcome)        {}
func (r *recorder) PayoutCompleted(lottery.Distribution) {}

func (r *recorder) ChainSampleFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chainErrors++
}

func (r *recorder) ObserveState(lottery.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations++
}

type fixture struct {
	svc    *services.LotteryService
	repo   repository.FullRepository
	chain  *chain.MockClient
	clock  *clockwork.FakeClock
	events *recorder
	admin  lottery.Identity
}

func newFixture(t *testing.T, autoPayout bool) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, testutil.NewTestRepository(t), autoPayout)
}

func newFixtureWithRepo(t *testing.T, repo repository.FullRepository, autoPayout bool) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	client := chain.NewMockClient(chain.WithTime(clock.Now))
	admin := lottery.Identity(solana.NewWallet().PublicKey().String())

	svc := services.NewLotteryService(logger.New(), repo, client, clock, services.LotteryOptions{
		Admin:          admin,
		InitialJackpot: 1_000_000_000,
		Schedule:       lottery.CanonicalSchedule,
		AutoPayout:     autoPayout,
	})
	events := &recorder{}
	svc.SetBroadcaster(events)
	svc.SetMetrics(events)

	if _, err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return &fixture{svc: svc, repo: repo, chain: client, clock: clock, events: events, admin: admin}
}

func wallet() string {
	return solana.NewWallet().PublicKey().String()
}

// fill enters n fresh wallets at the minimum contribution
func (f *fixture) fill(t *testing.T, n int) []string {
	t.Helper()
	players := make([]string, n)
	for i := range players {
		players[i] = wallet()
		if _, err := f.svc.Enter(context.Background(), players[i], lottery.MinContribution); err != nil {
			t.Fatalf("Enter failed: %v", err)
		}
	}
	return players
}

// ready fills the round and advances past the base interval
func (f *fixture) ready(t *testing.T) []string {
	t.Helper()
	players := f.fill(t, lottery.MinParticipants)
	f.clock.Advance(lottery.DefaultBaseInterval)
	return players
}

// queue scripts the next chain slot so the coming draw lands on want. An
// even timestamp cancels the slot out of the outcome parity, so the clock
// is nudged forward a second at a time until some slot fits.
func (f *fixture) queue(t *testing.T, want lottery.Outcome) {
	t.Helper()
	st, err := f.svc.State(context.Background())
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	for step := 0; step < 60; step++ {
		now := f.clock.Now().Unix()
		for slot := uint64(1); slot < 100; slot++ {
			seed := lottery.DeriveSeed(lottery.RandomnessInput{Slot: slot, Timestamp: now}, st.TotalParticipants, st.DrawCount)
			if lottery.OutcomeFor(lottery.BallCount(seed)) == want {
				f.chain.QueueSlots(slot)
				return
			}
		}
		f.clock.Advance(time.Second)
	}
	t.Fatalf("no slot produces %s", want)
}

// ===== Initialize =====

func TestLotteryService_Initialize(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	created, err := f.svc.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if created {
		t.Error("expected second Initialize to keep the stored lottery")
	}

	st, err := f.svc.State(ctx)
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if st.Admin != f.admin || st.PrizePool != 1_000_000_000 || !st.Active {
		t.Errorf("unexpected initial state %+v", st)
	}
	if !st.LastDrawTime.Equal(t0) {
		t.Errorf("expected last draw time %v, got %v", t0, st.LastDrawTime)
	}
}

func TestLotteryService_InitializeTimingOverrides(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewLotteryService(logger.New(), repo, chain.NewMockClient(), clockwork.NewFakeClockAt(t0), services.LotteryOptions{
		Admin:             "admin",
		InitialJackpot:    5,
		Schedule:          lottery.Legacy68Schedule,
		BaseInterval:      time.Hour,
		FastModeThreshold: 10,
	})

	created, err := svc.Initialize(context.Background())
	if err != nil || !created {
		t.Fatalf("expected lottery to be created, got %v (%v)", created, err)
	}
	st, _ := svc.State(context.Background())
	if st.BaseInterval != time.Hour || st.FastInterval != lottery.DefaultFastInterval || st.FastModeThreshold != 10 {
		t.Errorf("timing overrides not applied: %+v", st)
	}
	if st.Schedule.Name != lottery.Legacy68Schedule.Name {
		t.Errorf("expected legacy schedule, got %s", st.Schedule.Name)
	}
}

func TestLotteryService_InitializeInvalidJackpot(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewLotteryService(logger.New(), repo, chain.NewMockClient(), nil, services.LotteryOptions{
		Admin:    "admin",
		Schedule: lottery.CanonicalSchedule,
	})

	if _, err := svc.Initialize(context.Background()); !errors.Is(err, lottery.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLotteryService_NotInitialized(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewLotteryService(logger.New(), repo, chain.NewMockClient(), nil, services.LotteryOptions{})

	if _, err := svc.Status(context.Background()); err != services.ErrNotInitialized {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

// ===== Entries =====

func TestLotteryService_Enter(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	player := wallet()

	res, err := f.svc.Enter(ctx, player, lottery.MidContribution)
	if err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if res.TicketsGranted != 4 || !res.NewParticipant {
		t.Errorf("unexpected entry result %+v", res)
	}

	res, err = f.svc.Enter(ctx, player, lottery.MinContribution)
	if err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if res.ParticipantTickets != 5 || res.NewParticipant {
		t.Errorf("expected repeat entry to accumulate, got %+v", res)
	}

	info, err := f.svc.Participant(ctx, player)
	if err != nil {
		t.Fatalf("Participant failed: %v", err)
	}
	if !info.Entered || info.Tickets != 5 || info.ChanceBps != 10_000 {
		t.Errorf("unexpected participant info %+v", info)
	}
	if len(f.events.entries) != 2 {
		t.Errorf("expected 2 entry broadcasts, got %d", len(f.events.entries))
	}
}

func TestLotteryService_EnterRejections(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.svc.Enter(ctx, "not-a-wallet", lottery.MinContribution); err != services.ErrInvalidIdentity {
		t.Errorf("expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := f.svc.Enter(ctx, wallet(), lottery.MinContribution-1); !errors.Is(err, lottery.ErrInsufficientValue) {
		t.Errorf("expected ErrInsufficientValue, got %v", err)
	}

	if _, err := f.svc.TogglePause(ctx, f.admin); err != nil {
		t.Fatalf("TogglePause failed: %v", err)
	}
	if _, err := f.svc.Enter(ctx, wallet(), lottery.MinContribution); !errors.Is(err, lottery.ErrLotteryInactive) {
		t.Errorf("expected ErrLotteryInactive, got %v", err)
	}

	st, _ := f.svc.State(ctx)
	if st.TotalParticipants != 0 {
		t.Errorf("rejected entries changed the ledger: %d participants", st.TotalParticipants)
	}
}

func TestLotteryService_GrantTickets(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	player := wallet()

	if _, err := f.svc.GrantTickets(ctx, "someone-else", player, 3); !errors.Is(err, lottery.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	res, err := f.svc.GrantTickets(ctx, f.admin, player, 3)
	if err != nil {
		t.Fatalf("GrantTickets failed: %v", err)
	}
	if res.ParticipantTickets != 3 || res.Contribution != 0 {
		t.Errorf("unexpected grant result %+v", res)
	}

	contribs, err := f.repo.ListContributions(ctx, lottery.Identity(player), 10)
	if err != nil {
		t.Fatalf("ListContributions failed: %v", err)
	}
	if len(contribs) != 1 || contribs[0].Amount != 0 || contribs[0].Tickets != 3 {
		t.Errorf("unexpected contribution log %+v", contribs)
	}
}

func TestLotteryService_EnterSaveError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	f := newFixtureWithRepo(t, repo, false)
	repo.SaveEntryError = errors.New("database error")

	if _, err := f.svc.Enter(context.Background(), wallet(), lottery.MinContribution); err == nil {
		t.Fatal("expected error from Enter, got nil")
	}
	if len(f.events.entries) != 0 {
		t.Error("failed entry was broadcast")
	}
}

// ===== Draw & Payout =====

func TestLotteryService_DrawTooEarlySkipsChain(t *testing.T) {
	f := newFixture(t, false)
	f.fill(t, lottery.MinParticipants)

	_, err := f.svc.Draw(context.Background())
	if !errors.Is(err, lottery.ErrDrawTooEarly) {
		t.Errorf("expected ErrDrawTooEarly, got %v", err)
	}
	if f.chain.Calls() != 0 {
		t.Errorf("chain sampled for a gated draw: %d calls", f.chain.Calls())
	}
}

func TestLotteryService_DrawRollover(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.ready(t)
	f.queue(t, lottery.OutcomeRollover)

	rec, err := f.svc.Draw(ctx)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if rec.Outcome != "rollover" || rec.BallCount%2 != 0 || rec.MainWinner != "" {
		t.Errorf("unexpected rollover record %+v", rec)
	}
	if rec.Extension != lottery.OddRolloverExtension {
		t.Errorf("expected first rollover to extend by %v, got %v", lottery.OddRolloverExtension, rec.Extension)
	}

	st, _ := f.svc.State(ctx)
	if st.RolloverStreak != 1 || st.LastSeed != 0 || st.TotalParticipants != lottery.MinParticipants {
		t.Errorf("unexpected state after rollover %+v", st)
	}
	if !st.LastDrawTime.Equal(f.clock.Now().Truncate(time.Second).Add(lottery.OddRolloverExtension)) {
		t.Errorf("unexpected last draw time %v", st.LastDrawTime)
	}

	if _, err := f.svc.Payout(ctx); !errors.Is(err, lottery.ErrPayoutNotAllowed) {
		t.Errorf("expected ErrPayoutNotAllowed after rollover, got %v", err)
	}

	slot, err := f.repo.GetSetting(ctx, services.SettingChainSlot)
	if err != nil || slot == "" {
		t.Errorf("expected chain slot to be recorded, got %q (%v)", slot, err)
	}
}

func TestLotteryService_DrawAndPayout(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.ready(t)
	f.queue(t, lottery.OutcomePayout)

	rec, err := f.svc.Draw(ctx)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if rec.Outcome != "payout" || rec.MainWinner == "" || rec.ID == "" {
		t.Fatalf("unexpected payout draw %+v", rec)
	}

	status, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.PendingPayout || status.Winners.Main != rec.MainWinner {
		t.Errorf("expected pending winners in status, got %+v", status)
	}

	info, err := f.svc.Participant(ctx, string(rec.MainWinner))
	if err != nil {
		t.Fatalf("Participant failed: %v", err)
	}
	if info.PendingRole != lottery.RoleMain {
		t.Errorf("expected main role, got %q", info.PendingRole)
	}

	payout, err := f.svc.Payout(ctx)
	if err != nil {
		t.Fatalf("Payout failed: %v", err)
	}
	d := payout.Distribution
	if d.Total != 1_000_000_000 || d.Main != 500_000_000 {
		t.Errorf("unexpected distribution %+v", d)
	}
	if d.Main+d.MinorPaid+d.House+d.CarryOver+d.Unallocated != d.Total {
		t.Errorf("distribution does not add up: %+v", d)
	}
	if payout.Payments[0].Recipient != rec.MainWinner {
		t.Errorf("expected main payment to %s, got %+v", rec.MainWinner, payout.Payments[0])
	}

	st, _ := f.svc.State(ctx)
	if st.TotalParticipants != 0 || st.TotalTickets != 0 || st.PrizePool != 0 || st.DrawCount != 1 {
		t.Errorf("expected reset after payout, got %+v", st)
	}
	if _, err := f.svc.Payout(ctx); !errors.Is(err, lottery.ErrNoWinners) {
		t.Errorf("expected ErrNoWinners on second payout, got %v", err)
	}
	if len(f.events.draws) != 1 || len(f.events.payouts) != 1 {
		t.Errorf("expected one draw and one payout broadcast, got %d/%d", len(f.events.draws), len(f.events.payouts))
	}
}

func TestLotteryService_DrawChainUnavailable(t *testing.T) {
	f := newFixture(t, false)
	f.ready(t)
	f.chain.SetSampleError(errors.New("rpc down"))

	_, err := f.svc.Draw(context.Background())
	if apperrors.KindOf(err) != apperrors.ErrUnavailable {
		t.Errorf("expected unavailable error, got %v", err)
	}
	if f.events.chainErrors != 1 {
		t.Errorf("expected one chain failure event, got %d", f.events.chainErrors)
	}

	st, _ := f.svc.State(context.Background())
	if st.DrawCount != 0 {
		t.Errorf("failed draw advanced the draw count to %d", st.DrawCount)
	}
}

func TestLotteryService_DrawSaveError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	f := newFixtureWithRepo(t, repo, false)
	f.ready(t)
	dbErr := errors.New("database error")
	repo.SaveDrawError = dbErr

	_, err := f.svc.Draw(context.Background())
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected the repository error to be wrapped, got %v", err)
	}
	if apperrors.KindOf(err) != apperrors.ErrInternal {
		t.Errorf("expected internal error kind, got %d", apperrors.KindOf(err))
	}
	repo.SaveDrawError = nil

	st, _ := f.svc.State(context.Background())
	if st.DrawCount != 0 || st.BallCount != 0 {
		t.Errorf("state changed by a failed commit: %+v", st)
	}
}

// ===== Crank =====

func TestLotteryService_RunCrankSkips(t *testing.T) {
	f := newFixture(t, true)
	f.fill(t, 3)
	f.clock.Advance(lottery.DefaultBaseInterval)

	res, err := f.svc.RunCrank(context.Background())
	if err != nil {
		t.Fatalf("RunCrank failed: %v", err)
	}
	if res.Draw != nil || res.Skipped == "" {
		t.Errorf("expected crank to skip with 3 participants, got %+v", res)
	}
}

func TestLotteryService_RunCrankAutoPayout(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.ready(t)
	f.queue(t, lottery.OutcomePayout)

	res, err := f.svc.RunCrank(ctx)
	if err != nil {
		t.Fatalf("RunCrank failed: %v", err)
	}
	if res.Draw == nil || res.Payout == nil {
		t.Fatalf("expected draw and payout, got %+v", res)
	}
	if res.Payout.Seed != res.Draw.Seed {
		t.Errorf("payout seed %d does not match draw seed %d", res.Payout.Seed, res.Draw.Seed)
	}

	st, _ := f.svc.State(ctx)
	if st.PendingPayout() || st.TotalParticipants != 0 {
		t.Errorf("expected settled round, got %+v", st)
	}
}

func TestLotteryService_RunCrankWithoutAutoPayout(t *testing.T) {
	f := newFixture(t, false)
	f.ready(t)
	f.queue(t, lottery.OutcomePayout)

	res, err := f.svc.RunCrank(context.Background())
	if err != nil {
		t.Fatalf("RunCrank failed: %v", err)
	}
	if res.Draw == nil || res.Payout != nil {
		t.Errorf("expected draw without payout, got %+v", res)
	}
	if f.svc.AutoPayout() {
		t.Error("expected AutoPayout off")
	}
}

// ===== Admin =====

func TestLotteryService_AdminSetters(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	status, err := f.svc.FundJackpot(ctx, f.admin, 500)
	if err != nil {
		t.Fatalf("FundJackpot failed: %v", err)
	}
	if status.PrizePool != 1_000_000_500 {
		t.Errorf("expected funded pool, got %d", status.PrizePool)
	}

	if status, err = f.svc.SetPrizePool(ctx, f.admin, 42); err != nil || status.PrizePool != 42 {
		t.Errorf("SetPrizePool: got %v (%v)", status, err)
	}

	if status, err = f.svc.UpdateFees(ctx, f.admin, lottery.DefaultFastModeThreshold); err != nil {
		t.Fatalf("UpdateFees failed: %v", err)
	}
	if status.ActiveInterval != int64(lottery.DefaultFastInterval/time.Second) {
		t.Errorf("expected fast interval after fee update, got %ds", status.ActiveInterval)
	}

	base := 2 * time.Hour
	if status, err = f.svc.ConfigureTiming(ctx, f.admin, lottery.Timing{BaseInterval: &base}); err != nil {
		t.Fatalf("ConfigureTiming failed: %v", err)
	}

	if _, err := f.svc.SetSchedule(ctx, f.admin, "nope"); err != services.ErrUnknownSchedule {
		t.Errorf("expected ErrUnknownSchedule, got %v", err)
	}
	if status, err = f.svc.SetSchedule(ctx, f.admin, lottery.Legacy68Schedule.Name); err != nil || status.Schedule != lottery.Legacy68Schedule.Name {
		t.Errorf("SetSchedule: got %v (%v)", status, err)
	}

	if _, err := f.svc.FundJackpot(ctx, "intruder", 1); !errors.Is(err, lottery.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if len(f.events.statuses) != 5 {
		t.Errorf("expected 5 status broadcasts, got %d", len(f.events.statuses))
	}
}

func TestLotteryService_SetWinners(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	players := f.ready(t)

	if _, err := f.svc.SetWinners(ctx, f.admin, players[0], nil); !errors.Is(err, lottery.ErrNoWinners) {
		t.Errorf("expected ErrNoWinners before a payout draw, got %v", err)
	}

	f.queue(t, lottery.OutcomePayout)
	if _, err := f.svc.Draw(ctx); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	status, err := f.svc.SetWinners(ctx, f.admin, players[0], []string{players[1], players[2]})
	if err != nil {
		t.Fatalf("SetWinners failed: %v", err)
	}
	if string(status.Winners.Main) != players[0] || len(status.Winners.Minor) != 2 {
		t.Errorf("unexpected winners %+v", status.Winners)
	}

	if _, err := f.svc.SetWinners(ctx, f.admin, players[0], []string{players[0]}); !errors.Is(err, lottery.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for duplicate winner, got %v", err)
	}

	payout, err := f.svc.Payout(ctx)
	if err != nil {
		t.Fatalf("Payout failed: %v", err)
	}
	if string(payout.Payments[0].Recipient) != players[0] {
		t.Errorf("expected override winner to be paid, got %+v", payout.Payments[0])
	}
}

func TestLotteryService_AdminSaveError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	f := newFixtureWithRepo(t, repo, false)
	repo.SaveStateError = errors.New("database error")

	if _, err := f.svc.TogglePause(context.Background(), f.admin); err == nil {
		t.Fatal("expected error from TogglePause, got nil")
	}
}

func TestLotteryService_Participants(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	entries, err := f.svc.Participants(ctx)
	if err != nil {
		t.Fatalf("Participants failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty ledger, got %v", entries)
	}

	players := f.fill(t, 3)
	entries, _ = f.svc.Participants(ctx)
	for i, e := range entries {
		if string(e.Participant) != players[i] {
			t.Errorf("entry %d: expected %s, got %s", i, players[i], e.Participant)
		}
	}

	info, err := f.svc.Participant(ctx, wallet())
	if err != nil {
		t.Fatalf("Participant failed: %v", err)
	}
	if info.Entered || info.TotalTickets != 3 {
		t.Errorf("unexpected info for absent wallet %+v", info)
	}
}
