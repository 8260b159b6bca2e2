package services

import (
	"context"

	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
)

// LotteryServicer defines the interface for lottery operations
type LotteryServicer interface {
	Initialize(ctx context.Context) (bool, error)
	State(ctx context.Context) (lottery.State, error)
	Status(ctx context.Context) (*Status, error)
	Participants(ctx context.Context) ([]lottery.Entry, error)
	Participant(ctx context.Context, identity string) (*ParticipantInfo, error)
	Enter(ctx context.Context, identity string, contribution uint64) (*lottery.EntryResult, error)
	GrantTickets(ctx context.Context, caller lottery.Identity, identity string, tickets uint32) (*lottery.EntryResult, error)
	Draw(ctx context.Context) (*models.DrawRecord, error)
	Payout(ctx context.Context) (*models.PayoutRecord, error)
	RunCrank(ctx context.Context) (*CrankResult, error)
	TogglePause(ctx context.Context, caller lottery.Identity) (*Status, error)
	UpdateFees(ctx context.Context, caller lottery.Identity, total uint64) (*Status, error)
	ConfigureTiming(ctx context.Context, caller lottery.Identity, t lottery.Timing) (*Status, error)
	SetPrizePool(ctx context.Context, caller lottery.Identity, amount uint64) (*Status, error)
	FundJackpot(ctx context.Context, caller lottery.Identity, amount uint64) (*Status, error)
	SetSchedule(ctx context.Context, caller lottery.Identity, name string) (*Status, error)
	SetWinners(ctx context.Context, caller lottery.Identity, main string, minor []string) (*Status, error)
	SetBroadcaster(b Broadcaster)
}

// HistoryServicer defines the interface for history reads
type HistoryServicer interface {
	ListDraws(ctx context.Context, limit, offset int) (*DrawPage, error)
	GetDraw(ctx context.Context, id string) (*models.DrawRecord, error)
	ListPayouts(ctx context.Context, limit, offset int) ([]models.PayoutRecord, error)
	ListContributions(ctx context.Context, identity string, limit int) ([]models.Contribution, error)
}

// Ensure concrete types implement interfaces
var (
	_ LotteryServicer = (*LotteryService)(nil)
	_ HistoryServicer = (*HistoryService)(nil)
)
