package repository

import (
	"context"

	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
)

// StateRepository persists the lottery state and its ledger. Every Save
// method commits the state together with its side record in one
// transaction, so a reader never sees a draw without the state it produced.
type StateRepository interface {
	LoadState(ctx context.Context) (lottery.State, error)
	SaveState(ctx context.Context, s lottery.State) error
	SaveEntry(ctx context.Context, s lottery.State, c models.Contribution) error
	SaveDraw(ctx context.Context, s lottery.State, d models.DrawRecord) error
	SavePayout(ctx context.Context, s lottery.State, p models.PayoutRecord) error
}

// HistoryRepository reads past draws, payouts and contributions
type HistoryRepository interface {
	ListDraws(ctx context.Context, limit, offset int) ([]models.DrawRecord, error)
	GetDraw(ctx context.Context, id string) (*models.DrawRecord, error)
	CountDraws(ctx context.Context) (int, error)
	ListPayouts(ctx context.Context, limit, offset int) ([]models.PayoutRecord, error)
	ListContributions(ctx context.Context, participant lottery.Identity, limit int) ([]models.Contribution, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	StateRepository
	HistoryRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
