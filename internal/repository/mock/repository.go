package mock

import (
	"context"

	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
	"github.com/abrezinsky/jackpot/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SaveDrawError = errors.New("database error")
//	svc := services.NewLotteryService(log, mockRepo, client, clock, opts)
//	_, err := svc.Draw(ctx)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== State Errors =====
	LoadStateError  error
	SaveStateError  error
	SaveEntryError  error
	SaveDrawError   error
	SavePayoutError error

	// ===== History Errors =====
	ListDrawsError         error
	GetDrawError           error
	CountDrawsError        error
	ListPayoutsError       error
	ListContributionsError error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error

	// GetDrawCalls counts calls that reached the wrapped repository
	GetDrawCalls int
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== State Methods =====

func (m *Repository) LoadState(ctx context.Context) (lottery.State, error) {
	if m.LoadStateError != nil {
		return lottery.State{}, m.LoadStateError
	}
	return m.FullRepository.LoadState(ctx)
}

func (m *Repository) SaveState(ctx context.Context, s lottery.State) error {
	if m.SaveStateError != nil {
		return m.SaveStateError
	}
	return m.FullRepository.SaveState(ctx, s)
}

func (m *Repository) SaveEntry(ctx context.Context, s lottery.State, c models.Contribution) error {
	if m.SaveEntryError != nil {
		return m.SaveEntryError
	}
	return m.FullRepository.SaveEntry(ctx, s, c)
}

func (m *Repository) SaveDraw(ctx context.Context, s lottery.State, d models.DrawRecord) error {
	if m.SaveDrawError != nil {
		return m.SaveDrawError
	}
	return m.FullRepository.SaveDraw(ctx, s, d)
}

func (m *Repository) SavePayout(ctx context.Context, s lottery.State, p models.PayoutRecord) error {
	if m.SavePayoutError != nil {
		return m.SavePayoutError
	}
	return m.FullRepository.SavePayout(ctx, s, p)
}

// ===== History Methods =====

func (m *Repository) ListDraws(ctx context.Context, limit, offset int) ([]models.DrawRecord, error) {
	if m.ListDrawsError != nil {
		return nil, m.ListDrawsError
	}
	return m.FullRepository.ListDraws(ctx, limit, offset)
}

func (m *Repository) GetDraw(ctx context.Context, id string) (*models.DrawRecord, error) {
	if m.GetDrawError != nil {
		return nil, m.GetDrawError
	}
	m.GetDrawCalls++
	return m.FullRepository.GetDraw(ctx, id)
}

func (m *Repository) CountDraws(ctx context.Context) (int, error) {
	if m.CountDrawsError != nil {
		return 0, m.CountDrawsError
	}
	return m.FullRepository.CountDraws(ctx)
}

func (m *Repository) ListPayouts(ctx context.Context, limit, offset int) ([]models.PayoutRecord, error) {
	if m.ListPayoutsError != nil {
		return nil, m.ListPayoutsError
	}
	return m.FullRepository.ListPayouts(ctx, limit, offset)
}

func (m *Repository) ListContributions(ctx context.Context, participant lottery.Identity, limit int) ([]models.Contribution, error) {
	if m.ListContributionsError != nil {
		return nil, m.ListContributionsError
	}
	return m.FullRepository.ListContributions(ctx, participant, limit)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}
