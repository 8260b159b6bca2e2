package services

import (
	"context"
	stderrors "errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abrezinsky/jackpot/internal/errors"
	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/models"
	"github.com/abrezinsky/jackpot/internal/repository"
)

// Paging defaults for history listings
const (
	DefaultPageSize     = 20
	MaxPageSize         = 100
	DefaultDrawCacheLen = 256
)

// HistoryService reads draw, payout and contribution history. Draw records
// never change once written, so GetDraw results are cached.
type HistoryService struct {
	log   logger.Logger
	repo  repository.HistoryRepository
	draws *lru.Cache[string, models.DrawRecord]
}

// NewHistoryService creates a new HistoryService with a draw cache of size
// entries (DefaultDrawCacheLen when size <= 0)
func NewHistoryService(log logger.Logger, repo repository.HistoryRepository, size int) (*HistoryService, error) {
	if size <= 0 {
		size = DefaultDrawCacheLen
	}
	cache, err := lru.New[string, models.DrawRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create draw cache: %w", err)
	}
	return &HistoryService{log: log, repo: repo, draws: cache}, nil
}

// DrawPage is one page of draw history
type DrawPage struct {
	Draws  []models.DrawRecord `json:"draws"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func pageBounds(limit, offset int) (int, int, error) {
	if offset < 0 {
		return 0, 0, ErrInvalidPage
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return limit, offset, nil
}

// ListDraws returns draws newest first
func (s *HistoryService) ListDraws(ctx context.Context, limit, offset int) (*DrawPage, error) {
	limit, offset, err := pageBounds(limit, offset)
	if err != nil {
		return nil, err
	}
	draws, err := s.repo.ListDraws(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "list draws")
	}
	total, err := s.repo.CountDraws(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "count draws")
	}
	for _, d := range draws {
		s.draws.Add(d.ID, d)
	}
	return &DrawPage{Draws: draws, Total: total, Limit: limit, Offset: offset}, nil
}

// GetDraw returns one draw by ID
func (s *HistoryService) GetDraw(ctx context.Context, id string) (*models.DrawRecord, error) {
	if d, ok := s.draws.Get(id); ok {
		return &d, nil
	}
	d, err := s.repo.GetDraw(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFoundf("draw %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "get draw")
	}
	s.draws.Add(id, *d)
	return d, nil
}

// ListPayouts returns payouts newest first
func (s *HistoryService) ListPayouts(ctx context.Context, limit, offset int) ([]models.PayoutRecord, error) {
	limit, offset, err := pageBounds(limit, offset)
	if err != nil {
		return nil, err
	}
	payouts, err := s.repo.ListPayouts(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "list payouts")
	}
	return payouts, nil
}

// ListContributions returns identity's contributions across rounds
func (s *HistoryService) ListContributions(ctx context.Context, identity string, limit int) ([]models.Contribution, error) {
	p, err := parseIdentity(identity)
	if err != nil {
		return nil, err
	}
	limit, _, err = pageBounds(limit, 0)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.ListContributions(ctx, p, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "list contributions")
	}
	return out, nil
}
