package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/repository"
)

// Inventory owns an item's copy counters. Both counter mutations are single
// conditional statements in the repository, so they stay linearizable per
// item row even outside an enclosing transaction.
type Inventory struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewInventory(repo repository.Repository, log *zap.Logger) *Inventory {
	return &Inventory{
		log:  log,
		repo: repo,
	}
}

// ReserveCopy takes one copy, failing with errs.ErrOutOfStock when none is
// left at the time of the attempt.
func (s *Inventory) ReserveCopy(ctx context.Context, itemID int) error {
	return s.repo.ReserveCopy(ctx, itemID)
}

// ReleaseCopy puts one copy back, capped at total_copies. Never fails on cap.
func (s *Inventory) ReleaseCopy(ctx context.Context, itemID int) error {
	return s.repo.ReleaseCopy(ctx, itemID)
}

// AddStock registers additional copies of an already known ISBN.
func (s *Inventory) AddStock(ctx context.Context, isbn string, totalDelta, availableDelta int) (model.Item, error) {
	item, err := s.repo.GetItemByISBN(ctx, isbn)
	if err != nil {
		return model.Item{}, err
	}
	return s.repo.AddStock(ctx, item.ID, totalDelta, availableDelta)
}
