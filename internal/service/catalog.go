package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/errs"
	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/repository"
)

// Catalog is the plain record layer over items. Copy counters are only ever
// mutated through Inventory; the one crossover is item registration, which
// merges stock into an existing ISBN instead of failing.
type Catalog struct {
	log       *zap.Logger
	repo      repository.Repository
	inventory *Inventory
}

func NewCatalog(repo repository.Repository, inventory *Inventory, log *zap.Logger) *Catalog {
	return &Catalog{
		log:       log,
		repo:      repo,
		inventory: inventory,
	}
}

// CreateItem registers a new item; when the ISBN already exists the new
// copies are added to the existing entry instead.
func (s *Catalog) CreateItem(ctx context.Context, req model.CreateItemRequest) (model.Item, bool, error) {
	existing, err := s.repo.GetItemByISBN(ctx, req.ISBN)
	if err == nil {
		item, err := s.repo.AddStock(ctx, existing.ID, req.TotalCopies, req.TotalCopies)
		return item, true, err
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return model.Item{}, false, err
	}

	item, err := s.repo.CreateItem(ctx, model.Item{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Category:    req.Category,
		TotalCopies: req.TotalCopies,
	})
	return item, false, err
}

func (s *Catalog) GetItem(ctx context.Context, itemUid string) (model.Item, error) {
	return s.repo.GetItem(ctx, itemUid)
}

func (s *Catalog) ListItems(ctx context.Context, onlyAvailable bool) ([]model.Item, error) {
	return s.repo.ListItems(ctx, onlyAvailable)
}

func (s *Catalog) UpdateItem(ctx context.Context, itemUid string, req model.UpdateItemRequest) (model.Item, error) {
	return s.repo.UpdateItem(ctx, itemUid, req)
}

func (s *Catalog) DeleteItem(ctx context.Context, itemUid string) error {
	return s.repo.DeleteItem(ctx, itemUid)
}
