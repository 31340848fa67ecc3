package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/errs"
	"github.com/lendhub/lending-service/internal/model"
)

const itemColumns = `id, item_uid, isbn, title, author, category, status, total_copies, available_copies`

func (r *repository) CreateItem(ctx context.Context, item model.Item) (model.Item, error) {
	q, args, err := qb.Insert(itemsTableName).
		Columns("item_uid", "isbn", "title", "author", "category", "status", "total_copies", "available_copies").
		Values(uuid.New(), item.ISBN, item.Title, item.Author, item.Category, model.ItemAvailable, item.TotalCopies, item.TotalCopies).
		Suffix("returning " + itemColumns).
		ToSql()
	if err != nil {
		return model.Item{}, err
	}
	var created model.Item
	if err := sqlx.GetContext(ctx, r.ext(ctx), &created, q, args...); err != nil {
		r.log.Error("CreateItem", zap.String("q", q), zap.Any("args", args))
		return model.Item{}, err
	}
	return created, nil
}

func (r *repository) GetItem(ctx context.Context, itemUid string) (model.Item, error) {
	q, args, err := qb.Select(itemColumns).
		From(itemsTableName).
		Where(sq.Eq{"item_uid": itemUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := sqlx.GetContext(ctx, r.ext(ctx), &item, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, errs.ErrNotFound
		}
		return model.Item{}, err
	}
	return item, nil
}

func (r *repository) GetItemByISBN(ctx context.Context, isbn string) (model.Item, error) {
	q, args, err := qb.Select(itemColumns).
		From(itemsTableName).
		Where(sq.Eq{"isbn": isbn}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := sqlx.GetContext(ctx, r.ext(ctx), &item, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, errs.ErrNotFound
		}
		return model.Item{}, err
	}
	return item, nil
}

func (r *repository) ListItems(ctx context.Context, onlyAvailable bool) ([]model.Item, error) {
	q := qb.Select(itemColumns).
		From(itemsTableName).
		OrderBy("id")
	if onlyAvailable {
		q = q.Where(sq.Eq{"status": model.ItemAvailable}).
			Where(sq.Gt{"available_copies": 0})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.Item
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateItem(ctx context.Context, itemUid string, req model.UpdateItemRequest) (model.Item, error) {
	q := qb.Update(itemsTableName).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"item_uid": itemUid}).
		Suffix("returning " + itemColumns)
	if req.Title != nil {
		q = q.Set("title", *req.Title)
	}
	if req.Author != nil {
		q = q.Set("author", *req.Author)
	}
	if req.Category != nil {
		q = q.Set("category", *req.Category)
	}
	if req.Status != nil {
		q = q.Set("status", *req.Status)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := sqlx.GetContext(ctx, r.ext(ctx), &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, errs.ErrNotFound
		}
		r.log.Error("UpdateItem", zap.String("q", query), zap.Any("args", args))
		return model.Item{}, err
	}
	return item, nil
}

func (r *repository) DeleteItem(ctx context.Context, itemUid string) error {
	q, args, err := qb.Delete(itemsTableName).
		Where(sq.Eq{"item_uid": itemUid}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.ext(ctx).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) AddStock(ctx context.Context, itemID, totalDelta, availableDelta int) (model.Item, error) {
	q := `
update items
set total_copies     = total_copies + $2,
    available_copies = available_copies + $3,
    status           = case
                           when status in ('available', 'borrowed') then
                               case when available_copies + $3 = 0 then 'borrowed' else 'available' end
                           else status end,
    updated_at       = now()
where id = $1
returning ` + itemColumns
	var item model.Item
	if err := sqlx.GetContext(ctx, r.ext(ctx), &item, q, itemID, totalDelta, availableDelta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, errs.ErrNotFound
		}
		return model.Item{}, err
	}
	return item, nil
}

// ReserveCopy decrements the available counter in a single conditional
// statement, so two concurrent borrows can never both take the last copy.
// The derived status is recomputed only when no manual override is set.
func (r *repository) ReserveCopy(ctx context.Context, itemID int) error {
	q := `
update items
set available_copies = available_copies - 1,
    status           = case
                           when status in ('available', 'borrowed') then
                               case when available_copies - 1 = 0 then 'borrowed' else 'available' end
                           else status end,
    updated_at       = now()
where id = $1
  and available_copies > 0`
	res, err := r.ext(ctx).ExecContext(ctx, q, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrOutOfStock
	}
	return nil
}

func (r *repository) ReleaseCopy(ctx context.Context, itemID int) error {
	q := `
update items
set available_copies = least(available_copies + 1, total_copies),
    status           = case
                           when status in ('available', 'borrowed') then
                               case when least(available_copies + 1, total_copies) = 0 then 'borrowed' else 'available' end
                           else status end,
    updated_at       = now()
where id = $1`
	_, err := r.ext(ctx).ExecContext(ctx, q, itemID)
	return err
}
