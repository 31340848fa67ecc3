package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/errs"
	"github.com/lendhub/lending-service/internal/model"
)

const fineColumns = `f.id, f.fine_uid, f.member_id, f.record_id, m.member_uid, lr.record_uid, f.amount, f.created_at, f.paid_at`

func (r *repository) fineQuery() sq.SelectBuilder {
	return qb.Select(fineColumns).
		From(finesTableName + " f").
		Join(fmt.Sprintf("%s m on m.id = f.member_id", membersTableName)).
		Join(fmt.Sprintf("%s lr on lr.id = f.record_id", lendingTableName))
}

// CreateFine relies on the partial unique index on (record_id) where
// paid_at is null; a violation means the record is already fined.
func (r *repository) CreateFine(ctx context.Context, f model.Fine) (model.Fine, error) {
	q, args, err := qb.Insert(finesTableName).
		Columns("fine_uid", "member_id", "record_id", "amount").
		Values(uuid.New(), f.MemberID, f.RecordID, f.Amount).
		Suffix("returning id, fine_uid, created_at").
		ToSql()
	if err != nil {
		return model.Fine{}, err
	}
	if err := r.ext(ctx).QueryRowxContext(ctx, q, args...).Scan(&f.ID, &f.FineUid, &f.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.Fine{}, errs.ErrFineExists
		}
		r.log.Error("CreateFine", zap.String("q", q), zap.Any("args", args))
		return model.Fine{}, err
	}
	return f, nil
}

func (r *repository) GetFine(ctx context.Context, fineUid string) (model.Fine, error) {
	q, args, err := r.fineQuery().
		Where(sq.Eq{"f.fine_uid": fineUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Fine{}, err
	}
	var f model.Fine
	if err := sqlx.GetContext(ctx, r.ext(ctx), &f, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Fine{}, errs.ErrNotFound
		}
		return model.Fine{}, err
	}
	return f, nil
}

func (r *repository) HasUnpaidFine(ctx context.Context, memberID int) (bool, error) {
	q := `
select exists(select 1 from fines where member_id = $1 and paid_at is null)`
	var has bool
	if err := r.ext(ctx).QueryRowxContext(ctx, q, memberID).Scan(&has); err != nil {
		return false, err
	}
	return has, nil
}

func (r *repository) HasUnpaidFineForRecord(ctx context.Context, recordID int) (bool, error) {
	q := `
select exists(select 1 from fines where record_id = $1 and paid_at is null)`
	var has bool
	if err := r.ext(ctx).QueryRowxContext(ctx, q, recordID).Scan(&has); err != nil {
		return false, err
	}
	return has, nil
}

// PayFine settles the fine exactly once: the paid_at guard in the statement
// makes a second pay attempt report errs.ErrAlreadyPaid.
func (r *repository) PayFine(ctx context.Context, fineUid string, paidAt time.Time) (model.Fine, error) {
	q := `
update fines
set paid_at = $2
where fine_uid = $1 and paid_at is null`
	res, err := r.ext(ctx).ExecContext(ctx, q, fineUid, paidAt)
	if err != nil {
		return model.Fine{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetFine(ctx, fineUid); err != nil {
			return model.Fine{}, err
		}
		return model.Fine{}, errs.ErrAlreadyPaid
	}
	return r.GetFine(ctx, fineUid)
}

func (r *repository) ListFines(ctx context.Context) ([]model.FineListRow, error) {
	q, args, err := qb.Select("f.fine_uid", "m.member_uid", "m.name as member_name", "m.status as member_status",
		"lr.record_uid", "lr.status as record_status", "f.amount", "f.paid_at").
		From(finesTableName + " f").
		Join(fmt.Sprintf("%s m on m.id = f.member_id", membersTableName)).
		Join(fmt.Sprintf("%s lr on lr.id = f.record_id", lendingTableName)).
		OrderBy("m.id", "f.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []model.FineListRow
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
