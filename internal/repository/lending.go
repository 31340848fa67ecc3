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

const lendingColumns = `lr.id, lr.record_uid, lr.member_id, lr.item_id, m.member_uid, i.item_uid, lr.borrowed_at, lr.due_date, lr.returned_at, lr.status`

func (r *repository) lendingQuery() sq.SelectBuilder {
	return qb.Select(lendingColumns).
		From(lendingTableName + " lr").
		Join(fmt.Sprintf("%s m on m.id = lr.member_id", membersTableName)).
		Join(fmt.Sprintf("%s i on i.id = lr.item_id", itemsTableName))
}

func (r *repository) CreateLendingRecord(ctx context.Context, rec model.LendingRecord) (model.LendingRecord, error) {
	q, args, err := qb.Insert(lendingTableName).
		Columns("record_uid", "member_id", "item_id", "borrowed_at", "due_date", "status").
		Values(uuid.New(), rec.MemberID, rec.ItemID, rec.BorrowedAt, rec.DueDate, model.LendingActive).
		Suffix("returning id, record_uid").
		ToSql()
	if err != nil {
		return model.LendingRecord{}, err
	}
	if err := r.ext(ctx).QueryRowxContext(ctx, q, args...).Scan(&rec.ID, &rec.RecordUid); err != nil {
		r.log.Error("CreateLendingRecord", zap.String("q", q), zap.Any("args", args))
		return model.LendingRecord{}, err
	}
	rec.Status = model.LendingActive
	return rec, nil
}

func (r *repository) GetLendingRecord(ctx context.Context, recordUid string) (model.LendingRecord, error) {
	return r.getLendingRecord(ctx, recordUid, false)
}

// GetLendingRecordForUpdate locks the record row, serializing a return racing
// a sweep on the same record.
func (r *repository) GetLendingRecordForUpdate(ctx context.Context, recordUid string) (model.LendingRecord, error) {
	return r.getLendingRecord(ctx, recordUid, true)
}

func (r *repository) getLendingRecord(ctx context.Context, recordUid string, forUpdate bool) (model.LendingRecord, error) {
	q := r.lendingQuery().
		Where(sq.Eq{"lr.record_uid": recordUid}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("for update of lr")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.LendingRecord{}, err
	}
	var rec model.LendingRecord
	if err := sqlx.GetContext(ctx, r.ext(ctx), &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LendingRecord{}, errs.ErrNotFound
		}
		return model.LendingRecord{}, err
	}
	return rec, nil
}

func (r *repository) ListLendingRecords(ctx context.Context, f model.LendingFilter) ([]model.LendingRecord, error) {
	q := r.lendingQuery().OrderBy("lr.id")
	if f.MemberUid != "" {
		q = q.Where(sq.Eq{"m.member_uid": f.MemberUid})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"lr.status": f.Status})
	}
	if f.ExcludeReturned {
		q = q.Where(sq.NotEq{"lr.status": model.LendingReturned})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var recs []model.LendingRecord
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &recs, query, args...); err != nil {
		return nil, err
	}
	return recs, nil
}

// ListDueBefore selects the sweep candidates: not yet returned, past due.
func (r *repository) ListDueBefore(ctx context.Context, asOf time.Time) ([]model.LendingRecord, error) {
	q, args, err := r.lendingQuery().
		Where(sq.Eq{"lr.status": []model.LendingStatus{model.LendingActive, model.LendingOverdue}}).
		Where(sq.Lt{"lr.due_date": asOf}).
		OrderBy("lr.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var recs []model.LendingRecord
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &recs, q, args...); err != nil {
		return nil, err
	}
	return recs, nil
}

// CountActiveLending counts the member's loans still in active status;
// records already aged into overdue are policed by fines and suspension, not
// the borrow limit.
func (r *repository) CountActiveLending(ctx context.Context, memberID int) (int, error) {
	q := `
select count(*) from lending_records
where member_id = $1 and status = $2`
	var count int
	if err := r.ext(ctx).QueryRowxContext(ctx, q, memberID, model.LendingActive).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountLateReturns counts records handed back after their due date.
func (r *repository) CountLateReturns(ctx context.Context, memberID int) (int, error) {
	q := `
select count(*) from lending_records
where member_id = $1 and returned_at is not null and returned_at > due_date`
	var count int
	if err := r.ext(ctx).QueryRowxContext(ctx, q, memberID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountOverdue(ctx context.Context, memberID int) (int, error) {
	q := `
select count(*) from lending_records
where member_id = $1 and status = $2`
	var count int
	if err := r.ext(ctx).QueryRowxContext(ctx, q, memberID, model.LendingOverdue).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) MarkOverdue(ctx context.Context, recordID int) error {
	q := `
update lending_records
set status = $2
where id = $1 and status = $3`
	_, err := r.ext(ctx).ExecContext(ctx, q, recordID, model.LendingOverdue, model.LendingActive)
	return err
}

func (r *repository) MarkReturned(ctx context.Context, recordID int, returnedAt time.Time) error {
	q := `
update lending_records
set status = $2, returned_at = $3
where id = $1 and status != $2`
	res, err := r.ext(ctx).ExecContext(ctx, q, recordID, model.LendingReturned, returnedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrAlreadyReturned
	}
	return nil
}
