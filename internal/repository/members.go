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

const memberColumns = `id, member_uid, name, email, membership_number, status`

func (r *repository) CreateMember(ctx context.Context, m model.Member) (model.Member, error) {
	q, args, err := qb.Insert(membersTableName).
		Columns("member_uid", "name", "email", "membership_number", "status").
		Values(uuid.New(), m.Name, m.Email, m.MembershipNumber, model.MemberActive).
		Suffix("returning " + memberColumns).
		ToSql()
	if err != nil {
		return model.Member{}, err
	}
	var created model.Member
	if err := sqlx.GetContext(ctx, r.ext(ctx), &created, q, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Member{}, errs.ErrMembershipNumber
		}
		r.log.Error("CreateMember", zap.String("q", q), zap.Any("args", args))
		return model.Member{}, err
	}
	return created, nil
}

func (r *repository) GetMember(ctx context.Context, memberUid string) (model.Member, error) {
	return r.getMember(ctx, memberUid, false)
}

// GetMemberForUpdate locks the member row for the rest of the enclosing
// transaction, serializing a member's borrow attempts.
func (r *repository) GetMemberForUpdate(ctx context.Context, memberUid string) (model.Member, error) {
	return r.getMember(ctx, memberUid, true)
}

func (r *repository) getMember(ctx context.Context, memberUid string, forUpdate bool) (model.Member, error) {
	q := qb.Select(memberColumns).
		From(membersTableName).
		Where(sq.Eq{"member_uid": memberUid}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("for update")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Member{}, err
	}
	var m model.Member
	if err := sqlx.GetContext(ctx, r.ext(ctx), &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		return model.Member{}, err
	}
	return m, nil
}

func (r *repository) ListMembers(ctx context.Context) ([]model.Member, error) {
	q, args, err := qb.Select(memberColumns).
		From(membersTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var members []model.Member
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &members, q, args...); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) UpdateMember(ctx context.Context, memberUid string, req model.UpdateMemberRequest) (model.Member, error) {
	q := qb.Update(membersTableName).
		Where(sq.Eq{"member_uid": memberUid}).
		Suffix("returning " + memberColumns)
	updated := false
	if req.Name != nil {
		q = q.Set("name", *req.Name)
		updated = true
	}
	if req.Email != nil {
		q = q.Set("email", *req.Email)
		updated = true
	}
	if !updated {
		return r.GetMember(ctx, memberUid)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return model.Member{}, err
	}
	var m model.Member
	if err := sqlx.GetContext(ctx, r.ext(ctx), &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Member{}, errs.ErrNotFound
		}
		return model.Member{}, err
	}
	return m, nil
}

func (r *repository) DeleteMember(ctx context.Context, memberUid string) error {
	q, args, err := qb.Delete(membersTableName).
		Where(sq.Eq{"member_uid": memberUid}).
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

// SuspendMember is idempotent: suspending an already suspended member is a
// no-op, never an error.
func (r *repository) SuspendMember(ctx context.Context, memberID int) error {
	q := `
update members
set status = $2
where id = $1`
	_, err := r.ext(ctx).ExecContext(ctx, q, memberID, model.MemberSuspended)
	return err
}
