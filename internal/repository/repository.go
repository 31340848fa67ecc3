package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/model"
)

type Repository interface {
	// WithTx runs fn inside a single transaction; statements issued through
	// the ctx it passes down join that transaction. Serialization failures
	// are retried a bounded number of times before surfacing errs.ErrConflict.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateItem(ctx context.Context, item model.Item) (model.Item, error)
	GetItem(ctx context.Context, itemUid string) (model.Item, error)
	GetItemByISBN(ctx context.Context, isbn string) (model.Item, error)
	ListItems(ctx context.Context, onlyAvailable bool) ([]model.Item, error)
	UpdateItem(ctx context.Context, itemUid string, req model.UpdateItemRequest) (model.Item, error)
	DeleteItem(ctx context.Context, itemUid string) error
	AddStock(ctx context.Context, itemID, totalDelta, availableDelta int) (model.Item, error)
	ReserveCopy(ctx context.Context, itemID int) error
	ReleaseCopy(ctx context.Context, itemID int) error

	CreateMember(ctx context.Context, m model.Member) (model.Member, error)
	GetMember(ctx context.Context, memberUid string) (model.Member, error)
	GetMemberForUpdate(ctx context.Context, memberUid string) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, memberUid string, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, memberUid string) error
	SuspendMember(ctx context.Context, memberID int) error

	CreateLendingRecord(ctx context.Context, rec model.LendingRecord) (model.LendingRecord, error)
	GetLendingRecord(ctx context.Context, recordUid string) (model.LendingRecord, error)
	GetLendingRecordForUpdate(ctx context.Context, recordUid string) (model.LendingRecord, error)
	ListLendingRecords(ctx context.Context, f model.LendingFilter) ([]model.LendingRecord, error)
	ListDueBefore(ctx context.Context, asOf time.Time) ([]model.LendingRecord, error)
	CountActiveLending(ctx context.Context, memberID int) (int, error)
	CountLateReturns(ctx context.Context, memberID int) (int, error)
	CountOverdue(ctx context.Context, memberID int) (int, error)
	MarkOverdue(ctx context.Context, recordID int) error
	MarkReturned(ctx context.Context, recordID int, returnedAt time.Time) error

	CreateFine(ctx context.Context, f model.Fine) (model.Fine, error)
	GetFine(ctx context.Context, fineUid string) (model.Fine, error)
	HasUnpaidFine(ctx context.Context, memberID int) (bool, error)
	HasUnpaidFineForRecord(ctx context.Context, recordID int) (bool, error)
	PayFine(ctx context.Context, fineUid string, paidAt time.Time) (model.Fine, error)
	ListFines(ctx context.Context) ([]model.FineListRow, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	itemsTableName   = `items`
	membersTableName = `members`
	lendingTableName = `lending_records`
	finesTableName   = `fines`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
