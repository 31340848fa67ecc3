package handler

import (
	"context"
	"time"

	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LendingService interface {
	Borrow(ctx context.Context, memberUid, itemUid string) (model.LendingRecord, error)
	Return(ctx context.Context, recordUid string) (model.LendingRecord, float64, error)
	GetLendingRecord(ctx context.Context, recordUid string) (model.LendingRecord, error)
	ListLendingRecords(ctx context.Context, f model.LendingFilter) ([]model.LendingRecord, error)
}

type SweepService interface {
	Sweep(ctx context.Context, asOf time.Time) ([]string, error)
}

type FineService interface {
	PayFine(ctx context.Context, fineUid string) (model.Fine, error)
	GetFine(ctx context.Context, fineUid string) (model.Fine, error)
	ListFines(ctx context.Context) ([]model.MemberFines, error)
}

type CatalogService interface {
	CreateItem(ctx context.Context, req model.CreateItemRequest) (model.Item, bool, error)
	GetItem(ctx context.Context, itemUid string) (model.Item, error)
	ListItems(ctx context.Context, onlyAvailable bool) ([]model.Item, error)
	UpdateItem(ctx context.Context, itemUid string, req model.UpdateItemRequest) (model.Item, error)
	DeleteItem(ctx context.Context, itemUid string) error
}

type MemberService interface {
	CreateMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error)
	GetMember(ctx context.Context, memberUid string) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	UpdateMember(ctx context.Context, memberUid string, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, memberUid string) error
	ActiveBorrows(ctx context.Context, memberUid string) ([]model.LendingRecord, error)
}

var (
	_ LendingService = (*service.Lending)(nil)
	_ SweepService   = (*service.Sweeper)(nil)
	_ FineService    = (*service.Fines)(nil)
	_ CatalogService = (*service.Catalog)(nil)
	_ MemberService  = (*service.Members)(nil)
)
