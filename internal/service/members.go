package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/repository"
)

// Members is the plain record layer over members. Status is never written
// here; only Suspension flips it.
type Members struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewMembers(repo repository.Repository, log *zap.Logger) *Members {
	return &Members{
		log:  log,
		repo: repo,
	}
}

func (s *Members) CreateMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error) {
	return s.repo.CreateMember(ctx, model.Member{
		Name:             req.Name,
		Email:            req.Email,
		MembershipNumber: req.MembershipNumber,
	})
}

func (s *Members) GetMember(ctx context.Context, memberUid string) (model.Member, error) {
	return s.repo.GetMember(ctx, memberUid)
}

func (s *Members) ListMembers(ctx context.Context) ([]model.Member, error) {
	return s.repo.ListMembers(ctx)
}

func (s *Members) UpdateMember(ctx context.Context, memberUid string, req model.UpdateMemberRequest) (model.Member, error) {
	return s.repo.UpdateMember(ctx, memberUid, req)
}

func (s *Members) DeleteMember(ctx context.Context, memberUid string) error {
	return s.repo.DeleteMember(ctx, memberUid)
}

// ActiveBorrows lists the member's not-yet-returned lending records.
func (s *Members) ActiveBorrows(ctx context.Context, memberUid string) ([]model.LendingRecord, error) {
	if _, err := s.repo.GetMember(ctx, memberUid); err != nil {
		return nil, err
	}
	return s.repo.ListLendingRecords(ctx, model.LendingFilter{
		MemberUid:       memberUid,
		ExcludeReturned: true,
	})
}
