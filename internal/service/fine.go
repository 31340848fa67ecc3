package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/clock"
	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/repository"
)

// Fines creates and settles monetary fines tied to lending records. The
// at-most-one-unpaid-fine-per-record rule is enforced by the database and
// surfaces as errs.ErrFineExists.
type Fines struct {
	log    *zap.Logger
	repo   repository.Repository
	clk    clock.Clock
	events *Events
}

func NewFines(repo repository.Repository, clk clock.Clock, events *Events, log *zap.Logger) *Fines {
	return &Fines{
		log:    log,
		repo:   repo,
		clk:    clk,
		events: events,
	}
}

func (s *Fines) CreateFine(ctx context.Context, memberID, recordID int, amount float64) (model.Fine, error) {
	fine, err := s.repo.CreateFine(ctx, model.Fine{
		MemberID: memberID,
		RecordID: recordID,
		Amount:   amount,
	})
	if err != nil {
		return model.Fine{}, err
	}
	s.events.Publish(Event{
		Type:       EventFineCreated,
		OccurredAt: s.clk.Now(),
		FineUid:    fine.FineUid,
		Amount:     fine.Amount,
	})
	return fine, nil
}

func (s *Fines) PayFine(ctx context.Context, fineUid string) (model.Fine, error) {
	fine, err := s.repo.PayFine(ctx, fineUid, s.clk.Now())
	if err != nil {
		return model.Fine{}, err
	}
	s.events.Publish(Event{
		Type:       EventFinePaid,
		OccurredAt: s.clk.Now(),
		MemberUid:  fine.MemberUid,
		FineUid:    fine.FineUid,
		Amount:     fine.Amount,
	})
	return fine, nil
}

func (s *Fines) GetFine(ctx context.Context, fineUid string) (model.Fine, error) {
	return s.repo.GetFine(ctx, fineUid)
}

func (s *Fines) HasUnpaidFine(ctx context.Context, memberID int) (bool, error) {
	return s.repo.HasUnpaidFine(ctx, memberID)
}

func (s *Fines) HasUnpaidFineForRecord(ctx context.Context, recordID int) (bool, error) {
	return s.repo.HasUnpaidFineForRecord(ctx, recordID)
}

// ListFines groups every fine by member with a running total.
func (s *Fines) ListFines(ctx context.Context) ([]model.MemberFines, error) {
	rows, err := s.repo.ListFines(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make([]model.MemberFines, 0)
	idx := make(map[string]int)
	for _, row := range rows {
		i, ok := idx[row.MemberUid]
		if !ok {
			grouped = append(grouped, model.MemberFines{
				MemberUid:    row.MemberUid,
				MemberName:   row.MemberName,
				MemberStatus: row.MemberStatus,
			})
			i = len(grouped) - 1
			idx[row.MemberUid] = i
		}
		grouped[i].TotalFine += row.Amount
		grouped[i].Fines = append(grouped[i].Fines, model.FineInfo{
			FineUid:      row.FineUid,
			RecordUid:    row.RecordUid,
			Amount:       row.Amount,
			PaidAt:       row.PaidAt,
			RecordStatus: row.RecordStatus,
		})
	}
	return grouped, nil
}
