package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/clock"
	"github.com/lendhub/lending-service/internal/errs"
	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/repository"
)

// Lending drives the borrow/return state machine. Each operation runs as one
// transaction: the eligibility checks, the counter mutation and the record
// write commit or roll back together, with the member (borrow) or record
// (return) row locked for the duration.
type Lending struct {
	log        *zap.Logger
	repo       repository.Repository
	inventory  *Inventory
	fines      *Fines
	suspension *Suspension
	clk        clock.Clock
	events     *Events
	policy     Policy
}

func NewLending(
	repo repository.Repository,
	inventory *Inventory,
	fines *Fines,
	suspension *Suspension,
	clk clock.Clock,
	events *Events,
	policy Policy,
	log *zap.Logger,
) *Lending {
	return &Lending{
		log:        log,
		repo:       repo,
		inventory:  inventory,
		fines:      fines,
		suspension: suspension,
		clk:        clk,
		events:     events,
		policy:     policy,
	}
}

// Borrow checks the member's eligibility and reserves a copy, first failure
// wins: member missing, suspended, unpaid fine, borrow limit, item missing,
// out of stock.
func (s *Lending) Borrow(ctx context.Context, memberUid, itemUid string) (model.LendingRecord, error) {
	var rec model.LendingRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		member, err := s.repo.GetMemberForUpdate(ctx, memberUid)
		if err != nil {
			return err
		}
		if member.Status == model.MemberSuspended {
			return errs.ErrMemberSuspended
		}
		hasFine, err := s.fines.HasUnpaidFine(ctx, member.ID)
		if err != nil {
			return err
		}
		if hasFine {
			return errs.ErrUnpaidFine
		}
		active, err := s.repo.CountActiveLending(ctx, member.ID)
		if err != nil {
			return err
		}
		if active >= s.policy.BorrowLimit {
			return errs.ErrBorrowLimit
		}
		item, err := s.repo.GetItem(ctx, itemUid)
		if err != nil {
			return err
		}
		if err := s.inventory.ReserveCopy(ctx, item.ID); err != nil {
			return err
		}

		now := s.clk.Now()
		rec, err = s.repo.CreateLendingRecord(ctx, model.LendingRecord{
			MemberID:   member.ID,
			ItemID:     item.ID,
			MemberUid:  member.MemberUid,
			ItemUid:    item.ItemUid,
			BorrowedAt: now,
			DueDate:    now.AddDate(0, 0, s.policy.LoanPeriodDays),
		})
		return err
	})
	if err != nil {
		return model.LendingRecord{}, err
	}

	s.events.Publish(Event{
		Type:       EventItemBorrowed,
		OccurredAt: rec.BorrowedAt,
		MemberUid:  rec.MemberUid,
		ItemUid:    rec.ItemUid,
		RecordUid:  rec.RecordUid,
	})
	return rec, nil
}

// Return hands the copy back. A record past its due date that was not yet
// aged into overdue gets its fine here; a record the sweeper already fined
// keeps that fine and no new amount is charged.
func (s *Lending) Return(ctx context.Context, recordUid string) (model.LendingRecord, float64, error) {
	var (
		rec        model.LendingRecord
		fineAmount float64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetLendingRecordForUpdate(ctx, recordUid)
		if err != nil {
			return err
		}
		if rec.Status == model.LendingReturned {
			return errs.ErrAlreadyReturned
		}

		// the record row is locked, so a racing sweep cannot have fined it
		// between the read above and this insert
		now := s.clk.Now()
		if days := overdueDays(now, rec.DueDate); days > 0 && rec.Status != model.LendingOverdue {
			fineAmount = float64(days) * s.policy.DailyFineRate
			if _, err := s.fines.CreateFine(ctx, rec.MemberID, rec.ID, fineAmount); err != nil {
				return err
			}
			if err := s.repo.MarkOverdue(ctx, rec.ID); err != nil {
				return err
			}
		}

		if err := s.repo.MarkReturned(ctx, rec.ID, now); err != nil {
			return err
		}
		if err := s.inventory.ReleaseCopy(ctx, rec.ItemID); err != nil {
			return err
		}
		if _, err := s.suspension.EvaluateOnReturn(ctx, rec.MemberID, rec.MemberUid); err != nil {
			return err
		}

		rec.Status = model.LendingReturned
		rec.ReturnedAt = &now
		return nil
	})
	if err != nil {
		return model.LendingRecord{}, 0, err
	}

	s.events.Publish(Event{
		Type:       EventItemReturned,
		OccurredAt: *rec.ReturnedAt,
		MemberUid:  rec.MemberUid,
		ItemUid:    rec.ItemUid,
		RecordUid:  rec.RecordUid,
		Amount:     fineAmount,
	})
	return rec, fineAmount, nil
}

func (s *Lending) ListLendingRecords(ctx context.Context, f model.LendingFilter) ([]model.LendingRecord, error) {
	return s.repo.ListLendingRecords(ctx, f)
}

func (s *Lending) GetLendingRecord(ctx context.Context, recordUid string) (model.LendingRecord, error) {
	return s.repo.GetLendingRecord(ctx, recordUid)
}

// overdueDays applies ceiling rounding: any positive fraction of a day past
// the due date counts as a full day, returning exactly on the due date counts
// as zero.
func overdueDays(now, due time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(math.Ceil(now.Sub(due).Hours() / 24))
}
