package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/clock"
	"github.com/lendhub/lending-service/internal/model"
	"github.com/lendhub/lending-service/internal/repository"
)

// Sweeper ages outstanding records into overdue and charges the fine the
// return path would have charged, through the same Fines and Suspension
// services. Each record is its own transaction: a failure mid-sweep skips
// that record and keeps going.
type Sweeper struct {
	log        *zap.Logger
	repo       repository.Repository
	fines      *Fines
	suspension *Suspension
	clk        clock.Clock
	policy     Policy
}

func NewSweeper(
	repo repository.Repository,
	fines *Fines,
	suspension *Suspension,
	clk clock.Clock,
	policy Policy,
	log *zap.Logger,
) *Sweeper {
	return &Sweeper{
		log:        log.Named("sweeper"),
		repo:       repo,
		fines:      fines,
		suspension: suspension,
		clk:        clk,
		policy:     policy,
	}
}

// Sweep processes every record due before asOf (zero means now) and returns
// the uids of the records it touched. Re-running with the same asOf changes
// nothing: transitions and fine creation are both guarded.
func (s *Sweeper) Sweep(ctx context.Context, asOf time.Time) ([]string, error) {
	if asOf.IsZero() {
		asOf = s.clk.Now()
	}

	candidates, err := s.repo.ListDueBefore(ctx, asOf)
	if err != nil {
		return nil, err
	}

	processed := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		if err := s.sweepRecord(ctx, cand.RecordUid, asOf); err != nil {
			s.log.Error("sweep record",
				zap.String("record_uid", cand.RecordUid),
				zap.Error(err))
			continue
		}
		processed = append(processed, cand.RecordUid)
	}

	s.log.Info("sweep finished",
		zap.Time("as_of", asOf),
		zap.Int("candidates", len(candidates)),
		zap.Int("processed", len(processed)))
	return processed, nil
}

func (s *Sweeper) sweepRecord(ctx context.Context, recordUid string, asOf time.Time) error {
	return s.repo.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetLendingRecordForUpdate(ctx, recordUid)
		if err != nil {
			return err
		}
		// a concurrent return may have settled the record since the select
		if rec.Status == model.LendingReturned || !rec.DueDate.Before(asOf) {
			return nil
		}

		if rec.Status != model.LendingOverdue {
			if err := s.repo.MarkOverdue(ctx, rec.ID); err != nil {
				return err
			}
		}

		// the locked row makes the check-then-insert safe against a racing
		// return; the partial unique index still backstops it
		hasFine, err := s.fines.HasUnpaidFineForRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !hasFine {
			amount := float64(overdueDays(asOf, rec.DueDate)) * s.policy.DailyFineRate
			if _, err := s.fines.CreateFine(ctx, rec.MemberID, rec.ID, amount); err != nil {
				return err
			}
		}

		_, err = s.suspension.EvaluateOnSweep(ctx, rec.MemberID, rec.MemberUid)
		return err
	})
}
