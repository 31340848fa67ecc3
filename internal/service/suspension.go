package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/clock"
	"github.com/lendhub/lending-service/internal/repository"
)

// Suspension flips a member to suspended once their overdue history crosses
// the threshold. The two triggers count different things on purpose: the
// return path counts records actually handed back late, the sweep path counts
// records currently sitting in overdue. Both are idempotent.
type Suspension struct {
	log       *zap.Logger
	repo      repository.Repository
	clk       clock.Clock
	events    *Events
	threshold int
}

func NewSuspension(repo repository.Repository, clk clock.Clock, events *Events, threshold int, log *zap.Logger) *Suspension {
	return &Suspension{
		log:       log,
		repo:      repo,
		clk:       clk,
		events:    events,
		threshold: threshold,
	}
}

// EvaluateOnReturn suspends the member when their late-return count reaches
// the threshold. Reports whether the member ended up suspended by this call.
func (s *Suspension) EvaluateOnReturn(ctx context.Context, memberID int, memberUid string) (bool, error) {
	count, err := s.repo.CountLateReturns(ctx, memberID)
	if err != nil {
		return false, err
	}
	if count < s.threshold {
		return false, nil
	}
	return true, s.suspend(ctx, memberID, memberUid)
}

// EvaluateOnSweep suspends the member when their overdue-status record count
// reaches the threshold.
func (s *Suspension) EvaluateOnSweep(ctx context.Context, memberID int, memberUid string) (bool, error) {
	count, err := s.repo.CountOverdue(ctx, memberID)
	if err != nil {
		return false, err
	}
	if count < s.threshold {
		return false, nil
	}
	return true, s.suspend(ctx, memberID, memberUid)
}

func (s *Suspension) suspend(ctx context.Context, memberID int, memberUid string) error {
	if err := s.repo.SuspendMember(ctx, memberID); err != nil {
		return err
	}
	s.log.Info("member suspended",
		zap.Int("member_id", memberID), zap.String("member_uid", memberUid))
	s.events.Publish(Event{
		Type:       EventMemberSuspended,
		MemberUid:  memberUid,
		OccurredAt: s.clk.Now(),
	})
	return nil
}
