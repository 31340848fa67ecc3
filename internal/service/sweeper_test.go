package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendhub/lending-service/internal/model"
)

func (e *testEnv) seedActiveRecord(t *testing.T, member model.Member, item model.Item, dueDate time.Time) model.LendingRecord {
	t.Helper()
	rec, err := e.repo.CreateLendingRecord(context.Background(), model.LendingRecord{
		MemberID:   member.ID,
		ItemID:     item.ID,
		MemberUid:  member.MemberUid,
		ItemUid:    item.ItemUid,
		BorrowedAt: dueDate.AddDate(0, 0, -14),
		DueDate:    dueDate,
	})
	require.NoError(t, err)
	require.NoError(t, e.repo.ReserveCopy(context.Background(), item.ID))
	return rec
}

func TestSweeper_MarksOverdueAndFines(t *testing.T) {
	env := newTestEnv(testNow)
	ctx := context.Background()
	member := env.seedMember("alice")
	item := env.seedItem("978-1", 1)
	rec := env.seedActiveRecord(t, member, item, testNow.AddDate(0, 0, -4))

	swept, err := env.sweeper.Sweep(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{rec.RecordUid}, swept)

	got, err := env.repo.GetLendingRecord(ctx, rec.RecordUid)
	require.NoError(t, err)
	assert.Equal(t, model.LendingOverdue, got.Status)

	rows, err := env.repo.ListFines(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2.0, rows[0].Amount) // 4 days at 0.5/day
	assert.Nil(t, rows[0].PaidAt)
}

func TestSweeper_Idempotent(t *testing.T) {
	env := newTestEnv(testNow)
	ctx := context.Background()
	member := env.seedMember("alice")
	item := env.seedItem("978-1", 1)
	rec := env.seedActiveRecord(t, member, item, testNow.AddDate(0, 0, -4))

	first, err := env.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)
	require.Equal(t, []string{rec.RecordUid}, first)

	second, err := env.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.RecordUid}, second)

	rows, err := env.repo.ListFines(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSweeper_SkipsCurrentRecords(t *testing.T) {
	env := newTestEnv(testNow)
	ctx := context.Background()
	member := env.seedMember("alice")
	item := env.seedItem("978-1", 2)
	env.seedActiveRecord(t, member, item, testNow.AddDate(0, 0, 7))

	swept, err := env.sweeper.Sweep(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, swept)

	rows, err := env.repo.ListFines(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSweeper_SkipsReturnedRecords(t *testing.T) {
	env := newTestEnv(testNow)
	ctx := context.Background()
	member := env.seedMember("alice")
	item := env.seedItem("978-1", 1)
	rec := env.seedActiveRecord(t, member, item, testNow.AddDate(0, 0, -4))

	_, _, err := env.lending.Return(ctx, rec.RecordUid)
	require.NoError(t, err)

	swept, err := env.sweeper.Sweep(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, swept)

	// the return already charged the record; sweep adds nothing
	rows, err := env.repo.ListFines(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSweeper_SuspendsAtThreshold(t *testing.T) {
	env := newTestEnv(testNow)
	ctx := context.Background()
	member := env.seedMember("alice")
	for i := 0; i < env.policy.SuspendThreshold; i++ {
		item := env.seedItem("978-"+string(rune('a'+i)), 1)
		env.seedActiveRecord(t, member, item, testNow.AddDate(0, 0, -2-i))
	}

	swept, err := env.sweeper.Sweep(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, swept, env.policy.SuspendThreshold)

	got, err := env.repo.GetMember(ctx, member.MemberUid)
	require.NoError(t, err)
	assert.Equal(t, model.MemberSuspended, got.Status)
}

func TestSweeper_AsOfInThePast(t *testing.T) {
	env := newTestEnv(testNow)
	ctx := context.Background()
	member := env.seedMember("alice")
	item := env.seedItem("978-1", 1)
	env.seedActiveRecord(t, member, item, testNow.AddDate(0, 0, -4))

	// as of ten days ago the record was not yet due
	swept, err := env.sweeper.Sweep(ctx, testNow.AddDate(0, 0, -10))
	require.NoError(t, err)
	assert.Empty(t, swept)
}
