package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/internal/clock"
	"github.com/lendhub/lending-service/internal/errs"
	"github.com/lendhub/lending-service/internal/model"
)

// fakeRepo is an in-memory stand-in for the postgres repository, mirroring
// its guard semantics (conditional counter updates, one unpaid fine per
// record, idempotent status transitions) so the services see the same
// behavior they would against the real thing.
type fakeRepo struct {
	mu      sync.Mutex
	nextID  int
	items   map[int]*model.Item
	members map[int]*model.Member
	records map[int]*model.LendingRecord
	fines   map[int]*model.Fine
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:   make(map[int]*model.Item),
		members: make(map[int]*model.Member),
		records: make(map[int]*model.LendingRecord),
		fines:   make(map[int]*model.Fine),
	}
}

func (f *fakeRepo) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) CreateItem(_ context.Context, item model.Item) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.id()
	item.ItemUid = uuid.NewString()
	item.Status = model.ItemAvailable
	item.AvailableCopies = item.TotalCopies
	f.items[item.ID] = &item
	return item, nil
}

func (f *fakeRepo) GetItem(_ context.Context, itemUid string) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ItemUid == itemUid {
			return *it, nil
		}
	}
	return model.Item{}, errs.ErrNotFound
}

func (f *fakeRepo) GetItemByISBN(_ context.Context, isbn string) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ISBN == isbn {
			return *it, nil
		}
	}
	return model.Item{}, errs.ErrNotFound
}

func (f *fakeRepo) ListItems(_ context.Context, onlyAvailable bool) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.Item
	for _, it := range f.items {
		if onlyAvailable && (it.Status != model.ItemAvailable || it.AvailableCopies == 0) {
			continue
		}
		items = append(items, *it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (f *fakeRepo) UpdateItem(_ context.Context, itemUid string, req model.UpdateItemRequest) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ItemUid != itemUid {
			continue
		}
		if req.Title != nil {
			it.Title = *req.Title
		}
		if req.Author != nil {
			it.Author = *req.Author
		}
		if req.Category != nil {
			it.Category = *req.Category
		}
		if req.Status != nil {
			it.Status = *req.Status
		}
		return *it, nil
	}
	return model.Item{}, errs.ErrNotFound
}

func (f *fakeRepo) DeleteItem(_ context.Context, itemUid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, it := range f.items {
		if it.ItemUid == itemUid {
			delete(f.items, id)
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeRepo) AddStock(_ context.Context, itemID, totalDelta, availableDelta int) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return model.Item{}, errs.ErrNotFound
	}
	it.TotalCopies += totalDelta
	it.AvailableCopies += availableDelta
	f.deriveStatus(it)
	return *it, nil
}

func (f *fakeRepo) ReserveCopy(_ context.Context, itemID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok || it.AvailableCopies <= 0 {
		return errs.ErrOutOfStock
	}
	it.AvailableCopies--
	f.deriveStatus(it)
	return nil
}

func (f *fakeRepo) ReleaseCopy(_ context.Context, itemID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemID]
	if !ok {
		return nil
	}
	if it.AvailableCopies < it.TotalCopies {
		it.AvailableCopies++
	}
	f.deriveStatus(it)
	return nil
}

func (f *fakeRepo) deriveStatus(it *model.Item) {
	if it.Status.Overridden() {
		return
	}
	if it.AvailableCopies == 0 {
		it.Status = model.ItemBorrowed
	} else {
		it.Status = model.ItemAvailable
	}
}

func (f *fakeRepo) CreateMember(_ context.Context, m model.Member) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.members {
		if existing.MembershipNumber == m.MembershipNumber {
			return model.Member{}, errs.ErrMembershipNumber
		}
	}
	m.ID = f.id()
	m.MemberUid = uuid.NewString()
	m.Status = model.MemberActive
	f.members[m.ID] = &m
	return m, nil
}

func (f *fakeRepo) GetMember(_ context.Context, memberUid string) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.MemberUid == memberUid {
			return *m, nil
		}
	}
	return model.Member{}, errs.ErrNotFound
}

func (f *fakeRepo) GetMemberForUpdate(ctx context.Context, memberUid string) (model.Member, error) {
	return f.GetMember(ctx, memberUid)
}

func (f *fakeRepo) ListMembers(_ context.Context) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []model.Member
	for _, m := range f.members {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (f *fakeRepo) UpdateMember(_ context.Context, memberUid string, req model.UpdateMemberRequest) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.MemberUid != memberUid {
			continue
		}
		if req.Name != nil {
			m.Name = *req.Name
		}
		if req.Email != nil {
			m.Email = *req.Email
		}
		return *m, nil
	}
	return model.Member{}, errs.ErrNotFound
}

func (f *fakeRepo) DeleteMember(_ context.Context, memberUid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, m := range f.members {
		if m.MemberUid == memberUid {
			delete(f.members, id)
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeRepo) SuspendMember(_ context.Context, memberID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberID]
	if !ok {
		return errs.ErrNotFound
	}
	m.Status = model.MemberSuspended
	return nil
}

func (f *fakeRepo) CreateLendingRecord(_ context.Context, rec model.LendingRecord) (model.LendingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = f.id()
	rec.RecordUid = uuid.NewString()
	rec.Status = model.LendingActive
	f.records[rec.ID] = &rec
	return rec, nil
}

func (f *fakeRepo) GetLendingRecord(_ context.Context, recordUid string) (model.LendingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.RecordUid == recordUid {
			return *rec, nil
		}
	}
	return model.LendingRecord{}, errs.ErrNotFound
}

func (f *fakeRepo) GetLendingRecordForUpdate(ctx context.Context, recordUid string) (model.LendingRecord, error) {
	return f.GetLendingRecord(ctx, recordUid)
}

func (f *fakeRepo) ListLendingRecords(_ context.Context, filter model.LendingFilter) ([]model.LendingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recs []model.LendingRecord
	for _, rec := range f.records {
		if filter.MemberUid != "" && rec.MemberUid != filter.MemberUid {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.ExcludeReturned && rec.Status == model.LendingReturned {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func (f *fakeRepo) ListDueBefore(_ context.Context, asOf time.Time) ([]model.LendingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recs []model.LendingRecord
	for _, rec := range f.records {
		if rec.Status == model.LendingReturned {
			continue
		}
		if rec.DueDate.Before(asOf) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func (f *fakeRepo) CountActiveLending(_ context.Context, memberID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.records {
		if rec.MemberID == memberID && rec.Status == model.LendingActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CountLateReturns(_ context.Context, memberID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.records {
		if rec.MemberID == memberID && rec.ReturnedAt != nil && rec.ReturnedAt.After(rec.DueDate) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CountOverdue(_ context.Context, memberID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.records {
		if rec.MemberID == memberID && rec.Status == model.LendingOverdue {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) MarkOverdue(_ context.Context, recordID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordID]
	if !ok {
		return errs.ErrNotFound
	}
	if rec.Status == model.LendingActive {
		rec.Status = model.LendingOverdue
	}
	return nil
}

func (f *fakeRepo) MarkReturned(_ context.Context, recordID int, returnedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordID]
	if !ok {
		return errs.ErrNotFound
	}
	if rec.Status == model.LendingReturned {
		return errs.ErrAlreadyReturned
	}
	rec.Status = model.LendingReturned
	rec.ReturnedAt = &returnedAt
	return nil
}

func (f *fakeRepo) CreateFine(_ context.Context, fine model.Fine) (model.Fine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.fines {
		if existing.RecordID == fine.RecordID && existing.PaidAt == nil {
			return model.Fine{}, errs.ErrFineExists
		}
	}
	fine.ID = f.id()
	fine.FineUid = uuid.NewString()
	if m, ok := f.members[fine.MemberID]; ok {
		fine.MemberUid = m.MemberUid
	}
	if rec, ok := f.records[fine.RecordID]; ok {
		fine.RecordUid = rec.RecordUid
	}
	f.fines[fine.ID] = &fine
	return fine, nil
}

func (f *fakeRepo) GetFine(_ context.Context, fineUid string) (model.Fine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fine := range f.fines {
		if fine.FineUid == fineUid {
			return *fine, nil
		}
	}
	return model.Fine{}, errs.ErrNotFound
}

func (f *fakeRepo) HasUnpaidFine(_ context.Context, memberID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fine := range f.fines {
		if fine.MemberID == memberID && fine.PaidAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasUnpaidFineForRecord(_ context.Context, recordID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fine := range f.fines {
		if fine.RecordID == recordID && fine.PaidAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) PayFine(_ context.Context, fineUid string, paidAt time.Time) (model.Fine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fine := range f.fines {
		if fine.FineUid != fineUid {
			continue
		}
		if fine.PaidAt != nil {
			return model.Fine{}, errs.ErrAlreadyPaid
		}
		fine.PaidAt = &paidAt
		return *fine, nil
	}
	return model.Fine{}, errs.ErrNotFound
}

func (f *fakeRepo) ListFines(_ context.Context) ([]model.FineListRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fines []*model.Fine
	for _, fine := range f.fines {
		fines = append(fines, fine)
	}
	sort.Slice(fines, func(i, j int) bool {
		if fines[i].MemberID != fines[j].MemberID {
			return fines[i].MemberID < fines[j].MemberID
		}
		return fines[i].ID < fines[j].ID
	})
	rows := make([]model.FineListRow, 0, len(fines))
	for _, fine := range fines {
		row := model.FineListRow{
			FineUid: fine.FineUid,
			Amount:  fine.Amount,
			PaidAt:  fine.PaidAt,
		}
		if m, ok := f.members[fine.MemberID]; ok {
			row.MemberUid = m.MemberUid
			row.MemberName = m.Name
			row.MemberStatus = m.Status
		}
		if rec, ok := f.records[fine.RecordID]; ok {
			row.RecordUid = rec.RecordUid
			row.RecordStatus = rec.Status
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// testEnv wires the full service stack over the fake repository with a fixed
// clock, default policy and a no-op event publisher.
type testEnv struct {
	repo       *fakeRepo
	clk        clock.Clock
	now        time.Time
	policy     Policy
	lending    *Lending
	sweeper    *Sweeper
	fines      *Fines
	suspension *Suspension
	inventory  *Inventory
	catalog    *Catalog
	members    *Members
}

func newTestEnv(now time.Time) *testEnv {
	repo := newFakeRepo()
	clk := clock.NewFixed(now)
	log := zap.NewNop()
	policy := Policy{
		LoanPeriodDays:   14,
		DailyFineRate:    0.5,
		BorrowLimit:      3,
		SuspendThreshold: 3,
	}

	var events *Events // nil publisher, Publish is a no-op
	inventory := NewInventory(repo, log)
	fines := NewFines(repo, clk, events, log)
	suspension := NewSuspension(repo, clk, events, policy.SuspendThreshold, log)

	return &testEnv{
		repo:       repo,
		clk:        clk,
		now:        now,
		policy:     policy,
		lending:    NewLending(repo, inventory, fines, suspension, clk, events, policy, log),
		sweeper:    NewSweeper(repo, fines, suspension, clk, policy, log),
		fines:      fines,
		suspension: suspension,
		inventory:  inventory,
		catalog:    NewCatalog(repo, inventory, log),
		members:    NewMembers(repo, log),
	}
}

func (e *testEnv) seedMember(name string) model.Member {
	m, err := e.repo.CreateMember(context.Background(), model.Member{
		Name:             name,
		Email:            name + "@example.com",
		MembershipNumber: "M-" + name,
	})
	if err != nil {
		panic(err)
	}
	return m
}

func (e *testEnv) seedItem(isbn string, copies int) model.Item {
	it, err := e.repo.CreateItem(context.Background(), model.Item{
		ISBN:        isbn,
		Title:       "title " + isbn,
		Author:      "author",
		TotalCopies: copies,
	})
	if err != nil {
		panic(err)
	}
	return it
}
