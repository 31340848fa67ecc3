package model

import (
	"time"
)

type ItemStatus string

const (
	ItemAvailable   ItemStatus = "available"
	ItemBorrowed    ItemStatus = "borrowed"
	ItemReserved    ItemStatus = "reserved"
	ItemMaintenance ItemStatus = "maintenance"
)

// Overridden reports whether the status was set manually and must not be
// recomputed from the copy counters.
func (s ItemStatus) Overridden() bool {
	return s == ItemReserved || s == ItemMaintenance
}

type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
)

type LendingStatus string

const (
	LendingActive   LendingStatus = "active"
	LendingOverdue  LendingStatus = "overdue"
	LendingReturned LendingStatus = "returned"
)

type Item struct {
	ID              int        `json:"-" db:"id"`
	ItemUid         string     `json:"itemUid" db:"item_uid"`
	ISBN            string     `json:"isbn" db:"isbn"`
	Title           string     `json:"title" db:"title"`
	Author          string     `json:"author" db:"author"`
	Category        string     `json:"category" db:"category"`
	Status          ItemStatus `json:"status" db:"status"`
	TotalCopies     int        `json:"totalCopies" db:"total_copies"`
	AvailableCopies int        `json:"availableCopies" db:"available_copies"`
}

type Member struct {
	ID               int          `json:"-" db:"id"`
	MemberUid        string       `json:"memberUid" db:"member_uid"`
	Name             string       `json:"name" db:"name"`
	Email            string       `json:"email" db:"email"`
	MembershipNumber string       `json:"membershipNumber" db:"membership_number"`
	Status           MemberStatus `json:"status" db:"status"`
}

type LendingRecord struct {
	ID         int           `json:"-" db:"id"`
	RecordUid  string        `json:"recordUid" db:"record_uid"`
	MemberID   int           `json:"-" db:"member_id"`
	ItemID     int           `json:"-" db:"item_id"`
	MemberUid  string        `json:"memberUid" db:"member_uid"`
	ItemUid    string        `json:"itemUid" db:"item_uid"`
	BorrowedAt time.Time     `json:"borrowedAt" db:"borrowed_at"`
	DueDate    time.Time     `json:"dueDate" db:"due_date"`
	ReturnedAt *time.Time    `json:"returnedAt,omitempty" db:"returned_at"`
	Status     LendingStatus `json:"status" db:"status"`
}

type Fine struct {
	ID        int        `json:"-" db:"id"`
	FineUid   string     `json:"fineUid" db:"fine_uid"`
	MemberID  int        `json:"-" db:"member_id"`
	RecordID  int        `json:"-" db:"record_id"`
	MemberUid string     `json:"memberUid" db:"member_uid"`
	RecordUid string     `json:"recordUid" db:"record_uid"`
	Amount    float64    `json:"amount" db:"amount"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	PaidAt    *time.Time `json:"paidAt,omitempty" db:"paid_at"`
}

type CreateItemRequest struct {
	ISBN        string `json:"isbn" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Category    string `json:"category"`
	TotalCopies int    `json:"totalCopies" validate:"required,gte=1"`
}

type UpdateItemRequest struct {
	Title    *string     `json:"title"`
	Author   *string     `json:"author"`
	Category *string     `json:"category"`
	Status   *ItemStatus `json:"status" validate:"omitempty,oneof=available borrowed reserved maintenance"`
}

type CreateMemberRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	MembershipNumber string `json:"membershipNumber" validate:"required"`
}

type UpdateMemberRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type BorrowRequest struct {
	MemberUid string `json:"memberUid" validate:"required,uuid"`
	ItemUid   string `json:"itemUid" validate:"required,uuid"`
}

type ReturnResponse struct {
	Record     LendingRecord `json:"record"`
	FineAmount float64       `json:"fineAmount"`
}

type SweepRequest struct {
	AsOf *time.Time `json:"asOf"`
}

type SweepResponse struct {
	ProcessedRecordUids []string `json:"processedRecordUids"`
}

type LendingFilter struct {
	MemberUid       string
	Status          LendingStatus
	ExcludeReturned bool
}

type FineInfo struct {
	FineUid      string        `json:"fineUid" db:"fine_uid"`
	RecordUid    string        `json:"recordUid" db:"record_uid"`
	Amount       float64       `json:"amount" db:"amount"`
	PaidAt       *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
	RecordStatus LendingStatus `json:"recordStatus" db:"record_status"`
}

// FineListRow is the flat join row the repository returns for the fines
// report; the service groups rows into MemberFines.
type FineListRow struct {
	FineUid      string        `db:"fine_uid"`
	MemberUid    string        `db:"member_uid"`
	MemberName   string        `db:"member_name"`
	MemberStatus MemberStatus  `db:"member_status"`
	RecordUid    string        `db:"record_uid"`
	RecordStatus LendingStatus `db:"record_status"`
	Amount       float64       `db:"amount"`
	PaidAt       *time.Time    `db:"paid_at"`
}

// MemberFines groups a member's fines with a running total, the shape the
// reporting endpoint serves.
type MemberFines struct {
	MemberUid    string       `json:"memberUid"`
	MemberName   string       `json:"memberName"`
	MemberStatus MemberStatus `json:"memberStatus"`
	TotalFine    float64      `json:"totalFine"`
	Fines        []FineInfo   `json:"fines"`
}
