package errs

import (
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrMemberSuspended  = errors.New("member is suspended")
	ErrUnpaidFine       = errors.New("member has unpaid fines")
	ErrBorrowLimit      = errors.New("borrowing limit reached")
	ErrOutOfStock       = errors.New("no copies available")
	ErrAlreadyReturned  = errors.New("item already returned")
	ErrAlreadyPaid      = errors.New("fine already paid")
	ErrFineExists       = errors.New("unpaid fine already exists for record")
	ErrConflict         = errors.New("concurrent update conflict")
	ErrMembershipNumber = errors.New("membership number already taken")
)
