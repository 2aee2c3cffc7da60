package common

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Domain errors surfaced by the reservation engine. Handlers map these
// onto HTTP statuses; everything else is an infrastructure failure.
var (
	// ErrSlotInvalid: the requested slot violates notice or payment
	// eligibility policy. User-correctable.
	ErrSlotInvalid = errors.New("slot does not satisfy booking policy")

	// ErrSlotTaken: lost a race for the same instant.
	ErrSlotTaken = errors.New("slot is already taken")

	// ErrExpired: promote attempted on a lapsed, never-settled hold.
	ErrExpired = errors.New("reservation has expired")

	// ErrAlreadyPromoted: duplicate settlement signal. Callers treat this
	// as a silent no-op success, never a payer-visible error.
	ErrAlreadyPromoted = errors.New("reservation is already promoted")

	// ErrAlreadyConflicted: duplicate settlement signal for a reservation
	// whose conflict outcome is already recorded. Same no-op treatment as
	// ErrAlreadyPromoted; the original notification already went out.
	ErrAlreadyConflicted = errors.New("reservation conflict is already resolved")

	// ErrProviderTimeout: the busy-time provider could not answer within
	// the bounded retry budget.
	ErrProviderTimeout = errors.New("busy-time provider unavailable")
)

// exclusionViolationCode is SQLSTATE 23P01, raised by the gist exclusion
// constraint on slot claims. gorm's TranslateError only covers unique
// (23505) and foreign-key (23503) violations, so this one is matched on
// the raw driver error.
const exclusionViolationCode = "23P01"

// isSlotConflict reports whether err is storage refusing a claim on an
// occupied span: a unique violation on the exact claim tuple or the
// range exclusion constraint rejecting an overlapping interval.
func isSlotConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolationCode
}
