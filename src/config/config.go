package config

import (
	"fmt"
	"os"
	"time"

	"vitacal/src/types"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const (
	// SlotStepMinutes is the candidate-grid granularity of the
	// availability calculator.
	SlotStepMinutes = 15

	// DeferredMinLeadTime: deferred-settlement methods are not offered
	// for bookings starting sooner than this.
	DeferredMinLeadTime = 8 * 24 * time.Hour

	// DeferredReservationTTL is how long a held reservation waits for a
	// deferred payment to settle, capped so it never outlives the slot.
	DeferredReservationTTL = 7 * 24 * time.Hour

	// Reminder offsets are measured back from the reservation's
	// expires_at.
	FirstReminderOffset = 4 * 24 * time.Hour
	FinalReminderOffset = 24 * time.Hour

	SweepInterval = 2 * time.Minute

	BusyProviderTimeout = 5 * time.Second
	BusyProviderRetries = 2

	// BusyCacheTTL bounds how stale a cached busy-interval read on the
	// render path may be.
	BusyCacheTTL = 5 * time.Minute

	// DefaultRetainBasisPoints is the share withheld from a late-settling
	// payer whose slot conflicted, overridable through the settings table
	// (key refund.retain_bps, group payments).
	DefaultRetainBasisPoints = 1000

	RefundMaxAttempts = 5
)

// settlementClasses maps payment methods onto settlement behavior. New
// deferred methods only need a row here, not state-machine changes.
var settlementClasses = map[string]types.SettlementClass{
	"card":             types.SETTLEMENT_INSTANT,
	"link":             types.SETTLEMENT_INSTANT,
	"paypal":           types.SETTLEMENT_INSTANT,
	"multibanco":       types.SETTLEMENT_DEFERRED,
	"bank_transfer":    types.SETTLEMENT_DEFERRED,
	"customer_balance": types.SETTLEMENT_DEFERRED,
	"boleto":           types.SETTLEMENT_DEFERRED,
}

func SettlementClassFor(method string) (types.SettlementClass, bool) {
	class, ok := settlementClasses[method]
	return class, ok
}

func DeferredMethods() []string {
	methods := []string{}
	for m, class := range settlementClasses {
		if class == types.SETTLEMENT_DEFERRED {
			methods = append(methods, m)
		}
	}
	return methods
}
