package common

import (
	"log"

	"vitacal/src/config"
	"vitacal/src/db"
	"vitacal/src/models"
)

// RefundSplit is the payout division for a conflicted reservation, in the
// currency's minor unit. Refund + Retained always equals the original
// amount exactly.
type RefundSplit struct {
	Refund   int64 `json:"refund"`
	Retained int64 `json:"retained"`
}

// ComputeRefund splits a minor-unit amount between the payer and the
// platform. retainBps is the retained share in basis points. The refund
// is rounded half-even against the exact rate; the retained amount
// absorbs the rounding remainder because the refund figure is the
// customer-facing one.
func ComputeRefund(amount int64, retainBps int64) RefundSplit {
	if amount <= 0 {
		return RefundSplit{Refund: 0, Retained: amount}
	}
	if retainBps < 0 {
		retainBps = 0
	}
	if retainBps > 10000 {
		retainBps = 10000
	}
	num := amount * (10000 - retainBps)
	refund := num / 10000
	rem := num % 10000
	if rem*2 > 10000 || (rem*2 == 10000 && refund%2 == 1) {
		refund++
	}
	return RefundSplit{Refund: refund, Retained: amount - refund}
}

// RetainBasisPoints returns the configured retained share for conflicted
// late settlements. Overridable at runtime through the settings table
// (key refund.retain_bps, group payments); falls back to the compiled
// default.
func RetainBasisPoints() int64 {
	conn := db.GetDb()
	var setting models.Setting
	err := conn.
		Where(&models.Setting{SettingKey: "refund.retain_bps", Group: "payments"}).
		First(&setting).
		Error
	if err != nil {
		return config.DefaultRetainBasisPoints
	}
	if v, ok := setting.SettingValue.Inner.(float64); ok && v >= 0 && v <= 10000 {
		return int64(v)
	}
	log.Printf("[Settings] refund.retain_bps has unusable value, using default\n")
	return config.DefaultRetainBasisPoints
}
