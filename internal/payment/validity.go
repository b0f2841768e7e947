package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// The validity calculator is pure and derived: every value here must be
// recomputable from the persisted obligation set alone, so it is safe to call
// concurrently from any number of readers.

// IsPaid reports whether a month counts as paid. Any one of the three signals
// suffices; tenant-marked and landlord-confirmed are independent, possibly
// redundant signals, so this is an intentional OR.
func IsPaid(o *Obligation) bool {
	return o.LandlordConfirmed || o.TenantMarkedPaid || o.Status == StatusConfirmed
}

// IsOverdue reports whether an unpaid obligation's due date has passed.
func IsOverdue(o *Obligation, today time.Time) bool {
	return !IsPaid(o) && o.DueDate.Before(today)
}

// AwaitingConfirmation reports whether the tenant has paid but the landlord
// has not yet confirmed.
func AwaitingConfirmation(o *Obligation) bool {
	return o.TenantMarkedPaid && !o.LandlordConfirmed && o.Status != StatusConfirmed
}

// Summary aggregates the derived validity and arrears values for one
// agreement's obligation set.
type Summary struct {
	TotalObligations     int             `json:"total_obligations"`
	PaidObligations      int             `json:"paid_obligations"`
	OverdueObligations   int             `json:"overdue_obligations"`
	AwaitingConfirmation int             `json:"awaiting_confirmation"`
	ValidityPercent      float64         `json:"validity_percent"`
	TotalArrears         decimal.Decimal `json:"total_arrears"`
}

// Summarize computes the four derived values over an obligation set as of
// "today". An empty set yields 0% validity and zero arrears.
func Summarize(obligations []*Obligation, today time.Time) Summary {
	summary := Summary{
		TotalObligations: len(obligations),
		TotalArrears:     decimal.Zero,
	}
	for _, o := range obligations {
		if IsPaid(o) {
			summary.PaidObligations++
		}
		if IsOverdue(o, today) {
			summary.OverdueObligations++
			summary.TotalArrears = summary.TotalArrears.Add(o.TaxAmount)
		}
		if AwaitingConfirmation(o) {
			summary.AwaitingConfirmation++
		}
	}
	if summary.TotalObligations > 0 {
		summary.ValidityPercent = 100 * float64(summary.PaidObligations) / float64(summary.TotalObligations)
	}
	return summary
}
