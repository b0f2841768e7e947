package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"rentledger/pkg/domain"
)

// Status is the persisted obligation status. Only landlord confirmation moves
// an obligation to confirmed; the tenant-side payment event is tracked on its
// own flag and surfaces through the derived awaiting-confirmation state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Obligation is one month's scheduled tax/rent split.
//
// Invariants:
//   - MonthlyRent, TaxAmount, AmountToLandlord are frozen at generation time;
//     TaxAmount + AmountToLandlord == MonthlyRent exactly
//   - Status only ever moves pending -> confirmed
//   - Each confirmation trigger writes only its own fields, so the tenant
//     payment event and the landlord confirmation can land in any order or
//     concurrently without clobbering each other
type Obligation struct {
	ID          domain.ObligationID `json:"id"`
	AgreementID domain.AgreementID  `json:"agreement_id"`

	MonthLabel string    `json:"month_label"`
	DueDate    time.Time `json:"due_date"`

	MonthlyRent      decimal.Decimal `json:"monthly_rent"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	AmountToLandlord decimal.Decimal `json:"amount_to_landlord"`

	Status            Status `json:"status"`
	TenantMarkedPaid  bool   `json:"tenant_marked_paid"`
	LandlordConfirmed bool   `json:"landlord_confirmed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyTenantPayment records the cleared tax payment. Idempotent; never
// touches Status or the landlord's flag.
func (o *Obligation) ApplyTenantPayment(now time.Time) {
	if o.TenantMarkedPaid {
		return
	}
	o.TenantMarkedPaid = true
	o.UpdatedAt = now
}

// ApplyLandlordConfirmation records the landlord's authoritative confirmation
// and settles the obligation. Idempotent; does not require the tenant to have
// marked the month paid first (cash payments are confirmed unilaterally).
func (o *Obligation) ApplyLandlordConfirmation(now time.Time) {
	if o.LandlordConfirmed && o.Status == StatusConfirmed {
		return
	}
	o.LandlordConfirmed = true
	o.Status = StatusConfirmed
	o.UpdatedAt = now
}
