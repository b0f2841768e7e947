package tenancy

import (
	"time"

	"github.com/shopspring/decimal"

	"rentledger/pkg/domain"
	dErrors "rentledger/pkg/domain-errors"
)

// Status is the agreement lifecycle state.
//
// Transitions:
//   - pending -> active     (tenant acceptance, the only path to active)
//   - pending -> declined   (tenant declines; terminal)
//   - active  -> terminated (either party ends the tenancy; terminal)
//   - active  -> expired    (end date passed; terminal)
type Status string

const (
	StatusPending    Status = "pending"
	StatusActive     Status = "active"
	StatusDeclined   Status = "declined"
	StatusExpired    Status = "expired"
	StatusTerminated Status = "terminated"
)

// Live reports whether the status blocks other agreements on the same unit.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusActive
}

// UnitStatus tracks unit occupancy.
type UnitStatus string

const (
	UnitVacant   UnitStatus = "vacant"
	UnitOccupied UnitStatus = "occupied"
)

// Unit is a rentable unit under a property.
//
// Invariant: a unit has at most one agreement with a live status at any time.
// The stores enforce this with a compare-and-set occupy plus a partial unique
// index; the status field alone is not trusted.
type Unit struct {
	ID          domain.UnitID     `json:"id"`
	PropertyID  domain.PropertyID `json:"property_id"`
	MonthlyRent decimal.Decimal   `json:"monthly_rent"`
	Status      UnitStatus        `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Agreement is the contractual record binding a tenant, landlord, and unit for
// a fixed term.
type Agreement struct {
	ID               domain.AgreementID `json:"id"`
	RegistrationCode string             `json:"registration_code"`

	LandlordID domain.PartyID `json:"landlord_id"`
	TenantID   domain.PartyID `json:"tenant_id"`
	UnitID     domain.UnitID  `json:"unit_id"`

	AgreedRent          decimal.Decimal `json:"agreed_rent"`
	AdvanceMonths       int             `json:"advance_months"`
	LeaseDurationMonths int             `json:"lease_duration_months"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`

	Status           Status `json:"status"`
	LandlordAccepted bool   `json:"landlord_accepted"`
	TenantAccepted   bool   `json:"tenant_accepted"`

	// ConfigVersion pins the statutory snapshot the agreement was proposed
	// under; later regulator edits never apply retroactively.
	ConfigVersion int `json:"config_version"`

	CustomFieldValues map[string]string `json:"custom_field_values"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanAccept checks the acceptance precondition for the given caller. An
// already-active agreement is acceptable again (idempotent no-op).
func (a *Agreement) CanAccept(tenantID domain.PartyID) error {
	if a.TenantID != tenantID {
		return dErrors.New(dErrors.CodePrecondition, "only the named tenant may accept")
	}
	switch a.Status {
	case StatusPending, StatusActive:
		return nil
	default:
		return dErrors.New(dErrors.CodePrecondition, "agreement is no longer pending")
	}
}

// ApplyAcceptance activates a pending agreement. No-op when already active so
// replayed acceptances leave state untouched.
func (a *Agreement) ApplyAcceptance(now time.Time) {
	if a.Status == StatusActive {
		return
	}
	a.Status = StatusActive
	a.TenantAccepted = true
	a.UpdatedAt = now
}

// CanDecline checks the decline precondition: only the named tenant, only
// while pending.
func (a *Agreement) CanDecline(tenantID domain.PartyID) error {
	if a.TenantID != tenantID {
		return dErrors.New(dErrors.CodePrecondition, "only the named tenant may decline")
	}
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodePrecondition, "only a pending agreement can be declined")
	}
	return nil
}

func (a *Agreement) ApplyDecline(now time.Time) {
	a.Status = StatusDeclined
	a.UpdatedAt = now
}

// CanTerminate checks the termination precondition: either party on the
// agreement, only while active.
func (a *Agreement) CanTerminate(actorID domain.PartyID) error {
	if actorID != a.LandlordID && actorID != a.TenantID {
		return dErrors.New(dErrors.CodePrecondition, "only a party to the agreement may terminate")
	}
	if a.Status != StatusActive {
		return dErrors.New(dErrors.CodePrecondition, "only an active agreement can be terminated")
	}
	return nil
}

func (a *Agreement) ApplyTermination(now time.Time) {
	a.Status = StatusTerminated
	a.UpdatedAt = now
}

// CanExpire checks the expiry precondition: active and past its end date.
func (a *Agreement) CanExpire(now time.Time) error {
	if a.Status != StatusActive {
		return dErrors.New(dErrors.CodePrecondition, "only an active agreement can expire")
	}
	if !now.After(a.EndDate) {
		return dErrors.New(dErrors.CodePrecondition, "agreement has not reached its end date")
	}
	return nil
}

func (a *Agreement) ApplyExpiry(now time.Time) {
	a.Status = StatusExpired
	a.UpdatedAt = now
}
