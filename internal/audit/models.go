package audit

import "time"

// Action names for the audited engine transitions.
const (
	ActionTenancyProposed   = "tenancy_proposed"
	ActionTenancyAccepted   = "tenancy_accepted"
	ActionTenancyDeclined   = "tenancy_declined"
	ActionTenancyTerminated = "tenancy_terminated"
	ActionTenancyExpired    = "tenancy_expired"
	ActionTenantMarkedPaid  = "obligation_tenant_marked"
	ActionLandlordConfirmed = "obligation_confirmed"
	ActionConfigUpdated     = "config_updated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp        time.Time `json:"timestamp"`
	Action           string    `json:"action"`
	ActorID          string    `json:"actor_id,omitempty"`
	AgreementID      string    `json:"agreement_id,omitempty"`
	ObligationID     string    `json:"obligation_id,omitempty"`
	UnitID           string    `json:"unit_id,omitempty"`
	RegistrationCode string    `json:"registration_code,omitempty"`
	Detail           string    `json:"detail,omitempty"`
}
