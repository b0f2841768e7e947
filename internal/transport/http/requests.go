package httptransport

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"rentledger/internal/templateconfig"
	dErrors "rentledger/pkg/domain-errors"
)

var validate = validator.New()

// proposeRequest is the landlord's proposal payload. The landlord is the
// authenticated actor; only the counterparty and terms travel in the body.
type proposeRequest struct {
	TenantID            string            `json:"tenant_id" validate:"required,uuid4"`
	UnitID              string            `json:"unit_id" validate:"required,uuid4"`
	AgreedRent          decimal.Decimal   `json:"agreed_rent"`
	AdvanceMonths       int               `json:"advance_months" validate:"gte=0"`
	LeaseDurationMonths int               `json:"lease_duration_months" validate:"required,gt=0"`
	StartDate           string            `json:"start_date" validate:"required,datetime=2006-01-02"`
	CustomFieldValues   map[string]string `json:"custom_field_values"`
}

func (r *proposeRequest) parseStartDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.StartDate)
}

// putConfigRequest is the regulator's template configuration payload.
type putConfigRequest struct {
	MaxAdvanceMonths         int                                  `json:"max_advance_months" validate:"gte=0"`
	MinLeaseDuration         int                                  `json:"min_lease_duration" validate:"required,gt=0"`
	MaxLeaseDuration         int                                  `json:"max_lease_duration" validate:"required,gt=0"`
	TaxRate                  decimal.Decimal                      `json:"tax_rate"`
	RegistrationDeadlineDays int                                  `json:"registration_deadline_days" validate:"gte=0"`
	StandardTerms            []string                             `json:"standard_terms"`
	CustomFields             []templateconfig.CustomFieldDefinition `json:"custom_fields"`
}

// registerUnitRequest records a unit so proposals can target it.
type registerUnitRequest struct {
	PropertyID  string          `json:"property_id" validate:"required,uuid4"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return nil
}
