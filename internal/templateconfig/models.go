package templateconfig

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	dErrors "rentledger/pkg/domain-errors"
)

// FieldType enumerates the value types a regulator-defined custom field may take.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate:
		return true
	}
	return false
}

// CustomFieldDefinition is one regulator-defined field every agreement must be
// able to carry. Order is significant for document rendering.
type CustomFieldDefinition struct {
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Config is the statutory agreement template configuration.
//
// Invariants:
//   - Exactly one live instance exists (store enforces the singleton row)
//   - 0 < MinLeaseDuration <= MaxLeaseDuration
//   - MaxAdvanceMonths >= 0
//   - 0 <= TaxRate < 1
//   - Custom field labels are unique and carry a valid type
//
// The regulator owns all mutations. Proposals receive a snapshot; config edits
// never retroactively affect existing agreements.
type Config struct {
	MaxAdvanceMonths         int                     `json:"max_advance_months"`
	MinLeaseDuration         int                     `json:"min_lease_duration"`
	MaxLeaseDuration         int                     `json:"max_lease_duration"`
	TaxRate                  decimal.Decimal         `json:"tax_rate"`
	RegistrationDeadlineDays int                     `json:"registration_deadline_days"`
	StandardTerms            []string                `json:"standard_terms"`
	CustomFields             []CustomFieldDefinition `json:"custom_fields"`
	Version                  int                     `json:"version"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

// Validate checks the statutory bounds the regulator may set.
func (c *Config) Validate() error {
	if c.MaxAdvanceMonths < 0 {
		return dErrors.New(dErrors.CodeValidation, "max advance months must not be negative")
	}
	if c.MinLeaseDuration <= 0 {
		return dErrors.New(dErrors.CodeValidation, "minimum lease duration must be positive")
	}
	if c.MaxLeaseDuration < c.MinLeaseDuration {
		return dErrors.New(dErrors.CodeValidation, "maximum lease duration must not be below the minimum")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return dErrors.New(dErrors.CodeValidation, "tax rate must be a fraction in [0, 1)")
	}
	if c.RegistrationDeadlineDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "registration deadline days must not be negative")
	}
	seen := make(map[string]bool, len(c.CustomFields))
	for _, field := range c.CustomFields {
		if field.Label == "" {
			return dErrors.New(dErrors.CodeValidation, "custom field label must not be empty")
		}
		if !field.Type.Valid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q has unknown type %q", field.Label, field.Type))
		}
		if seen[field.Label] {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field label %q is duplicated", field.Label))
		}
		seen[field.Label] = true
	}
	return nil
}

// ValidateFieldValues checks submitted custom field values against the
// definitions: required fields present and non-empty, values parseable per
// type, no values for labels the regulator never defined.
func (c *Config) ValidateFieldValues(values map[string]string) error {
	byLabel := make(map[string]CustomFieldDefinition, len(c.CustomFields))
	for _, field := range c.CustomFields {
		byLabel[field.Label] = field
	}

	for label := range values {
		if _, ok := byLabel[label]; !ok {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown custom field %q", label))
		}
	}

	for _, field := range c.CustomFields {
		value, present := values[field.Label]
		if value == "" {
			if field.Required {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q is required", field.Label))
			}
			continue
		}
		if !present {
			continue
		}
		switch field.Type {
		case FieldTypeNumber:
			if _, err := decimal.NewFromString(value); err != nil {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q must be a number", field.Label))
			}
		case FieldTypeDate:
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("custom field %q must be a date (YYYY-MM-DD)", field.Label))
			}
		}
	}
	return nil
}
