package templateconfig

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	dErrors "rentledger/pkg/domain-errors"
)

func fieldConfig(fields ...CustomFieldDefinition) *Config {
	return &Config{
		MaxAdvanceMonths: 3,
		MinLeaseDuration: 6,
		MaxLeaseDuration: 24,
		TaxRate:          decimal.RequireFromString("0.08"),
		CustomFields:     fields,
	}
}

func TestValidateFieldValues(t *testing.T) {
	cfg := fieldConfig(
		CustomFieldDefinition{Label: "Parking Slot", Type: FieldTypeText},
		CustomFieldDefinition{Label: "Deposit", Type: FieldTypeNumber, Required: true},
		CustomFieldDefinition{Label: "Inspection Date", Type: FieldTypeDate},
	)

	cases := []struct {
		name   string
		values map[string]string
		ok     bool
	}{
		{"all valid", map[string]string{
			"Parking Slot":    "B2",
			"Deposit":         "1500.00",
			"Inspection Date": "2026-02-15",
		}, true},
		{"required only", map[string]string{"Deposit": "500"}, true},
		{"missing required field", map[string]string{"Parking Slot": "B2"}, false},
		{"empty required field", map[string]string{"Deposit": ""}, false},
		{"unknown label", map[string]string{"Deposit": "500", "Pet Policy": "no pets"}, false},
		{"number field not a number", map[string]string{"Deposit": "lots"}, false},
		{"date field malformed", map[string]string{"Deposit": "500", "Inspection Date": "15/02/2026"}, false},
		{"optional field omitted", map[string]string{"Deposit": "500", "Parking Slot": ""}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := cfg.ValidateFieldValues(tc.values)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			}
		})
	}
}

func TestValidateFieldValuesNoDefinitions(t *testing.T) {
	cfg := fieldConfig()
	assert.NoError(t, cfg.ValidateFieldValues(nil))
	assert.Error(t, cfg.ValidateFieldValues(map[string]string{"anything": "x"}))
}
