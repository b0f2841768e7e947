package tenancy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewRegistrationCode builds a regulator-facing registration code:
// TR-<region>-<year>-<8 hex chars>, e.g. TR-01-2026-9F3A41BC.
//
// The region/year prefix gives regulators traceability; global uniqueness
// comes from the random suffix and is ultimately enforced by the store's
// unique constraint.
func NewRegistrationCode(region string, year int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TR-%s-%d-%s", strings.ToUpper(region), year, suffix)
}
