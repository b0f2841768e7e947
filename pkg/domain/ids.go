// Package domain holds the typed identifiers shared across the engine.
//
// Every aggregate gets its own UUID-backed type so the compiler rejects
// cross-entity mixups (passing a UnitID where an AgreementID is expected).
// Parse helpers enforce the invariant that IDs are valid, non-nil UUIDs at
// trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "rentledger/pkg/domain-errors"
)

type (
	// PartyID identifies a landlord or tenant. The engine does not care which
	// role a party plays globally; role is a per-agreement fact.
	PartyID uuid.UUID

	// PropertyID identifies a property owning one or more units.
	PropertyID uuid.UUID

	// UnitID identifies a rentable unit.
	UnitID uuid.UUID

	// AgreementID identifies a tenancy agreement.
	AgreementID uuid.UUID

	// ObligationID identifies one month's rent payment obligation.
	ObligationID uuid.UUID
)

func (id PartyID) String() string      { return uuid.UUID(id).String() }
func (id PropertyID) String() string   { return uuid.UUID(id).String() }
func (id UnitID) String() string       { return uuid.UUID(id).String() }
func (id AgreementID) String() string  { return uuid.UUID(id).String() }
func (id ObligationID) String() string { return uuid.UUID(id).String() }

// IDs travel through JSON as their canonical UUID strings. Defined types do
// not inherit methods, so the text marshalling delegates explicitly.
func (id PartyID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PropertyID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id UnitID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id AgreementID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ObligationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *PartyID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PropertyID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UnitID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AgreementID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ObligationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id PartyID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id UnitID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AgreementID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ObligationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParsePartyID(raw string) (PartyID, error) {
	parsed, err := parseUUID(raw)
	return PartyID(parsed), err
}

func ParsePropertyID(raw string) (PropertyID, error) {
	parsed, err := parseUUID(raw)
	return PropertyID(parsed), err
}

func ParseUnitID(raw string) (UnitID, error) {
	parsed, err := parseUUID(raw)
	return UnitID(parsed), err
}

func ParseAgreementID(raw string) (AgreementID, error) {
	parsed, err := parseUUID(raw)
	return AgreementID(parsed), err
}

func ParseObligationID(raw string) (ObligationID, error) {
	parsed, err := parseUUID(raw)
	return ObligationID(parsed), err
}

func NewPartyID() PartyID           { return PartyID(uuid.New()) }
func NewPropertyID() PropertyID     { return PropertyID(uuid.New()) }
func NewUnitID() UnitID             { return UnitID(uuid.New()) }
func NewAgreementID() AgreementID   { return AgreementID(uuid.New()) }
func NewObligationID() ObligationID { return ObligationID(uuid.New()) }
