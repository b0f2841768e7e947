package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rentledger/pkg/domain-errors"
)

// TestParseUUID_Invariants validates that IDs must be valid, non-empty,
// non-nil UUIDs at trust boundaries.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAgreementID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAgreementID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePartyID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseObligationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ObligationID(valid), id)
	})
}

// TestJSONRoundTrip verifies IDs serialize as canonical UUID strings so
// clients can feed a returned id straight back into a path parameter.
func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		AgreementID AgreementID `json:"agreement_id"`
		UnitID      UnitID      `json:"unit_id"`
		PartyID     PartyID     `json:"party_id"`
	}
	in := payload{
		AgreementID: NewAgreementID(),
		UnitID:      NewUnitID(),
		PartyID:     NewPartyID(),
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var asStrings map[string]string
	require.NoError(t, json.Unmarshal(raw, &asStrings))
	assert.Equal(t, in.AgreementID.String(), asStrings["agreement_id"])
	assert.Equal(t, in.UnitID.String(), asStrings["unit_id"])
	assert.Equal(t, in.PartyID.String(), asStrings["party_id"])

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// kinds. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	partyID := NewPartyID()
	unitID := NewUnitID()

	// These would fail to compile if the types were interchangeable:
	// var _ PartyID = unitID   // compile error
	// var _ UnitID = partyID   // compile error

	assert.NotEqual(t, uuid.UUID(partyID), uuid.UUID(unitID))
}
