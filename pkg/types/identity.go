package types

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is the opaque token that addresses one dataset and its store.
// Identities are canonical UUID strings, minted once and never reused.
type Identity string

// Storage naming.
const (
	// TableName is the single table every materialized store holds.
	TableName = "data_table"

	// StoreExt is the file extension of a physical store.
	StoreExt = ".sqlite"

	// DefaultReservedIdentity is exempt from retention sweeps.
	DefaultReservedIdentity Identity = "921c838c-541d-4361-8c96-70cb23abd9f5"
)

// NewIdentity mints a fresh UUID v7 identity.
func NewIdentity() Identity {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return Identity(uuid.New().String())
	}
	return Identity(id.String())
}

// ParseIdentity validates s and returns it in canonical form.
// Tokens that are not UUIDs cannot name a dataset.
func ParseIdentity(s string) (Identity, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", ErrDatasetNotFound
	}
	return Identity(id.String()), nil
}

// FileName returns the store file name for the identity.
func (id Identity) FileName() string {
	return string(id) + StoreExt
}

func (id Identity) String() string {
	return string(id)
}
