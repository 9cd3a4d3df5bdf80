package track

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultOverrideCapacity bounds the number of tracks that can carry a manual override. The least
// recently used override is forgotten first.
const DefaultOverrideCapacity = 4096

// Overrides holds manually assigned symbol codes by track id. They outlive updates and full
// snapshots; only SetAffiliation and Clear change them. Safe for concurrent use.
type Overrides struct {
	codes *lru.Cache[string, string]
}

// NewOverrides creates an override store holding at most capacity entries.
func NewOverrides(capacity int) (*Overrides, error) {
	if capacity < 1 {
		capacity = DefaultOverrideCapacity
	}
	codes, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("NewOverrides: %w", err)
	}
	return &Overrides{codes: codes}, nil
}

// SetAffiliation stores currentEffective with its affiliation replaced and its status set to
// present, and returns the stored code.
func (o *Overrides) SetAffiliation(id string, a Affiliation, currentEffective string) string {
	code := WithStatus(WithAffiliation(currentEffective, a), StatusPresent)
	o.codes.Add(id, code)
	return code
}

// Lookup returns the override for id, if any.
func (o *Overrides) Lookup(id string) (string, bool) {
	if o == nil {
		return "", false
	}
	return o.codes.Get(id)
}

// Clear drops the override for id and reports whether one existed.
func (o *Overrides) Clear(id string) bool {
	return o.codes.Remove(id)
}

// Len returns the number of stored overrides.
func (o *Overrides) Len() int {
	return o.codes.Len()
}
