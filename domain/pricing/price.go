// Package pricing provides flavor price records, price snapshots, and the
// price schedule builder. All functions are pure - no side effects.
package pricing

import (
	"fmt"
	"time"

	"github.com/cloudbill/cloudbill/domain/usage"
)

// Class is a billing tier assigned to a user or project. Valid classes are
// 1 through NumClasses; the class selects which price row applies.
type Class int

// NumClasses is the number of fixed billing tiers.
const NumClasses = 6

// ParseClass validates a raw class value.
func ParseClass(n int) (Class, error) {
	if n < 1 || n > NumClasses {
		return 0, usage.ValidationError{
			Field:  "user_class",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", NumClasses, n),
		}
	}
	return Class(n), nil
}

// Valid reports whether the class is one of the fixed billing tiers.
func (c Class) Valid() bool {
	return c >= 1 && c <= NumClasses
}

// Flavor identifies a compute instance size/type, the unit of pricing.
type Flavor struct {
	ID   string
	Name string
}

// Price is one flavor price record (immutable value type). A record is in
// effect for its (flavor, class) pair from ValidFrom until the ValidFrom of
// the next later record for the same pair, or indefinitely if none follows.
type Price struct {
	ID         string
	FlavorID   string
	FlavorName string
	Class      Class
	PerYear    float64 // currency units per flavor-year
	ValidFrom  time.Time
}

// Snapshot is the complete price table at one instant: a total mapping
// (class, flavor name) -> yearly rate, defaulting to 0 for any combination
// never priced.
type Snapshot map[Class]map[string]float64

// NewSnapshot initializes every (class, flavor) combination known to the
// system with a zero rate.
func NewSnapshot(flavors []Flavor) Snapshot {
	s := make(Snapshot, NumClasses)
	for c := Class(1); c <= NumClasses; c++ {
		rates := make(map[string]float64, len(flavors))
		for _, f := range flavors {
			rates[f.Name] = 0
		}
		s[c] = rates
	}
	return s
}

// Set records a yearly rate for a (class, flavor) combination.
func (s Snapshot) Set(class Class, flavor string, perYear float64) {
	rates, ok := s[class]
	if !ok {
		rates = make(map[string]float64)
		s[class] = rates
	}
	rates[flavor] = perYear
}

// Rate returns the yearly rate for a (class, flavor) combination, zero if
// the combination was never priced.
func (s Snapshot) Rate(class Class, flavor string) float64 {
	return s[class][flavor]
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for class, rates := range s {
		copied := make(map[string]float64, len(rates))
		for flavor, rate := range rates {
			copied[flavor] = rate
		}
		out[class] = copied
	}
	return out
}
