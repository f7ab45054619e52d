// Package auth consumes authentication results from external identity
// provider wrappers on behalf of auth-flavored containers. The core
// never sees raw provider responses: user data passes through an
// explicit field allow-list before anything is published, and token
// material is stripped unconditionally.
package auth

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/machine"
)

// DefaultAllowedFields is the stock user-data allow-list.
var DefaultAllowedFields = []string{"id", "name", "email", "picture", "locale"}

// tokenMarkers are substrings that mark a field as credential material.
// Such fields never pass the filter, allow-listed or not.
var tokenMarkers = []string{"token", "secret", "password", "credential"}

// Result is the generic shape an identity-provider wrapper reports
// when a flow finishes.
type Result struct {
	Provider string

	Success bool

	// UserData is the provider's raw user JSON. May be nil on failure.
	UserData []byte
}

// Aspect receives provider results, filters them, and publishes
// auth.completed changes.
type Aspect struct {
	bus     *event.Bus
	log     machine.Logger
	allowed []string
}

// Option configures an Aspect.
type Option func(*Aspect)

// WithAllowedFields replaces the user-data allow-list.
func WithAllowedFields(fields []string) Option {
	return func(a *Aspect) {
		if len(fields) > 0 {
			a.allowed = fields
		}
	}
}

// New creates an aspect publishing to bus. A nil log discards
// diagnostics.
func New(bus *event.Bus, log machine.Logger, opts ...Option) *Aspect {
	if log == nil {
		log = machine.NopLogger{}
	}
	a := &Aspect{bus: bus, log: log, allowed: DefaultAllowedFields}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Complete ingests one provider result. Failed flows publish with no
// user data at all.
func (a *Aspect) Complete(res Result) {
	var filtered []byte
	if res.Success && len(res.UserData) > 0 {
		filtered = Filter(res.UserData, a.allowed)
	}
	a.log.Info("auth flow finished: provider=%s success=%v", res.Provider, res.Success)
	a.bus.Publish(event.NewChange(event.TopicAuthCompleted, "", event.AuthPayload{
		Provider: res.Provider,
		Success:  res.Success,
		UserData: filtered,
	}))
}

// Filter copies only the allow-listed top-level fields out of the
// provider JSON. Fields that look like credential material are dropped
// even when allow-listed. Malformed input yields an empty object.
func Filter(data []byte, allowed []string) []byte {
	out := []byte("{}")
	if !gjson.ValidBytes(data) {
		return out
	}
	for _, field := range allowed {
		if isTokenField(field) {
			continue
		}
		v := gjson.GetBytes(data, field)
		if !v.Exists() {
			continue
		}
		next, err := sjson.SetBytes(out, field, v.Value())
		if err != nil {
			continue
		}
		out = next
	}
	return out
}

func isTokenField(field string) bool {
	lower := strings.ToLower(field)
	for _, marker := range tokenMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
