// Package filter turns client-supplied filter specifications into executable
// predicates over investment records.
//
// A specification is a JSON object mapping field names to predicates: a
// scalar (equality), a list (membership), or an object carrying range
// operators (min/max/gte/lte/between) or text operators
// (contains/startswith/regex). Fields combine conjunctively; fields absent
// from the specification are unconstrained. Everything is validated before
// any record is touched.
package filter

import (
	"ruraldata/internal/core"
)

// Spec is the wire form of a filter specification: field name (canonical or
// alias) to raw predicate, exactly as decoded from the request JSON.
type Spec map[string]any

// Limits bounds the cost a single specification may impose.
type Limits struct {
	// MaxMembershipValues caps the length of a membership list.
	MaxMembershipValues int
	// MaxRegexPattern caps the regex pattern source length, in bytes.
	MaxRegexPattern int
	// MaxRegexProgram caps the compiled regex program size, in instructions.
	MaxRegexProgram int
	// RegexInputCap caps how many bytes of field text a regex inspects.
	RegexInputCap int
}

// DefaultLimits returns the limits used when the config does not override.
func DefaultLimits() Limits {
	return Limits{
		MaxMembershipValues: 500,
		MaxRegexPattern:     256,
		MaxRegexProgram:     1500,
		RegexInputCap:       1 << 16,
	}
}

// Catalog exposes the distinct values of categorical fields in the current
// record generation. Equality and membership operands against categorical
// fields are revalidated against it, so unrecognized category strings are
// rejected outright instead of silently matching nothing.
type Catalog interface {
	// HasCategoryValue reports whether the normalized value occurs in the
	// stored distinct set for the given categorical field.
	HasCategoryValue(field, normalized string) bool
}

// Compiled is the validated, executable form of a Spec. It is immutable and
// safe to evaluate concurrently.
type Compiled struct {
	preds     []fieldPredicate
	canonical string
}

// Matches reports whether the record satisfies every field predicate.
// An empty specification matches every record.
func (c *Compiled) Matches(r *core.InvestmentRecord) bool {
	for _, p := range c.preds {
		if !p.matches(r) {
			return false
		}
	}
	return true
}

// Canonical returns the normalized canonical rendering of the specification,
// intended for logging and debugging.
func (c *Compiled) Canonical() string { return c.canonical }

// FieldCount returns the number of constrained fields.
func (c *Compiled) FieldCount() int { return len(c.preds) }
