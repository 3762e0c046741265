package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ruraldata/internal/core"
)

// fieldPredicate is the closed set of predicate variants the compiler emits:
// equality, membership, range, and text match. Dispatch is by concrete type,
// not runtime shape inspection of the raw specification.
type fieldPredicate interface {
	fieldName() string
	matches(r *core.InvestmentRecord) bool
	canonical() string
}

// equalityPredicate matches one exact value. Categorical and text operands
// are compared in normalized form; numeric operands numerically.
type equalityPredicate struct {
	field   core.Field
	norm    string  // normalized operand, for categorical/text fields
	num     float64 // numeric operand, for numeric fields
	display string
}

func (p *equalityPredicate) fieldName() string { return p.field.Name }

func (p *equalityPredicate) matches(r *core.InvestmentRecord) bool {
	if p.field.Kind == core.KindNumeric {
		v, ok := r.NumericField(p.field.Name)
		return ok && v == p.num
	}
	v, ok := r.StringField(p.field.Name)
	return ok && core.Normalize(v) == p.norm
}

func (p *equalityPredicate) canonical() string {
	return fmt.Sprintf("%s = %s", p.field.Name, p.display)
}

// membershipPredicate matches any value from an explicit list.
type membershipPredicate struct {
	field   core.Field
	normSet map[string]struct{}
	numSet  map[float64]struct{}
	display []string
}

func (p *membershipPredicate) fieldName() string { return p.field.Name }

func (p *membershipPredicate) matches(r *core.InvestmentRecord) bool {
	if p.field.Kind == core.KindNumeric {
		v, ok := r.NumericField(p.field.Name)
		if !ok {
			return false
		}
		_, hit := p.numSet[v]
		return hit
	}
	v, ok := r.StringField(p.field.Name)
	if !ok {
		return false
	}
	_, hit := p.normSet[core.Normalize(v)]
	return hit
}

func (p *membershipPredicate) canonical() string {
	return fmt.Sprintf("%s in [%s]", p.field.Name, strings.Join(p.display, ", "))
}

// rangePredicate matches numeric values within inclusive bounds. Either bound
// may be absent, leaving that side unbounded.
type rangePredicate struct {
	field core.Field
	lower *float64
	upper *float64
}

func (p *rangePredicate) fieldName() string { return p.field.Name }

func (p *rangePredicate) matches(r *core.InvestmentRecord) bool {
	v, ok := r.NumericField(p.field.Name)
	if !ok {
		return false
	}
	if p.lower != nil && v < *p.lower {
		return false
	}
	if p.upper != nil && v > *p.upper {
		return false
	}
	return true
}

func (p *rangePredicate) canonical() string {
	switch {
	case p.lower != nil && p.upper != nil:
		return fmt.Sprintf("%s <= %s <= %s", formatNum(*p.lower), p.field.Name, formatNum(*p.upper))
	case p.lower != nil:
		return fmt.Sprintf("%s >= %s", p.field.Name, formatNum(*p.lower))
	default:
		return fmt.Sprintf("%s <= %s", p.field.Name, formatNum(*p.upper))
	}
}

// Text match operators.
const (
	opContains   = "contains"
	opStartsWith = "startswith"
	opRegex      = "regex"
)

// textPredicate performs a case-insensitive substring or prefix test.
type textPredicate struct {
	field  core.Field
	op     string
	needle string // normalized
}

func (p *textPredicate) fieldName() string { return p.field.Name }

func (p *textPredicate) matches(r *core.InvestmentRecord) bool {
	v, ok := r.StringField(p.field.Name)
	if !ok {
		return false
	}
	norm := core.Normalize(v)
	if p.op == opStartsWith {
		return strings.HasPrefix(norm, p.needle)
	}
	return strings.Contains(norm, p.needle)
}

func (p *textPredicate) canonical() string {
	return fmt.Sprintf("%s %s %q", p.field.Name, p.op, p.needle)
}

// regexPredicate matches the compiled expression against raw field text
// (not normalized), inspecting at most inputCap bytes.
type regexPredicate struct {
	field    core.Field
	re       *regexp.Regexp
	inputCap int
}

func (p *regexPredicate) fieldName() string { return p.field.Name }

func (p *regexPredicate) matches(r *core.InvestmentRecord) bool {
	v, ok := r.StringField(p.field.Name)
	if !ok {
		return false
	}
	if p.inputCap > 0 && len(v) > p.inputCap {
		v = v[:p.inputCap]
	}
	return p.re.MatchString(v)
}

func (p *regexPredicate) canonical() string {
	return fmt.Sprintf("%s regex /%s/", p.field.Name, p.re.String())
}

// renderCanonical joins per-field canonical forms, sorted by field name so
// equivalent specifications render identically.
func renderCanonical(preds []fieldPredicate) string {
	if len(preds) == 0 {
		return "match-all"
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = p.canonical()
	}
	sort.Strings(parts)
	return strings.Join(parts, " AND ")
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
