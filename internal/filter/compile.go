package filter

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"sort"
	"strconv"

	"ruraldata/internal/core"
)

// Compile validates a specification and produces its executable form.
// Validation is exhaustive and happens before any record is touched: unknown
// fields, operator/kind conflicts, inverted or partial ranges, oversized
// membership lists, and regexes that fail to compile or exceed the cost
// budget all fail here with a structured error naming the offending field.
func Compile(spec Spec, limits Limits, cat Catalog) (*Compiled, error) {
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	preds := make([]fieldPredicate, 0, len(names))
	for _, name := range names {
		field, ok := core.LookupField(name)
		if !ok {
			return nil, core.NewUnknownField(name)
		}
		p, err := compileField(name, field, spec[name], limits, cat)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}

	return &Compiled{preds: preds, canonical: renderCanonical(preds)}, nil
}

func compileField(name string, field core.Field, raw any, limits Limits, cat Catalog) (fieldPredicate, error) {
	switch v := raw.(type) {
	case string, float64, int, int64:
		return compileEquality(name, field, v, cat)
	case []any:
		return compileMembership(name, field, v, limits, cat)
	case map[string]any:
		return compileObject(name, field, v, limits)
	case nil:
		return nil, core.NewTypeMismatch(name, "predicate must not be null")
	default:
		return nil, core.NewTypeMismatch(name, fmt.Sprintf("unsupported predicate value of type %T", raw))
	}
}

func compileEquality(name string, field core.Field, raw any, cat Catalog) (fieldPredicate, error) {
	if field.Kind == core.KindNumeric {
		n, ok := asNumber(raw)
		if !ok {
			return nil, core.NewTypeMismatch(name, "numeric field requires a numeric value")
		}
		return &equalityPredicate{field: field, num: n, display: formatNum(n)}, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, core.NewTypeMismatch(name, fmt.Sprintf("%s field requires a string value", field.Kind))
	}
	norm := core.Normalize(s)
	if field.Kind == core.KindCategorical && cat != nil && !cat.HasCategoryValue(field.Name, norm) {
		return nil, core.NewTypeMismatch(name, fmt.Sprintf("%q is not a known %s value", s, field.Name))
	}
	return &equalityPredicate{field: field, norm: norm, display: strconv.Quote(norm)}, nil
}

func compileMembership(name string, field core.Field, values []any, limits Limits, cat Catalog) (fieldPredicate, error) {
	if len(values) == 0 {
		return nil, core.NewTypeMismatch(name, "membership list must not be empty")
	}
	if limits.MaxMembershipValues > 0 && len(values) > limits.MaxMembershipValues {
		return nil, core.NewMembershipTooLarge(name, len(values), limits.MaxMembershipValues)
	}

	p := &membershipPredicate{field: field}
	if field.Kind == core.KindNumeric {
		p.numSet = make(map[float64]struct{}, len(values))
		for _, raw := range values {
			n, ok := asNumber(raw)
			if !ok {
				return nil, core.NewTypeMismatch(name, "membership list for a numeric field requires numeric values")
			}
			p.numSet[n] = struct{}{}
			p.display = append(p.display, formatNum(n))
		}
		return p, nil
	}

	p.normSet = make(map[string]struct{}, len(values))
	for _, raw := range values {
		s, ok := raw.(string)
		if !ok {
			return nil, core.NewTypeMismatch(name, fmt.Sprintf("membership list for a %s field requires string values", field.Kind))
		}
		norm := core.Normalize(s)
		if field.Kind == core.KindCategorical && cat != nil && !cat.HasCategoryValue(field.Name, norm) {
			return nil, core.NewTypeMismatch(name, fmt.Sprintf("%q is not a known %s value", s, field.Name))
		}
		p.normSet[norm] = struct{}{}
		p.display = append(p.display, strconv.Quote(norm))
	}
	return p, nil
}

// Operator key sets for object-shaped predicates. A single object may carry
// operators of exactly one predicate kind.
var (
	rangeOps = map[string]bool{"min": true, "max": true, "gte": true, "lte": true, "between": true}
	textOps  = map[string]bool{opContains: true, opStartsWith: true, opRegex: true}
)

func compileObject(name string, field core.Field, m map[string]any, limits Limits) (fieldPredicate, error) {
	if len(m) == 0 {
		return nil, core.NewTypeMismatch(name, "predicate object must carry at least one operator")
	}

	hasRange, hasText := false, false
	for op := range m {
		switch {
		case rangeOps[op]:
			hasRange = true
		case textOps[op]:
			hasText = true
		default:
			return nil, core.NewTypeMismatch(name, fmt.Sprintf("unsupported operator %q", op))
		}
	}
	if hasRange && hasText {
		return nil, core.NewTypeMismatch(name, "predicate mixes range and text operators")
	}
	if hasText {
		return compileText(name, field, m, limits)
	}
	return compileRange(name, field, m)
}

func compileRange(name string, field core.Field, m map[string]any) (fieldPredicate, error) {
	if field.Kind != core.KindNumeric {
		return nil, core.NewTypeMismatch(name, fmt.Sprintf("range predicate requires a numeric field, %s is %s", field.Name, field.Kind))
	}

	if between, ok := m["between"]; ok {
		if len(m) > 1 {
			return nil, core.NewInvalidRange(name, "between cannot be combined with other bounds")
		}
		arr, ok := between.([]any)
		if !ok || len(arr) != 2 {
			return nil, core.NewInvalidRange(name, "between requires exactly [lo, hi]")
		}
		lo, okLo := asNumber(arr[0])
		hi, okHi := asNumber(arr[1])
		if !okLo || !okHi {
			return nil, core.NewTypeMismatch(name, "between bounds must be numeric")
		}
		if lo > hi {
			return nil, core.NewInvalidRange(name, fmt.Sprintf("inverted bounds: %s > %s", formatNum(lo), formatNum(hi)))
		}
		return &rangePredicate{field: field, lower: &lo, upper: &hi}, nil
	}

	var lower, upper *float64
	bind := func(op string, dst **float64, side string) error {
		raw, ok := m[op]
		if !ok {
			return nil
		}
		if *dst != nil {
			return core.NewInvalidRange(name, fmt.Sprintf("duplicate %s bound", side))
		}
		n, ok := asNumber(raw)
		if !ok {
			return core.NewTypeMismatch(name, fmt.Sprintf("%s bound must be numeric", op))
		}
		*dst = &n
		return nil
	}
	for _, op := range []string{"min", "gte"} {
		if err := bind(op, &lower, "lower"); err != nil {
			return nil, err
		}
	}
	for _, op := range []string{"max", "lte"} {
		if err := bind(op, &upper, "upper"); err != nil {
			return nil, err
		}
	}
	if lower != nil && upper != nil && *lower > *upper {
		return nil, core.NewInvalidRange(name, fmt.Sprintf("inverted bounds: %s > %s", formatNum(*lower), formatNum(*upper)))
	}
	return &rangePredicate{field: field, lower: lower, upper: upper}, nil
}

func compileText(name string, field core.Field, m map[string]any, limits Limits) (fieldPredicate, error) {
	if len(m) > 1 {
		return nil, core.NewTypeMismatch(name, "at most one text operator per field")
	}
	if field.Kind != core.KindText {
		return nil, core.NewTypeMismatch(name, fmt.Sprintf("text predicate requires a text field, %s is %s", field.Name, field.Kind))
	}

	var op string
	for k := range m {
		op = k
	}
	s, ok := m[op].(string)
	if !ok {
		return nil, core.NewTypeMismatch(name, fmt.Sprintf("%s operand must be a string", op))
	}

	if op == opRegex {
		return compileRegex(name, field, s, limits)
	}
	return &textPredicate{field: field, op: op, needle: core.Normalize(s)}, nil
}

// compileRegex enforces the compile-time half of the regex budget: pattern
// source length and compiled program size. The evaluation-time half (input
// cap and scan deadline) lives in the predicate and the executor.
func compileRegex(name string, field core.Field, pattern string, limits Limits) (fieldPredicate, error) {
	if limits.MaxRegexPattern > 0 && len(pattern) > limits.MaxRegexPattern {
		return nil, core.NewInvalidRegex(name, fmt.Sprintf("pattern length %d exceeds cap %d", len(pattern), limits.MaxRegexPattern))
	}
	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, core.NewInvalidRegex(name, err.Error())
	}
	prog, err := syntax.Compile(parsed.Simplify())
	if err != nil {
		return nil, core.NewInvalidRegex(name, err.Error())
	}
	if limits.MaxRegexProgram > 0 && len(prog.Inst) > limits.MaxRegexProgram {
		return nil, core.NewInvalidRegex(name, fmt.Sprintf("compiled program size %d exceeds budget %d", len(prog.Inst), limits.MaxRegexProgram))
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, core.NewInvalidRegex(name, err.Error())
	}
	return &regexPredicate{field: field, re: re, inputCap: limits.RegexInputCap}, nil
}

// asNumber accepts the numeric shapes a decoded JSON body or a parsed query
// string can produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
