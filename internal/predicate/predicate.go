// Package predicate provides the boolean tests that guard dispatch bindings.
//
// Every predicate is fail-closed: a missing field, a type mismatch or any other
// evaluation failure makes Check return false. Predicates never panic past
// their boundary and are immutable after construction.
package predicate

import (
	"fmt"
	"reflect"
	"regexp"

	"go-dispatch-cache/internal/models"
	"go-dispatch-cache/internal/urlpattern"
)

// Predicate is one boolean test evaluated against a request context
type Predicate interface {
	Check(rc *models.RequestContext) bool
}

// Func adapts a function to the Predicate interface
type Func func(rc *models.RequestContext) bool

// Check implements Predicate
func (f Func) Check(rc *models.RequestContext) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return f(rc)
}

// Always matches every context
func Always() Predicate {
	return Func(func(*models.RequestContext) bool { return true })
}

// Not inverts p. Evaluation failures of p still count as a non-match of p, so
// Not matches them.
func Not(p Predicate) Predicate {
	return Func(func(rc *models.RequestContext) bool { return !p.Check(rc) })
}

// All reports whether every predicate holds, evaluating in order and stopping
// at the first false
func All(rc *models.RequestContext, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Check(rc) {
			return false
		}
	}
	return true
}

// fieldPredicate evaluates a field path and applies a comparison to its value
type fieldPredicate struct {
	field   string
	compare func(v any) bool
}

func (p *fieldPredicate) Check(rc *models.RequestContext) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if rc == nil {
		return false
	}
	v, err := rc.Lookup(p.field)
	if err != nil {
		return false
	}
	return p.compare(v)
}

// Field builds a predicate applying compare to the value found at field
func Field(field string, compare func(v any) bool) Predicate {
	return &fieldPredicate{field: field, compare: compare}
}

// Equal matches when the value at field equals value. Numbers compare by value
// regardless of their Go type.
func Equal(field string, value any) Predicate {
	return Field(field, func(v any) bool { return equal(v, value) })
}

// In matches when the value at field equals any of values
func In(field string, values ...any) Predicate {
	candidates := append([]any(nil), values...)
	return Field(field, func(v any) bool {
		for _, c := range candidates {
			if equal(v, c) {
				return true
			}
		}
		return false
	})
}

// GreaterThan matches numeric values strictly above n
func GreaterThan(field string, n float64) Predicate {
	return numeric(field, func(x float64) bool { return x > n })
}

// GreaterOrEqual matches numeric values at or above n
func GreaterOrEqual(field string, n float64) Predicate {
	return numeric(field, func(x float64) bool { return x >= n })
}

// LessThan matches numeric values strictly below n
func LessThan(field string, n float64) Predicate {
	return numeric(field, func(x float64) bool { return x < n })
}

// LessOrEqual matches numeric values at or below n
func LessOrEqual(field string, n float64) Predicate {
	return numeric(field, func(x float64) bool { return x <= n })
}

// Between matches numeric values in the open interval (lo, hi)
func Between(field string, lo, hi float64) Predicate {
	return numeric(field, func(x float64) bool { return x > lo && x < hi })
}

func numeric(field string, test func(float64) bool) Predicate {
	return Field(field, func(v any) bool {
		x, ok := toFloat(v)
		return ok && test(x)
	})
}

// Matches compiles pattern and matches when it is found anywhere within the
// stringified value at field
func Matches(field, pattern string) (Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	return Field(field, func(v any) bool {
		if v == nil {
			return false
		}
		return re.MatchString(stringify(v))
	}), nil
}

// urlPredicate tests the request path against a compiled template
type urlPredicate struct {
	field   string
	pattern *urlpattern.Pattern
}

// DefaultPathField is the field URL predicates read the request path from
const DefaultPathField = "command.path"

// URL matches the request path against template. On success the extracted
// path parameters are written to the context's url_segments field.
func URL(template string) Predicate {
	return URLAt(DefaultPathField, template)
}

// URLAt is URL reading the path from field
func URLAt(field, template string) Predicate {
	return &urlPredicate{field: field, pattern: urlpattern.Compile(template)}
}

func (p *urlPredicate) Check(rc *models.RequestContext) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if rc == nil {
		return false
	}
	v, err := rc.Lookup(p.field)
	if err != nil {
		return false
	}
	path, isString := v.(string)
	if !isString {
		return false
	}

	matched, segments := p.pattern.Match(path)
	if !matched {
		return false
	}
	if segments == nil {
		segments = map[string]string{}
	}
	rc.Set(models.ExtURLSegments, segments)
	return true
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
