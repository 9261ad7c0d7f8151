package requirement

import (
	"fmt"
	"math"
	"strings"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEq       Operator = "=="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
	OpIn       Operator = "in"
)

func isWordOperator(w string) bool {
	switch Operator(strings.ToLower(w)) {
	case OpContains, OpMatches, OpIn:
		return true
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compare(e *comparisonExpr, got any) (bool, error) {
	switch e.op {
	case OpEq:
		return equal(got, e.value), nil
	case OpNeq:
		return !equal(got, e.value), nil
	case OpGt, OpGte, OpLt, OpLte:
		l, lok := toFloat64(got)
		r, rok := toFloat64(e.value)
		if !lok || !rok {
			return false, fmt.Errorf("%s %s: needs numbers, got %T and %T", strings.Join(e.field, "."), e.op, got, e.value)
		}
		switch e.op {
		case OpGt:
			return l > r, nil
		case OpGte:
			return l >= r, nil
		case OpLt:
			return l < r, nil
		}
		return l <= r, nil
	case OpContains:
		switch c := got.(type) {
		case string:
			return strings.Contains(c, fmt.Sprint(e.value)), nil
		case []string:
			for _, item := range c {
				if equal(item, e.value) {
					return true, nil
				}
			}
			return false, nil
		}
		return false, fmt.Errorf("%s contains: needs a string or list, got %T", strings.Join(e.field, "."), got)
	case OpMatches:
		s, ok := got.(string)
		if !ok {
			return false, fmt.Errorf("%s matches: needs a string, got %T", strings.Join(e.field, "."), got)
		}
		return e.re.MatchString(s), nil
	case OpIn:
		for _, item := range e.value.([]any) {
			if equal(got, item) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown operator %q", e.op)
}

// equal compares numbers by value, booleans strictly and everything else by
// its printed form.
func equal(left, right any) bool {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if lok && rok {
		return math.Abs(lf-rf) < 1e-9
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	return fmt.Sprint(left) == fmt.Sprint(right)
}
