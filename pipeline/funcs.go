package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

var (
	// ErrUnknownOperator is returned for an operator name Compile does not
	// know.
	ErrUnknownOperator = errors.New("pipeline: unknown operator")

	// ErrUnknownFunction is returned for an unknown named function or
	// predicate.
	ErrUnknownFunction = errors.New("pipeline: unknown function")

	// ErrMissingParam is returned when an operator lacks a required
	// parameter.
	ErrMissingParam = errors.New("pipeline: missing parameter")

	// ErrInvalidSource is returned for a malformed source.
	ErrInvalidSource = errors.New("pipeline: invalid source")

	// ErrTypeMismatch is the failure of a stream whose value does not fit
	// the named function.
	ErrTypeMismatch = errors.New("pipeline: type mismatch")
)

type unaryFunc func(v any) (any, error)

type binaryFunc func(acc, v any) (any, error)

// predicateFunc is built from the operator's Value argument.
type predicateFunc func(arg any) func(v any) bool

var unaryFuncs = map[string]unaryFunc{
	"neg": func(v any) (any, error) {
		n, err := number(v)
		return -n, err
	},
	"double": func(v any) (any, error) {
		n, err := number(v)
		return 2 * n, err
	},
	"upper": func(v any) (any, error) {
		s, err := text(v)
		return strings.ToUpper(s), err
	},
	"lower": func(v any) (any, error) {
		s, err := text(v)
		return strings.ToLower(s), err
	},
	"string": func(v any) (any, error) {
		return fmt.Sprint(v), nil
	},
}

var binaryFuncs = map[string]binaryFunc{
	"add": numeric(func(a, b float64) float64 { return a + b }),
	"mul": numeric(func(a, b float64) float64 { return a * b }),
	"max0_add": numeric(func(a, b float64) float64 {
		return math.Max(0, a+b)
	}),
	"concat": func(acc, v any) (any, error) {
		a, err := text(acc)
		if err != nil {
			return nil, err
		}
		b, err := text(v)
		return a + b, err
	},
}

var predicates = map[string]predicateFunc{
	"even": fixed(func(v any) bool {
		n, ok := v.(float64)
		return ok && n == math.Trunc(n) && math.Mod(n, 2) == 0
	}),
	"odd": fixed(func(v any) bool {
		n, ok := v.(float64)
		return ok && n == math.Trunc(n) && math.Mod(n, 2) != 0
	}),
	"positive": fixed(func(v any) bool {
		n, ok := v.(float64)
		return ok && n > 0
	}),
	"negative": fixed(func(v any) bool {
		n, ok := v.(float64)
		return ok && n < 0
	}),
	"nonempty": fixed(func(v any) bool {
		s, ok := v.(string)
		return ok && s != ""
	}),
	"equals": func(arg any) func(any) bool {
		return func(v any) bool { return equal(v, arg) }
	},
	// in matches strings contained, case-insensitively, in the argument.
	"in": func(arg any) func(any) bool {
		hay, _ := arg.(string)
		hay = strings.ToLower(hay)
		return func(v any) bool {
			s, ok := v.(string)
			return ok && s != "" && strings.Contains(hay, strings.ToLower(s))
		}
	},
}

func fixed(f func(any) bool) predicateFunc {
	return func(any) func(any) bool { return f }
}

func numeric(f func(a, b float64) float64) binaryFunc {
	return func(acc, v any) (any, error) {
		a, err := number(acc)
		if err != nil {
			return nil, err
		}
		b, err := number(v)
		if err != nil {
			return nil, err
		}
		return f(a, b), nil
	}
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: want number, got %T", ErrTypeMismatch, v)
	}
}

func text(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", ErrTypeMismatch, v)
	}
	return s, nil
}

// equal compares scalar values; ints and float64s compare numerically.
func equal(a, b any) bool {
	if x, err := number(a); err == nil {
		y, err := number(b)
		return err == nil && x == y
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return a == nil && b == nil
}

// less orders numbers numerically and strings lexically. Values of
// different kinds order numbers before strings before everything else.
func less(a, b any) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	switch x := a.(type) {
	case float64:
		return x < b.(float64)
	case string:
		return x < b.(string)
	case bool:
		return !x && b.(bool)
	}
	return false
}

func rank(v any) int {
	switch v.(type) {
	case float64:
		return 0
	case string:
		return 1
	case bool:
		return 2
	default:
		return 3
	}
}

// FunctionNames lists the names usable in "fn" for each category, sorted.
func FunctionNames() (unary, binary, preds []string) {
	return slices.Sorted(maps.Keys(unaryFuncs)),
		slices.Sorted(maps.Keys(binaryFuncs)),
		slices.Sorted(maps.Keys(predicates))
}
