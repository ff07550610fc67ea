// Package sum computes 1 + 2 + ... + n three ways.
package sum

import "errors"

// MaxN is the largest n whose sum fits in an int64.
const MaxN int64 = 4294967295

// MaxRecursionDepth bounds Recursive so it cannot exhaust the stack.
const MaxRecursionDepth int64 = 1_000_000

var (
	ErrNegative = errors.New("sum: n must not be negative")
	ErrOverflow = errors.New("sum: result overflows int64")
	ErrTooDeep  = errors.New("sum: n exceeds recursion depth limit")
)

func check(n int64) error {
	if n < 0 {
		return ErrNegative
	}
	if n > MaxN {
		return ErrOverflow
	}
	return nil
}

// Iterative adds the terms in a loop.
func Iterative(n int64) (int64, error) {
	if err := check(n); err != nil {
		return 0, err
	}
	var total int64
	for i := int64(1); i <= n; i++ {
		total += i
	}
	return total, nil
}

// Recursive adds the terms by recursion and refuses n above MaxRecursionDepth.
func Recursive(n int64) (int64, error) {
	if err := check(n); err != nil {
		return 0, err
	}
	if n > MaxRecursionDepth {
		return 0, ErrTooDeep
	}
	return recurse(n), nil
}

func recurse(n int64) int64 {
	if n == 0 {
		return 0
	}
	return n + recurse(n-1)
}

// Formula returns n(n+1)/2, halving the even factor first.
func Formula(n int64) (int64, error) {
	if err := check(n); err != nil {
		return 0, err
	}
	if n%2 == 0 {
		return (n / 2) * (n + 1), nil
	}
	return n * ((n + 1) / 2), nil
}

// Method names one of the implementations.
type Method string

const (
	MethodIterative Method = "iterative"
	MethodRecursive Method = "recursive"
	MethodFormula   Method = "formula"
)

// Methods lists the implementations in a stable order.
var Methods = []Method{MethodIterative, MethodRecursive, MethodFormula}

// ErrUnknownMethod is returned by Compute for an unrecognized method.
var ErrUnknownMethod = errors.New("sum: unknown method")

// Compute dispatches to the named implementation.
func Compute(m Method, n int64) (int64, error) {
	switch m {
	case MethodIterative:
		return Iterative(n)
	case MethodRecursive:
		return Recursive(n)
	case MethodFormula:
		return Formula(n)
	}
	return 0, ErrUnknownMethod
}
