// Package order provides a total ordering over values that optionally expose a
// precedence through the Ordered interface.
//
// Lower precedence values sort first. Values that do not implement Ordered are
// treated as LowestPrecedence and therefore sort last. All sorts are stable, so
// values with equal or absent precedence keep their input order.
package order

import (
	"cmp"
	"iter"
	"math"
	"slices"
)

const (
	// HighestPrecedence sorts before every other value.
	HighestPrecedence = math.MinInt32

	// LowestPrecedence is the precedence of values that do not implement Ordered.
	LowestPrecedence = math.MaxInt32
)

// Ordered is implemented by values that carry an explicit precedence.
type Ordered interface {
	Order() int
}

// OrderOf returns the precedence of v, or LowestPrecedence when v does not
// implement Ordered.
func OrderOf(v any) int {
	if o, ok := v.(Ordered); ok {
		return o.Order()
	}
	return LowestPrecedence
}

// Compare orders a before b when a has the lower precedence.
func Compare(a, b any) int {
	return cmp.Compare(OrderOf(a), OrderOf(b))
}

// Sort sorts s in ascending precedence.
func Sort[T any](s []T) {
	slices.SortStableFunc(s, func(a, b T) int {
		return Compare(a, b)
	})
}

// ReverseSort sorts s in descending precedence. The result is the exact
// reverse of what Sort produces for the same input.
func ReverseSort[T any](s []T) {
	Sort(s)
	slices.Reverse(s)
}

// SortSeq returns the values of seq in ascending precedence. The sequence is
// consumed once when the returned sequence is first iterated.
func SortSeq[T any](seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		s := slices.Collect(seq)
		Sort(s)
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// ReverseSortSeq returns the values of seq in descending precedence.
func ReverseSortSeq[T any](seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		s := slices.Collect(seq)
		ReverseSort(s)
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}
