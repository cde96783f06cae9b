package rewind

import (
	"encoding/json"
	"reflect"
)

type (
	// State is one immutable point on a Controller's timeline. Past is oldest
	// first, and Future is nearest-redo first. A State handed out by a
	// Controller is never modified afterward, so callers must not modify it
	// either
	State[T any] struct {
		Past    []T `json:"past" yaml:"past"`
		Present T   `json:"present" yaml:"present"`
		Future  []T `json:"future" yaml:"future"`
	}

	// Equality decides whether two values are the same for the purpose of
	// suppressing no-op transitions
	Equality[T any] func(a, b T) bool
)

// NewState returns a State with an empty past and future
func NewState[T any](present T) *State[T] {
	return &State[T]{
		Past:    []T{},
		Present: present,
		Future:  []T{},
	}
}

// CanUndo reports whether the State has anything in its past
func (s *State[_]) CanUndo() bool {
	return len(s.Past) > 0
}

// CanRedo reports whether the State has anything in its future
func (s *State[_]) CanRedo() bool {
	return len(s.Future) > 0
}

// Trim returns the last maxSize elements of past, dropping the oldest. A
// maxSize of zero or less means unbounded, and past is returned as is
func Trim[T any](past []T, maxSize int) []T {
	if maxSize <= 0 || len(past) <= maxSize {
		return past
	}
	return past[len(past)-maxSize:]
}

// DeepEqual is the default Equality, backed by reflect.DeepEqual
func DeepEqual[T any]() Equality[T] {
	return func(a, b T) bool {
		return reflect.DeepEqual(a, b)
	}
}

// Comparable returns an Equality using the == operator
func Comparable[T comparable]() Equality[T] {
	return func(a, b T) bool {
		return a == b
	}
}

// JSONEqual returns an Equality that compares the JSON encodings of both
// values. Values that fail to encode are never equal
func JSONEqual[T any]() Equality[T] {
	return func(a, b T) bool {
		ab, err := json.Marshal(a)
		if err != nil {
			return false
		}
		bb, err := json.Marshal(b)
		if err != nil {
			return false
		}
		return string(ab) == string(bb)
	}
}

func appendTrimmed[T any](past []T, value T, maxSize int) []T {
	res := make([]T, len(past), len(past)+1)
	copy(res, past)
	return Trim(append(res, value), maxSize)
}

func prepend[T any](value T, rest []T) []T {
	res := make([]T, 0, len(rest)+1)
	res = append(res, value)
	return append(res, rest...)
}

func cloneSlice[T any](s []T) []T {
	res := make([]T, len(s))
	copy(res, s)
	return res
}
