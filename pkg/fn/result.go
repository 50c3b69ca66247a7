package fn

import "errors"

var errNilFailure = errors.New("fn: failure without error")

// Result is a value or the error that prevented it. The zero Result holds
// the zero value and no error.
type Result[T any] struct {
	val T
	err error
}

// Ok wraps a value.
func Ok[T any](v T) Result[T] { return Result[T]{val: v} }

// Err wraps an error. A nil err still yields a failed Result so callers
// cannot accidentally turn a failure into a zero-value success.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNilFailure
	}
	return Result[T]{err: err}
}

// FromPair adapts the usual (value, error) return.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Result[T]{err: err}
	}
	return Result[T]{val: v}
}

func (r Result[T]) IsOk() bool  { return r.err == nil }
func (r Result[T]) IsErr() bool { return r.err != nil }

// Unwrap returns the (value, error) pair.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }
