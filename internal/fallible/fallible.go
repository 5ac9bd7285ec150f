// Package fallible models operations that may substitute a default value
// instead of failing the caller.
package fallible

import "fmt"

type Status int

const (
	Succeeded Status = iota
	FellBack
	Fatal
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case FellBack:
		return "fell_back"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result carries a value together with how it was obtained. Err is set for
// FellBack (the absorbed cause) and Fatal.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: Succeeded}
}

func Fallback[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Status: FellBack, Err: cause}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Status: Fatal, Err: err}
}

// Get returns the value unless the result is fatal.
func (r Result[T]) Get() (T, error) {
	if r.Status == Fatal {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

func (r Result[T]) OK() bool { return r.Status == Succeeded }

func (r Result[T]) FellBack() bool { return r.Status == FellBack }

// Or runs fn and substitutes def when it fails.
func Or[T any](def T, fn func() (T, error)) Result[T] {
	v, err := fn()
	if err != nil {
		return Fallback(def, err)
	}
	return Ok(v)
}
