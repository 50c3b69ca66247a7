package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/storefront/catalog/pkg/fn"

// Stage is one step of a chain: it turns In into Out or fails.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Then runs first and feeds its value to second. A failure stops the chain.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, a A) Result[C] {
		b, err := first(ctx, a).Unwrap()
		if err != nil {
			return Err[C](err)
		}
		return second(ctx, b)
	}
}

// Pipeline runs same-typed stages in order, stopping at the first failure.
func Pipeline[T any](stages ...Stage[T, T]) Stage[T, T] {
	return func(ctx context.Context, t T) Result[T] {
		for _, s := range stages {
			next, err := s(ctx, t).Unwrap()
			if err != nil {
				return Err[T](err)
			}
			t = next
		}
		return Ok(t)
	}
}

// MapStage lifts a function that cannot fail.
func MapStage[In, Out any](f func(In) Out) Stage[In, Out] {
	return func(_ context.Context, in In) Result[Out] {
		return Ok(f(in))
	}
}

// Call lifts a context-aware (value, error) function, such as a client
// method.
func Call[In, Out any](f func(context.Context, In) (Out, error)) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return FromPair(f(ctx, in))
	}
}

// Check lifts a validator: the input passes through unchanged when check
// returns nil.
func Check[T any](check func(T) error) Stage[T, T] {
	return func(_ context.Context, v T) Result[T] {
		if err := check(v); err != nil {
			return Err[T](err)
		}
		return Ok(v)
	}
}

// TracedStage runs stage inside a span called name and marks the span as
// failed when the stage fails.
func TracedStage[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := otel.Tracer(tracerName).Start(ctx, name)
		defer span.End()
		result := stage(ctx, in)
		if _, err := result.Unwrap(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return result
	}
}
