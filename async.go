package hxhal

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Deferred is a lazily started, memoized computation.
//
// Nothing runs until the first Await. The computation then runs exactly
// once, on its own goroutine, and every caller of Await (concurrent or
// later) observes the same value or error. The computation's context is
// detached from the cancellation of whichever caller started it: a waiter
// giving up does not abort work other waiters share.
type Deferred[T any] struct {
	fn       func(ctx context.Context) (T, error)
	once     sync.Once
	started  atomic.Bool
	done     chan struct{}
	val      T
	err      error
	panicked any
}

// Defer returns a computation that runs fn on first Await.
func Defer[T any](fn func(ctx context.Context) (T, error)) *Deferred[T] {
	return &Deferred[T]{fn: fn, done: make(chan struct{})}
}

// Resolved returns a computation that already holds v.
func Resolved[T any](v T) *Deferred[T] {
	d := &Deferred[T]{val: v, done: make(chan struct{})}
	d.once.Do(func() {
		d.started.Store(true)
		close(d.done)
	})
	return d
}

// Failed returns a computation that already holds err.
func Failed[T any](err error) *Deferred[T] {
	d := &Deferred[T]{err: err, done: make(chan struct{})}
	d.once.Do(func() {
		d.started.Store(true)
		close(d.done)
	})
	return d
}

// Then returns a computation that awaits d and applies fn to its value.
// Neither d nor fn runs until the result is awaited.
func Then[T, U any](d *Deferred[T], fn func(ctx context.Context, v T) (U, error)) *Deferred[U] {
	return Defer(func(ctx context.Context) (U, error) {
		v, err := d.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(ctx, v)
	})
}

// Started reports whether the computation has been started.
func (d *Deferred[T]) Started() bool {
	return d.started.Load()
}

// Await starts the computation if needed and waits for its result or for
// ctx to be done. A panic inside the computation is re-raised in every
// waiter.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	d.once.Do(func() {
		d.started.Store(true)
		go d.run(context.WithoutCancel(ctx))
	})
	select {
	case <-d.done:
	case <-ctx.Done():
		select {
		case <-d.done:
		default:
			var zero T
			return zero, ctx.Err()
		}
	}
	if d.panicked != nil {
		panic(d.panicked)
	}
	return d.val, d.err
}

func (d *Deferred[T]) run(ctx context.Context) {
	defer close(d.done)
	defer func() {
		if r := recover(); r != nil {
			d.panicked = r
		}
	}()
	d.val, d.err = d.fn(ctx)
}

// container is implemented by the result types understood by the built-in
// conversion. All methods tolerate a nil receiver.
type container interface {
	elemType() reflect.Type
	cardinality() Cardinality
	bind(src *Deferred[[]any])
	internal() *Deferred[[]any]
}

// Single is an asynchronous result with exactly one value.
type Single[T any] struct {
	d *Deferred[T]
}

// Just returns a Single holding v.
func Just[T any](v T) *Single[T] {
	return &Single[T]{d: Resolved(v)}
}

// SingleOf returns a Single computed lazily by fn.
func SingleOf[T any](fn func(ctx context.Context) (T, error)) *Single[T] {
	return &Single[T]{d: Defer(fn)}
}

// SingleFrom wraps an existing computation.
func SingleFrom[T any](d *Deferred[T]) *Single[T] {
	return &Single[T]{d: d}
}

// Await waits for the value.
func (s *Single[T]) Await(ctx context.Context) (T, error) {
	if s == nil || s.d == nil {
		var zero T
		return zero, ErrNoValue
	}
	return s.d.Await(ctx)
}

// Deferred returns the underlying computation.
func (s *Single[T]) Deferred() *Deferred[T] {
	return s.d
}

func (s *Single[T]) elemType() reflect.Type   { return typeOf[T]() }
func (s *Single[T]) cardinality() Cardinality { return ExactlyOne }

func (s *Single[T]) bind(src *Deferred[[]any]) {
	s.d = Then(src, func(_ context.Context, vals []any) (T, error) {
		var zero T
		switch len(vals) {
		case 0:
			return zero, ErrNoValue
		case 1:
			return castValue[T](vals[0])
		default:
			return zero, fmt.Errorf("hxhal: expected exactly one value, got %d", len(vals))
		}
	})
}

func (s *Single[T]) internal() *Deferred[[]any] {
	if s == nil || s.d == nil {
		return Failed[[]any](ErrNoValue)
	}
	return Then(s.d, func(_ context.Context, v T) ([]any, error) {
		return []any{v}, nil
	})
}

type option[T any] struct {
	v  T
	ok bool
}

// Optional is an asynchronous result with zero or one value.
type Optional[T any] struct {
	d *Deferred[option[T]]
}

// Some returns an Optional holding v.
func Some[T any](v T) *Optional[T] {
	return &Optional[T]{d: Resolved(option[T]{v: v, ok: true})}
}

// None returns an empty Optional.
func None[T any]() *Optional[T] {
	return &Optional[T]{d: Resolved(option[T]{})}
}

// OptionalOf returns an Optional computed lazily by fn. fn reports
// presence with its boolean result.
func OptionalOf[T any](fn func(ctx context.Context) (T, bool, error)) *Optional[T] {
	return &Optional[T]{d: Defer(func(ctx context.Context) (option[T], error) {
		v, ok, err := fn(ctx)
		return option[T]{v: v, ok: ok}, err
	})}
}

// Await waits for the value. ok is false when no value was emitted.
func (o *Optional[T]) Await(ctx context.Context) (v T, ok bool, err error) {
	if o == nil || o.d == nil {
		return v, false, nil
	}
	opt, err := o.d.Await(ctx)
	return opt.v, opt.ok, err
}

func (o *Optional[T]) elemType() reflect.Type   { return typeOf[T]() }
func (o *Optional[T]) cardinality() Cardinality { return ZeroOrOne }

func (o *Optional[T]) bind(src *Deferred[[]any]) {
	o.d = Then(src, func(_ context.Context, vals []any) (option[T], error) {
		switch len(vals) {
		case 0:
			return option[T]{}, nil
		case 1:
			v, err := castValue[T](vals[0])
			return option[T]{v: v, ok: err == nil}, err
		default:
			return option[T]{}, fmt.Errorf("hxhal: expected at most one value, got %d", len(vals))
		}
	})
}

func (o *Optional[T]) internal() *Deferred[[]any] {
	if o == nil || o.d == nil {
		return Resolved([]any{})
	}
	return Then(o.d, func(_ context.Context, opt option[T]) ([]any, error) {
		if !opt.ok {
			return []any{}, nil
		}
		return []any{opt.v}, nil
	})
}

// Many is an asynchronous, ordered sequence of values.
type Many[T any] struct {
	d *Deferred[[]T]
}

// Values returns a Many holding vs in order.
func Values[T any](vs ...T) *Many[T] {
	return &Many[T]{d: Resolved(append([]T(nil), vs...))}
}

// ManyOf returns a Many computed lazily by fn.
func ManyOf[T any](fn func(ctx context.Context) ([]T, error)) *Many[T] {
	return &Many[T]{d: Defer(fn)}
}

// Await waits for all values.
func (m *Many[T]) Await(ctx context.Context) ([]T, error) {
	if m == nil || m.d == nil {
		return nil, nil
	}
	return m.d.Await(ctx)
}

func (m *Many[T]) elemType() reflect.Type   { return typeOf[T]() }
func (m *Many[T]) cardinality() Cardinality { return ZeroOrMany }

func (m *Many[T]) bind(src *Deferred[[]any]) {
	m.d = Then(src, func(_ context.Context, vals []any) ([]T, error) {
		out := make([]T, 0, len(vals))
		for _, v := range vals {
			t, err := castValue[T](v)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	})
}

func (m *Many[T]) internal() *Deferred[[]any] {
	if m == nil || m.d == nil {
		return Resolved([]any{})
	}
	return Then(m.d, func(_ context.Context, vs []T) ([]any, error) {
		out := make([]any, len(vs))
		for i, v := range vs {
			out[i] = v
		}
		return out, nil
	})
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func castValue[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, contractErrorf(fmt.Sprintf("%T", v), "value cannot be converted to %s", typeOf[T]())
	}
	return t, nil
}
