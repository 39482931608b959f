package hxhal

import (
	"context"
	"fmt"
	"reflect"
)

// Shape describes a result type matched by a Conversion.
type Shape struct {
	Elem        reflect.Type
	Cardinality Cardinality
	// Sync marks plain values that are produced by blocking.
	Sync bool
}

// Conversion translates between a declared result type and the internal
// form of a result: a deferred, ordered sequence of element values.
//
// Conversions are consulted in registration order. Register additional
// ones with Registry.AddConversion before registering the interfaces that
// use them.
type Conversion interface {
	// Match reports whether the conversion handles t.
	Match(t reflect.Type) (Shape, bool)
	// FromInternal builds a value of type t that emits the values of src.
	// Proxies call it without holding their lock, once per memoized call
	// of an asynchronous method, so it may await src.
	FromInternal(ctx context.Context, t reflect.Type, src *Deferred[[]any]) (reflect.Value, error)
	// ToInternal exposes the values emitted by v.
	ToInternal(v reflect.Value) (*Deferred[[]any], error)
}

type conversions []Conversion

func (cs conversions) match(t reflect.Type) (Conversion, Shape, bool) {
	for _, c := range cs {
		if shape, ok := c.Match(t); ok {
			return c, shape, true
		}
	}
	return nil, Shape{}, false
}

func defaultConversions() conversions {
	return conversions{containerConversion{}, syncConversion{}}
}

var containerType = reflect.TypeOf((*container)(nil)).Elem()

// containerConversion handles *Single, *Optional and *Many.
type containerConversion struct{}

func (containerConversion) Match(t reflect.Type) (Shape, bool) {
	if t.Kind() != reflect.Pointer || !t.Implements(containerType) {
		return Shape{}, false
	}
	c := reflect.New(t.Elem()).Interface().(container)
	return Shape{Elem: c.elemType(), Cardinality: c.cardinality()}, true
}

func (containerConversion) FromInternal(_ context.Context, t reflect.Type, src *Deferred[[]any]) (reflect.Value, error) {
	v := reflect.New(t.Elem())
	v.Interface().(container).bind(src)
	return v, nil
}

func (containerConversion) ToInternal(v reflect.Value) (*Deferred[[]any], error) {
	c, ok := v.Interface().(container)
	if !ok {
		return nil, fmt.Errorf("hxhal: %s is not a result container", v.Type())
	}
	return c.internal(), nil
}

// syncConversion handles plain values. Building one blocks until the
// source has produced its values.
type syncConversion struct{}

func (syncConversion) Match(t reflect.Type) (Shape, bool) {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return Shape{}, false
	}
	return Shape{Elem: t, Cardinality: ExactlyOne, Sync: true}, true
}

func (syncConversion) FromInternal(ctx context.Context, t reflect.Type, src *Deferred[[]any]) (reflect.Value, error) {
	vals, err := src.Await(ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(vals) == 0 || vals[0] == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(vals[0])
	switch {
	case v.Type().AssignableTo(t):
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	case v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	default:
		return reflect.Value{}, contractErrorf(v.Type().String(), "value cannot be converted to %s", t)
	}
}

func (syncConversion) ToInternal(v reflect.Value) (*Deferred[[]any], error) {
	if !v.IsValid() {
		return Resolved([]any{}), nil
	}
	return Resolved([]any{v.Interface()}), nil
}
