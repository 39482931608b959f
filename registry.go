package hxhal

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry holds the classified resource interfaces shared by clients and
// renderers.
type Registry struct {
	mu          sync.RWMutex
	interfaces  map[reflect.Type]*registration
	conversions conversions
}

type registration struct {
	desc    *InterfaceDescriptor
	adapter func(*Proxy) any
}

// NewRegistry creates an empty registry with the built-in conversions for
// Single, Optional, Many and plain values.
func NewRegistry() *Registry {
	return &Registry{
		interfaces:  make(map[reflect.Type]*registration),
		conversions: defaultConversions(),
	}
}

// AddConversion adds c ahead of the conversions already known. It affects
// interfaces registered afterwards.
func (reg *Registry) AddConversion(c Conversion) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.conversions = append(conversions{c}, reg.conversions...)
}

// Register classifies the resource interface T and records it.
//
// adapter builds the client-side implementation of T around a proxy; it is
// usually generated and forwards every method to Call. Interfaces that are
// only rendered can pass a nil adapter.
//
//	hxhal.Register[Product](reg, newProductProxy,
//	    hxhal.State("State"),
//	    hxhal.Related("Reviews", "reviews"),
//	)
func Register[T any](reg *Registry, adapter func(*Proxy) T, tags ...MethodTag) error {
	t := typeOf[T]()
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.interfaces[t]; exists {
		return contractErrorf(t.String(), "resource interface registered twice")
	}
	desc, err := describe(t, tags, reg.conversions)
	if err != nil {
		return err
	}
	r := &registration{desc: desc}
	if adapter != nil {
		r.adapter = func(p *Proxy) any { return adapter(p) }
	}
	reg.interfaces[t] = r
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](reg *Registry, adapter func(*Proxy) T, tags ...MethodTag) {
	if err := Register(reg, adapter, tags...); err != nil {
		panic(fmt.Sprintf("hxhal: %v", err))
	}
}

// Describe returns the descriptor of a registered interface type.
func (reg *Registry) Describe(t reflect.Type) (*InterfaceDescriptor, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.interfaces[t]
	if !ok {
		return nil, false
	}
	return r.desc, true
}

// DescriptorOf returns the descriptor of the registered interface T.
func DescriptorOf[T any](reg *Registry) (*InterfaceDescriptor, bool) {
	return reg.Describe(typeOf[T]())
}

func (reg *Registry) lookup(t reflect.Type) (*registration, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.interfaces[t]
	if !ok {
		return nil, &ContractError{Subject: t.String(), Reason: "cannot bind", Err: ErrNotRegistered}
	}
	return r, nil
}

// implemented returns the registered interfaces that t implements, ordered
// by interface name.
func (reg *Registry) implemented(t reflect.Type) []*InterfaceDescriptor {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var out []*InterfaceDescriptor
	for it, r := range reg.interfaces {
		if t.Implements(it) {
			out = append(out, r.desc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Type.String() < out[j].Type.String()
	})
	return out
}
