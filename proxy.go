package hxhal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pthm/hxhal/lib/hal"
)

// Proxy is the client-side state behind one resource interface instance:
// its link, its lazily fetched document and the memoized results of its
// methods. Adapters (usually generated) hold a *Proxy and forward every
// interface method to Call.
type Proxy struct {
	client  *Client
	iface   *InterfaceDescriptor
	link    hal.Link
	doc     *Deferred[*hal.Document]
	adapter any

	mu      sync.Mutex
	results map[string]*memo
}

// memo is one memoized call. value is converted once, outside p.mu.
type memo struct {
	src   *Deferred[[]any]
	once  sync.Once
	value any
	err   error
}

func newProxy(c *Client, desc *InterfaceDescriptor, link hal.Link, embedded *hal.Document) *Proxy {
	p := &Proxy{
		client:  c,
		iface:   desc,
		link:    link,
		results: make(map[string]*memo),
	}
	if embedded != nil {
		p.doc = Resolved(embedded)
	} else {
		p.doc = Defer(p.fetch)
	}
	return p
}

func (p *Proxy) fetch(ctx context.Context) (*hal.Document, error) {
	uri := p.link.Href
	if p.link.Templated {
		expanded, err := hal.ExpandTemplate(uri, nil)
		if err != nil {
			return nil, &FetchError{URI: uri, Err: err}
		}
		uri = expanded
	}
	res, err := p.client.docs.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	if res.Body == nil {
		return hal.NewBuilder().Build(), nil
	}
	return res.Body, nil
}

// Link returns the link the proxy was created from. It is zero for
// embedded documents without a self link.
func (p *Proxy) Link() hal.Link {
	return p.link
}

// Interface returns the descriptor of the proxied interface.
func (p *Proxy) Interface() *InterfaceDescriptor {
	return p.iface
}

func (p *Proxy) String() string {
	if p.link.Href == "" {
		return p.iface.Name + " (embedded without link)"
	}
	return p.iface.Name + " at " + p.link.Href
}

// Call invokes the named interface method on p and returns its result as R.
// Adapters use it to implement resource interfaces:
//
//	func (x *productProxy) Reviews(page *int) *hxhal.Many[Review] {
//	    return hxhal.Call[*hxhal.Many[Review]](x.p, "Reviews", page)
//	}
//
// Asynchronous results are returned without waiting; failures surface when
// they are awaited. Synchronous methods block, and since their signatures
// have no error result, Call panics with the *FetchError or *ContractError
// that prevented a value. Call also panics with a *ContractError when R or
// args do not match the method.
func Call[R any](p *Proxy, method string, args ...any) R {
	v, err := p.invoke(method, args)
	if err != nil {
		panic(err)
	}
	if v == nil {
		var zero R
		return zero
	}
	r, ok := v.(R)
	if !ok {
		panic(contractErrorf(p.iface.Name+"#"+method, "adapter expects %s but the method returns %T", typeOf[R](), v))
	}
	return r
}

func (p *Proxy) invoke(method string, args []any) (any, error) {
	md, ok := p.iface.Method(method)
	if !ok {
		return nil, contractErrorf(p.iface.Name+"#"+method, "no such method")
	}
	if len(args) != len(md.params) {
		return nil, contractErrorf(md.String(), "called with %d arguments, takes %d", len(args), len(md.params))
	}
	for i, a := range args {
		if a != nil && !reflect.TypeOf(a).AssignableTo(md.params[i]) {
			return nil, contractErrorf(md.String(), "argument %d is %T, want %s", i, a, md.params[i])
		}
	}
	values := md.bindValues(args)
	key, err := callKey(md, values)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	m, ok := p.results[key]
	if !ok {
		m = &memo{src: p.invocation(md, values)}
		p.results[key] = m
	}
	p.mu.Unlock()

	if md.Sync {
		v, err := md.conv.FromInternal(p.client.ctx, md.Return, m.src)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
	m.once.Do(func() {
		v, err := md.conv.FromInternal(p.client.ctx, md.Return, m.src)
		if err != nil {
			m.err = err
			return
		}
		m.value = v.Interface()
	})
	return m.value, m.err
}

// invocation builds the memoized computation behind one method call.
// Failures other than contract violations are wrapped in a FetchError
// naming the call.
func (p *Proxy) invocation(md *MethodDescriptor, values map[string]any) *Deferred[[]any] {
	src := p.dispatch(md, values)
	if md.Role == RoleLink {
		return src
	}
	call := invocationString(md, values)
	return Defer(func(ctx context.Context) ([]any, error) {
		vals, err := src.Await(ctx)
		if err == nil {
			return vals, nil
		}
		if IsContractError(err) {
			p.client.log.Error("contract violation", zap.String("call", call), zap.Error(err))
			return nil, err
		}
		wrapped := &FetchError{URI: p.link.Href, Invocation: call, Err: err}
		var fe *FetchError
		if errors.As(err, &fe) {
			wrapped.StatusCode = fe.StatusCode
			wrapped.URI = fe.URI
		}
		return nil, wrapped
	})
}

func (p *Proxy) dispatch(md *MethodDescriptor, values map[string]any) *Deferred[[]any] {
	switch md.Role {
	case RoleLink:
		if md.Elem == linkType {
			return Resolved([]any{p.link})
		}
		return Resolved([]any{p.link.Href})
	case RoleState:
		return Then(p.doc, func(_ context.Context, doc *hal.Document) ([]any, error) {
			v, err := decodeInto(doc.State(), md.Elem)
			if err != nil {
				return nil, &FetchError{URI: p.link.Href, Err: fmt.Errorf("decode state: %w", err)}
			}
			return []any{v}, nil
		})
	case RoleProperty:
		return Then(p.doc, func(_ context.Context, doc *hal.Document) ([]any, error) {
			raw, ok := doc.Property(md.Property)
			if !ok || raw == nil {
				return []any{}, nil
			}
			v, err := decodeInto(raw, md.Elem)
			if err != nil {
				return nil, &FetchError{URI: p.link.Href, Err: fmt.Errorf("decode property %q: %w", md.Property, err)}
			}
			return []any{v}, nil
		})
	case RoleRepresentation:
		return Then(p.doc, func(_ context.Context, doc *hal.Document) ([]any, error) {
			v, err := representation(doc, md.Shape)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		})
	case RoleRelated:
		return Then(p.doc, func(_ context.Context, doc *hal.Document) ([]any, error) {
			return p.client.related(doc, md, values)
		})
	default:
		return Failed[[]any](contractErrorf(md.String(), "unknown role %s", md.Role))
	}
}

// bindValues maps the arguments of a call to its named variables. Nil
// pointers, maps and slices are null; other pointers are dereferenced.
func (m *MethodDescriptor) bindValues(args []any) map[string]any {
	values := make(map[string]any, len(m.Vars))
	if !m.StructArg {
		for i, v := range m.Vars {
			values[v.Name] = plainValue(reflect.ValueOf(args[i]))
		}
		return values
	}
	rv := reflect.ValueOf(args[0])
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}
		rv = rv.Elem()
	}
	for i, v := range m.Vars {
		if !rv.IsValid() {
			values[v.Name] = nil
			continue
		}
		values[v.Name] = plainValue(rv.Field(m.fields[i]))
	}
	return values
}

func plainValue(v reflect.Value) any {
	for v.IsValid() {
		switch v.Kind() {
		case reflect.Pointer, reflect.Interface:
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		case reflect.Map, reflect.Slice:
			if v.IsNil() {
				return nil
			}
			return v.Interface()
		default:
			return v.Interface()
		}
	}
	return nil
}

func invocationString(md *MethodDescriptor, values map[string]any) string {
	if len(md.Vars) == 0 {
		return md.String() + "()"
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		v := values[name]
		if v == nil {
			parts[i] = name + "=null"
			continue
		}
		parts[i] = fmt.Sprintf("%s=%v", name, v)
	}
	return md.String() + "(" + strings.Join(parts, ", ") + ")"
}

// decodeInto converts generic JSON data into a value of type t.
func decodeInto(data any, t reflect.Type) (any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(b, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func representation(doc *hal.Document, shape RepresentationShape) (any, error) {
	if shape == ShapeDocument {
		return doc, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	switch shape {
	case ShapeRaw:
		return json.RawMessage(b), nil
	case ShapeString:
		return string(b), nil
	default:
		var tree map[string]any
		if err := json.Unmarshal(b, &tree); err != nil {
			return nil, err
		}
		return tree, nil
	}
}
