package hxhal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxhal/lib/hal"
)

// Renderer turns server-side implementations of registered resource
// interfaces into HAL documents.
type Renderer struct {
	reg *Registry
	log *zap.Logger
}

// NewRenderer creates a renderer for the interfaces in reg.
func NewRenderer(reg *Registry, opts ...Option) *Renderer {
	o := buildOptions(opts)
	return &Renderer{reg: reg, log: o.logger}
}

// Render returns the document for resource. Nothing runs until the result
// is awaited.
//
// The document is assembled from every registered interface resource
// implements: the self link from Linkable, state methods merged first and
// property methods on top of them, and each related method's values
// either embedded or linked under the relation. Related methods run
// concurrently. Errors from resource methods are returned unchanged, and a
// panic in one is raised again in the goroutine awaiting the document.
func (r *Renderer) Render(resource any) *Single[*hal.Document] {
	return SingleOf(func(ctx context.Context) (*hal.Document, error) {
		return r.render(ctx, resource)
	})
}

// RenderDocument renders resource and waits for the document.
func (r *Renderer) RenderDocument(ctx context.Context, resource any) (*hal.Document, error) {
	return r.Render(resource).Await(ctx)
}

// RenderJSON renders resource to HAL+JSON.
func (r *Renderer) RenderJSON(ctx context.Context, resource any) ([]byte, error) {
	doc, err := r.RenderDocument(ctx, resource)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// relatedValues is the outcome of one related method.
type relatedValues struct {
	rel   string
	links []hal.Link
	docs  []*hal.Document
}

func (r *Renderer) render(ctx context.Context, resource any) (*hal.Document, error) {
	if resource == nil {
		return nil, contractErrorf("<nil>", "cannot render a nil resource")
	}
	rv := reflect.ValueOf(resource)
	subject := fmt.Sprintf("%T", resource)

	descs := r.reg.implemented(rv.Type())
	if len(descs) == 0 {
		return nil, contractErrorf(subject, "does not implement any registered resource interface")
	}
	for _, d := range descs {
		if !d.Exported() {
			return nil, contractErrorf(subject, "resource interface %s is not exported", d.Type)
		}
	}

	b := hal.NewBuilder()
	if l, ok := resource.(Linkable); ok {
		self := l.CreateLink()
		if self == nil {
			return nil, contractErrorf(subject, "CreateLink returned a null value")
		}
		b.AddLinks(hal.RelSelf, *self)
	}

	var methods []*MethodDescriptor
	seen := make(map[string]bool)
	for _, d := range descs {
		for _, md := range d.Methods {
			if seen[md.Name] {
				continue
			}
			seen[md.Name] = true
			methods = append(methods, md)
		}
	}

	var (
		states  = make([]map[string]any, len(methods))
		props   = make([]*property, len(methods))
		related = make([]*relatedValues, len(methods))
	)
	g, gctx := newRenderGroup(ctx)
	for i, md := range methods {
		i, md := i, md
		switch md.Role {
		case RoleState:
			g.Go(func() error {
				s, err := r.state(gctx, rv, md)
				states[i] = s
				return err
			})
		case RoleProperty:
			g.Go(func() error {
				p, err := r.property(gctx, rv, md)
				props[i] = p
				return err
			})
		case RoleRelated:
			g.Go(func() error {
				rel, err := r.related(gctx, rv, md)
				related[i] = rel
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		r.log.Debug("render failed", zap.String("resource", subject), zap.Error(err))
		return nil, err
	}

	for _, s := range states {
		b.Merge(s)
	}
	for _, p := range props {
		if p != nil {
			b.Set(p.name, p.value)
		}
	}
	for _, rel := range related {
		if rel == nil {
			continue
		}
		b.AddLinks(rel.rel, rel.links...)
		b.Embed(rel.rel, rel.docs...)
	}
	return b.Build(), nil
}

type property struct {
	name  string
	value any
}

// values calls md on rv with zero arguments and waits for its result.
func (r *Renderer) values(ctx context.Context, rv reflect.Value, md *MethodDescriptor) ([]any, error) {
	m := rv.MethodByName(md.Name)
	args := make([]reflect.Value, len(md.params))
	for i, t := range md.params {
		args[i] = reflect.Zero(t)
	}
	out := m.Call(args)
	src, err := md.conv.ToInternal(out[0])
	if err != nil {
		return nil, &ContractError{Subject: md.String(), Reason: "cannot read result", Err: err}
	}
	return src.Await(ctx)
}

func (r *Renderer) state(ctx context.Context, rv reflect.Value, md *MethodDescriptor) (map[string]any, error) {
	vals, err := r.values(ctx, rv, md)
	if err != nil {
		return nil, err
	}
	state := make(map[string]any)
	for _, v := range vals {
		if v == nil {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &ContractError{Subject: md.String(), Reason: "state cannot be serialized", Err: err}
		}
		var m map[string]any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil {
			return nil, contractErrorf(md.String(), "state must serialize to a JSON object, got %s", b)
		}
		for k, v := range m {
			state[k] = v
		}
	}
	return state, nil
}

func (r *Renderer) property(ctx context.Context, rv reflect.Value, md *MethodDescriptor) (*property, error) {
	vals, err := r.values(ctx, rv, md)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 || vals[0] == nil {
		return nil, nil
	}
	return &property{name: md.Property, value: vals[0]}, nil
}

func (r *Renderer) related(ctx context.Context, rv reflect.Value, md *MethodDescriptor) (*relatedValues, error) {
	vals, err := r.values(ctx, rv, md)
	if err != nil {
		return nil, err
	}
	out := &relatedValues{rel: md.Relation}
	docs := make([]*hal.Document, len(vals))
	g, gctx := newRenderGroup(ctx)
	for i, v := range vals {
		i, v := i, v
		if l, ok := v.(hal.Link); ok {
			out.links = append(out.links, l)
			continue
		}
		embed, link, err := placement(md, v)
		if err != nil {
			return nil, err
		}
		if link != nil {
			out.links = append(out.links, *link)
		}
		if embed {
			g.Go(func() error {
				d, err := r.render(gctx, v)
				docs[i] = d
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d != nil {
			out.docs = append(out.docs, d)
		}
	}
	return out, nil
}

var errPanicked = errors.New("hxhal: resource method panicked")

// renderGroup is an errgroup that carries a panic of any of its goroutines
// back to the goroutine calling Wait.
type renderGroup struct {
	g *errgroup.Group

	mu       sync.Mutex
	panicked any
}

func newRenderGroup(ctx context.Context) (*renderGroup, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &renderGroup{g: g}, gctx
}

func (rg *renderGroup) Go(fn func() error) {
	rg.g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				rg.mu.Lock()
				if rg.panicked == nil {
					rg.panicked = r
				}
				rg.mu.Unlock()
				err = errPanicked
			}
		}()
		return fn()
	})
}

// Wait re-raises the first panic, if any, after every goroutine is done.
func (rg *renderGroup) Wait() error {
	err := rg.g.Wait()
	if rg.panicked != nil {
		panic(rg.panicked)
	}
	return err
}

// placement decides whether a related value is embedded, linked, or both.
func placement(md *MethodDescriptor, v any) (embed bool, link *hal.Link, err error) {
	subject := fmt.Sprintf("%T", v)
	if v == nil {
		return false, nil, contractErrorf(md.String(), "related values cannot be nil")
	}
	emb, isEmbeddable := v.(Embeddable)
	lnk, isLinkable := v.(Linkable)
	if !isEmbeddable && !isLinkable {
		return false, nil, contractErrorf(subject, "must implement either Embeddable or Linkable")
	}
	embed = isEmbeddable && emb.IsEmbedded()
	if isLinkable && (!embed || linkedWhenEmbedded(v)) {
		link = lnk.CreateLink()
		if link == nil {
			return false, nil, contractErrorf(subject, "CreateLink returned a null value")
		}
	}
	if !embed && link == nil {
		return false, nil, contractErrorf(subject, "is neither embedded nor linkable")
	}
	return embed, link, nil
}

// linkedWhenEmbedded defaults to true for resources that do not say.
func linkedWhenEmbedded(v any) bool {
	l, ok := v.(LinkedWhenEmbedded)
	return !ok || l.IsLinkedWhenEmbedded()
}
