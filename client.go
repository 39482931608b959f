package hxhal

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pthm/hxhal/lib/hal"
)

// Client navigates a HAL API through registered resource interfaces.
//
// A Client is one traversal session: every URI is fetched at most once and
// every (interface, link) pair maps to one proxy instance. Create a new
// client per request or unit of work to see fresh data.
//
// The first binding of an (interface, href, link name) key wins: a proxy
// created from a plain link keeps fetching its document even when an
// embedded copy with the same self href turns up later.
type Client struct {
	reg  *Registry
	docs *documentCache
	log  *zap.Logger
	ctx  context.Context
	id   string

	mu      sync.Mutex
	proxies map[proxyKey]*Proxy
}

type proxyKey struct {
	iface reflect.Type
	href  string
	name  string
	doc   *hal.Document
}

// NewClient creates a client that fetches through loader.
func NewClient(reg *Registry, loader Loader, opts ...Option) *Client {
	o := buildOptions(opts)
	id := uuid.NewString()
	log := o.logger.With(zap.String("traversal", id))
	return &Client{
		reg:     reg,
		docs:    newDocumentCache(loader, log),
		log:     log,
		ctx:     o.ctx,
		id:      id,
		proxies: make(map[proxyKey]*Proxy),
	}
}

// ID identifies the traversal in logs.
func (c *Client) ID() string {
	return c.id
}

// Get returns a proxy of type T for the resource at uri. Nothing is
// fetched until a method that needs the document is awaited.
func Get[T any](c *Client, uri string) (T, error) {
	return Follow[T](c, hal.NewLink(uri))
}

// Follow returns a proxy of type T for the resource behind link. A
// templated link is expanded without variables when fetched.
func Follow[T any](c *Client, link hal.Link) (T, error) {
	return bind[T](c, link, nil)
}

// Wrap returns a proxy of type T over a document that is already loaded.
// link may be zero; the document's self link is used then, if it has one.
func Wrap[T any](c *Client, doc *hal.Document, link hal.Link) (T, error) {
	if doc == nil {
		var zero T
		return zero, contractErrorf(typeOf[T]().String(), "cannot wrap a nil document")
	}
	if link.IsZero() {
		if self, ok := doc.Self(); ok {
			link = self
		}
	}
	return bind[T](c, link, doc)
}

func bind[T any](c *Client, link hal.Link, doc *hal.Document) (T, error) {
	var zero T
	v, err := c.proxy(typeOf[T](), link, doc)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, contractErrorf(typeOf[T]().String(), "adapter returned %T", v)
	}
	return t, nil
}

// proxy returns the adapter for iface over link or doc, creating it on
// first use. Proxies with an href are keyed by (iface, href, name);
// documents without one are keyed by identity.
func (c *Client) proxy(iface reflect.Type, link hal.Link, doc *hal.Document) (any, error) {
	r, err := c.reg.lookup(iface)
	if err != nil {
		return nil, err
	}
	if r.adapter == nil {
		return nil, contractErrorf(r.desc.Name, "registered without a client adapter")
	}

	key := proxyKey{iface: iface}
	if link.Href != "" {
		key.href, key.name = link.Href, link.Name
	} else if doc != nil {
		key.doc = doc
	} else {
		return nil, contractErrorf(r.desc.Name, "cannot bind a proxy without a link or a document")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.proxies[key]; ok {
		return p.adapter, nil
	}
	p := newProxy(c, r.desc, link, doc)
	p.adapter = r.adapter(p)
	c.proxies[key] = p
	return p.adapter, nil
}
