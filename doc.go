// Package hxhal binds Go interfaces to HAL+JSON resources, on both sides
// of the wire.
//
// A resource interface describes one kind of resource. Each method has a
// role, assigned when the interface is registered:
//
//	type Product interface {
//	    State() *hxhal.Single[ProductState]
//	    Price() *hxhal.Single[float64]
//	    Reviews(page *int) *hxhal.Many[Review]
//	    Self() hal.Link
//	}
//
//	reg := hxhal.NewRegistry()
//	hxhal.MustRegister[Product](reg, newProductProxy,
//	    hxhal.State("State"),
//	    hxhal.Property("Price", ""),
//	    hxhal.Related("Reviews", "reviews", hxhal.Var("page")),
//	    hxhal.Link("Self"),
//	)
//
// The roles are:
//   - state: the document's state decoded into a plain data type
//   - property: a single state field
//   - related: resources reached through a link relation, either embedded
//     or linked; parameters fill in URI template variables or select links
//     by name
//   - link: the resource's own link
//   - representation: the raw document, as *hal.Document, a generic map,
//     json.RawMessage or string
//
// Classification is strict. An untagged method, a method with two roles or
// an unsupported return type makes Register fail with a ContractError.
//
// # Client
//
// A Client turns links into implementations of the interface. The
// implementation is an adapter holding a *Proxy; the hxhal generator writes
// adapters from //hxhal: directives, or they can be written by hand:
//
//	func newProductProxy(p *hxhal.Proxy) Product { return &productProxy{p} }
//
//	func (x *productProxy) Reviews(page *int) *hxhal.Many[Review] {
//	    return hxhal.Call[*hxhal.Many[Review]](x.p, "Reviews", page)
//	}
//
// Results are lazy: nothing is fetched until a result that needs the
// document is awaited. Within one client each URI is fetched at most once,
// concurrent callers share one fetch, and each method call's result is
// memoized per argument values.
//
// # Rendering
//
// A Renderer does the reverse. It calls the methods of a server-side
// implementation and assembles the document, embedding related resources
// that implement Embeddable and linking those that implement Linkable.
//
//	doc, err := hxhal.NewRenderer(reg).RenderDocument(ctx, product)
//
// Handler serves rendered resources over HTTP as HAL+JSON, or as HTML for
// browsers.
//
// # Errors
//
// Contract violations are *ContractError and match ErrContract. Loader
// failures are *FetchError and match ErrFetch; they carry the upstream
// status code, which HTTPStatus exposes for error mapping.
package hxhal
