package hxhal

import (
	"context"

	"github.com/pthm/hxhal/lib/hal"
)

// Loader fetches HAL documents by URI. It is the only I/O the client
// performs.
//
// Failures must be reported as *FetchError; any other error is treated as a
// broken loader and surfaces as a ContractError naming the loader's type.
// Results with a non-2xx Status are turned into fetch errors by the client.
type Loader interface {
	Fetch(ctx context.Context, uri string) (*FetchResult, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, uri string) (*FetchResult, error)

func (f LoaderFunc) Fetch(ctx context.Context, uri string) (*FetchResult, error) {
	return f(ctx, uri)
}

// FetchResult is a loaded resource.
type FetchResult struct {
	// URI is the requested URI.
	URI string
	// Status is the response status; 0 means unknown and is treated as
	// success.
	Status int
	// ContentType is the response media type, if known.
	ContentType string
	// Body is the parsed document. It may be nil for empty responses.
	Body *hal.Document
	// MaxAge is the freshness lifetime in seconds; -1 if not specified.
	MaxAge int
}

// Linkable is implemented by server-side resources that have a canonical
// link. The renderer uses it for the self link and for links to related
// resources. Returning nil is a contract violation.
type Linkable interface {
	CreateLink() *hal.Link
}

// Embeddable is implemented by resources that can be embedded in the
// documents that relate to them. IsEmbedded decides per instance.
type Embeddable interface {
	IsEmbedded() bool
}

// LinkedWhenEmbedded lets an embeddable, linkable resource decide whether
// it is also linked under the relation when it is embedded. Resources that
// do not implement it get both.
type LinkedWhenEmbedded interface {
	IsLinkedWhenEmbedded() bool
}
