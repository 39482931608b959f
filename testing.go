package hxhal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/pthm/hxhal/lib/hal"
)

// TestLoader is an in-memory Loader for tests. It serves registered
// documents, fails for unknown URIs with 404 and counts fetches per URI.
//
//	loader := hxhal.NewTestLoader().
//	    AddJSON("/items/1", `{"_links":{"self":{"href":"/items/1"}},"title":"one"}`)
//	client := hxhal.NewClient(reg, loader)
type TestLoader struct {
	mu     sync.Mutex
	docs   map[string]*hal.Document
	status map[string]int
	counts map[string]int

	// Gate, when set, blocks every fetch until it is closed or the fetch's
	// context is done.
	Gate chan struct{}
}

// NewTestLoader returns an empty loader.
func NewTestLoader() *TestLoader {
	return &TestLoader{
		docs:   make(map[string]*hal.Document),
		status: make(map[string]int),
		counts: make(map[string]int),
	}
}

// Add serves doc at uri.
func (l *TestLoader) Add(uri string, doc *hal.Document) *TestLoader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[uri] = doc
	return l
}

// AddJSON parses body and serves it at uri. It panics on invalid input.
func (l *TestLoader) AddJSON(uri, body string) *TestLoader {
	doc, err := hal.Parse([]byte(body))
	if err != nil {
		panic("hxhal: TestLoader.AddJSON(" + uri + "): " + err.Error())
	}
	return l.Add(uri, doc)
}

// Fail answers uri with status.
func (l *TestLoader) Fail(uri string, status int) *TestLoader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status[uri] = status
	return l
}

// Fetch implements Loader.
func (l *TestLoader) Fetch(ctx context.Context, uri string) (*FetchResult, error) {
	l.mu.Lock()
	l.counts[uri]++
	gate := l.Gate
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &FetchError{URI: uri, Err: ctx.Err()}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if status, ok := l.status[uri]; ok {
		return &FetchResult{URI: uri, Status: status, MaxAge: -1}, nil
	}
	doc, ok := l.docs[uri]
	if !ok {
		return nil, &FetchError{StatusCode: http.StatusNotFound, URI: uri, Err: errNotFound}
	}
	return &FetchResult{URI: uri, Status: http.StatusOK, ContentType: hal.MediaType, Body: doc, MaxAge: -1}, nil
}

var errNotFound = errors.New("not found")

// Count returns how many times uri was fetched.
func (l *TestLoader) Count(uri string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[uri]
}

// Total returns the number of fetches across all URIs.
func (l *TestLoader) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.counts {
		n += c
	}
	return n
}

// TestResult holds a rendered resource for assertions.
type TestResult struct {
	Document *hal.Document
	JSON     string
}

// TestRender renders resource with a fresh renderer over reg.
//
//	result, err := hxhal.TestRender(reg, product)
//	if !result.JSONContains(`"title":"Shoes"`) {
//	    t.Fatal("missing title")
//	}
func TestRender(reg *Registry, resource any) (*TestResult, error) {
	return TestRenderWithContext(context.Background(), reg, resource)
}

// TestRenderWithContext is TestRender with a caller-supplied context.
func TestRenderWithContext(ctx context.Context, reg *Registry, resource any) (*TestResult, error) {
	doc, err := NewRenderer(reg).RenderDocument(ctx, resource)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &TestResult{Document: doc, JSON: string(b)}, nil
}

// JSONContains checks if the serialized document contains substr.
func (r *TestResult) JSONContains(substr string) bool {
	return strings.Contains(r.JSON, substr)
}

// LinkHrefs returns the hrefs under rel in order.
func (r *TestResult) LinkHrefs(rel string) []string {
	var out []string
	for _, l := range r.Document.Links(rel) {
		out = append(out, l.Href)
	}
	return out
}

// EmbeddedCount returns the number of documents embedded under rel.
func (r *TestResult) EmbeddedCount(rel string) int {
	return len(r.Document.Embedded(rel))
}

// TestServe runs h for a GET of target with the given Accept header and
// returns the recorded response.
func TestServe(h http.Handler, target, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
