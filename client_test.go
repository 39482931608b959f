package hxhal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxhal/lib/hal"
)

const itemOne = `{
  "_links": {
    "self": {"href": "/items/1"},
    "item": [{"href": "/items/2"}, {"href": "/items/3", "name": "three"}],
    "up": {"href": "/items/0"},
    "search": [{"href": "/search"}, {"href": "/search{?a,b}", "templated": true}]
  },
  "title": "one",
  "number": 1,
  "label": "item 1",
  "_embedded": {
    "item": {"_links": {"self": {"href": "/items/3"}}, "title": "three", "number": 3}
  }
}`

func newItemLoader() *TestLoader {
	return NewTestLoader().
		AddJSON("/items/1", itemOne).
		AddJSON("/items/2", `{"_links":{"self":{"href":"/items/2"}},"title":"two","number":2}`).
		AddJSON("/items/0", `{"_links":{"self":{"href":"/items/0"}},"title":"root","number":0}`)
}

func hrefs(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Href()
	}
	return out
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestClientIsLazy(t *testing.T) {
	loader := newItemLoader()
	client := NewClient(newItemRegistry(t), loader)

	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)
	state := item.State()
	title := item.Title()
	assert.Equal(t, 0, loader.Total(), "nothing is fetched before a result is awaited")

	ctx := context.Background()
	s, err := state.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, ItemState{Title: "one", Number: 1}, s)

	v, err := title.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", v)
	assert.Equal(t, 1, loader.Count("/items/1"))
}

func TestClientSingleFlight(t *testing.T) {
	loader := newItemLoader()
	loader.Gate = make(chan struct{})
	client := NewClient(newItemRegistry(t), loader)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Distinct link names give distinct proxies over the same URI.
			link := hal.NewLink("/items/1").WithName(string(rune('a' + i)))
			item, err := Follow[Item](client, link)
			if !assert.NoError(t, err) {
				return
			}
			_, err = item.State().Await(context.Background())
			assert.NoError(t, err)
		}()
	}
	close(loader.Gate)
	wg.Wait()

	assert.Equal(t, 1, loader.Count("/items/1"))
}

func TestProxyIdentity(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	ctx := context.Background()

	a, err := Get[Item](client, "/items/1")
	require.NoError(t, err)
	b, err := Get[Item](client, "/items/1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	first, err := a.Children().Await(ctx)
	require.NoError(t, err)
	second, err := b.Children().Await(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Same(t, first[0], second[0])
	assert.Same(t, first[1], second[1])

	other := NewClient(newItemRegistry(t), newItemLoader())
	c, err := Get[Item](other, "/items/1")
	require.NoError(t, err)
	assert.NotSame(t, a, c, "identity is scoped to one client")
}

func TestResultsMemoizedPerArguments(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)

	assert.Same(t, item.State(), item.State())
	assert.Same(t, item.Search(intp(5), nil), item.Search(intp(5), nil))
	assert.NotSame(t, item.Search(intp(5), nil), item.Search(intp(6), nil))
}

func TestEmbeddedTakesPrecedence(t *testing.T) {
	loader := newItemLoader()
	client := NewClient(newItemRegistry(t), loader)
	ctx := context.Background()

	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)
	children, err := item.Children().Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/items/3", "/items/2"}, hrefs(children))

	three := children[0]
	assert.Equal(t, "three", three.Self().Name, "embedded document takes the link's name")
	s, err := three.State().Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Number)
	assert.Equal(t, 0, loader.Count("/items/3"), "embedded documents are not fetched")

	s, err = children[1].State().Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", s.Title)
	assert.Equal(t, 1, loader.Count("/items/2"))
}

func TestFirstBindingWins(t *testing.T) {
	loader := newItemLoader().
		AddJSON("/items/3", `{"_links":{"self":{"href":"/items/3"}},"title":"fetched","number":33}`)
	client := NewClient(newItemRegistry(t), loader)
	ctx := context.Background()

	early, err := Follow[Item](client, hal.NewLink("/items/3").WithName("three"))
	require.NoError(t, err)

	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)
	children, err := item.Children().Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "/items/3", children[0].Href())
	assert.Same(t, early, children[0])

	s, err := children[0].State().Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 33, s.Number, "the proxy bound from the link fetches its document")
	assert.Equal(t, 1, loader.Count("/items/3"))
}

func TestFirstLinkNameWins(t *testing.T) {
	loader := NewTestLoader().AddJSON("/list", `{
	  "_links": {"item": [{"href": "/a", "name": "first"}, {"href": "/a", "name": "second"}, {"href": "/b"}]},
	  "_embedded": {"item": [{"_links": {"self": {"href": "/a"}}, "title": "a"}]}
	}`)
	client := NewClient(newItemRegistry(t), loader)
	list, err := Get[Item](client, "/list")
	require.NoError(t, err)

	children, err := list.Children().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, hrefs(children))
	assert.Equal(t, "first", children[0].Self().Name)
}

func TestTemplateSelection(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	ctx := context.Background()
	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)

	found, err := item.Search(intp(5), nil).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/search?a=5"}, hrefs(found))

	found, err = item.Search(nil, nil).Await(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "/search{?a,b}", found[0].Href())
	assert.True(t, found[0].Self().Templated)

	found, err = item.Filter(ItemFilter{A: intp(5), B: intp(2)}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/search?a=5&b=2"}, hrefs(found))
}

func TestLinkNameSelection(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	ctx := context.Background()
	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)

	named, err := item.Named(strp("three")).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/items/3"}, hrefs(named))

	named, err = item.Named(strp("nobody")).Await(ctx)
	require.NoError(t, err)
	assert.Empty(t, named)

	all, err := item.Named(nil).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/items/3", "/items/2"}, hrefs(all))
}

func TestNoMatchingTemplate(t *testing.T) {
	loader := NewTestLoader().AddJSON("/x", `{"_links":{"search":{"href":"/search{?q}","templated":true}}}`)
	client := NewClient(newItemRegistry(t), loader)
	item, err := Get[Item](client, "/x")
	require.NoError(t, err)

	_, err = item.Search(intp(5), nil).Await(context.Background())
	require.Error(t, err)
	assert.True(t, IsContractError(err))
	assert.Contains(t, err.Error(), "[a]")
	assert.Contains(t, err.Error(), `"search"`)
}

func TestTemplatedOnlyRelation(t *testing.T) {
	loader := NewTestLoader().
		AddJSON("/x", `{"_links":{"item":{"href":"/items{?page}","templated":true}}}`).
		AddJSON("/items", `{"title":"all"}`)
	client := NewClient(newItemRegistry(t), loader)
	item, err := Get[Item](client, "/x")
	require.NoError(t, err)

	children, err := item.Children().Await(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/items{?page}", children[0].Href())

	title, err := children[0].Title().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all", title)
	assert.Equal(t, 1, loader.Count("/items"))
}

func TestEmbeddedWithoutSelfLink(t *testing.T) {
	loader := NewTestLoader().AddJSON("/x", `{"_embedded":{"up":{"title":"anonymous"}}}`)
	client := NewClient(newItemRegistry(t), loader)
	item, err := Get[Item](client, "/x")
	require.NoError(t, err)

	parent, ok, err := item.Parent().Await(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Item (embedded without link)", parent.String())
	assert.Equal(t, "", parent.Href())

	title, err := parent.Title().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anonymous", title)
}

func TestFetchErrorsNameTheInvocation(t *testing.T) {
	loader := newItemLoader().Fail("/gone", http.StatusGone)
	client := NewClient(newItemRegistry(t), loader)
	ctx := context.Background()

	missing, err := Get[Item](client, "/missing")
	require.NoError(t, err)
	_, err = missing.State().Await(ctx)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Contains(t, err.Error(), "Item#State()")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "/missing", fe.URI)

	gone, err := Get[Item](client, "/gone")
	require.NoError(t, err)
	_, err = gone.Title().Await(ctx)
	assert.Equal(t, http.StatusGone, HTTPStatus(err))

	// Failures are memoized with the document.
	_, err = missing.Title().Await(ctx)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Equal(t, 1, loader.Count("/missing"))
}

func TestFetchErrorInRelatedNamesArguments(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)

	found, err := item.Search(intp(5), nil).Await(context.Background())
	require.NoError(t, err)
	_, err = found[0].State().Await(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestLoaderContract(t *testing.T) {
	tests := []struct {
		name   string
		loader Loader
	}{
		{"foreign error", LoaderFunc(func(ctx context.Context, uri string) (*FetchResult, error) {
			return nil, errors.New("socket closed")
		})},
		{"nil result", LoaderFunc(func(ctx context.Context, uri string) (*FetchResult, error) {
			return nil, nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(newItemRegistry(t), tt.loader)
			item, err := Get[Item](client, "/items/1")
			require.NoError(t, err)
			_, err = item.State().Await(context.Background())
			require.Error(t, err)
			assert.True(t, IsContractError(err))
			assert.Contains(t, err.Error(), "hxhal.LoaderFunc")
		})
	}
}

func TestSyncAccessors(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)

	assert.Equal(t, "/items/1", item.Href())
	assert.Equal(t, hal.NewLink("/items/1"), item.Self())
	assert.Equal(t, "item 1", item.Label())
	assert.Equal(t, "Item at /items/1", item.String())

	missing, err := Get[Item](client, "/missing")
	require.NoError(t, err)
	assert.Equal(t, "/missing", missing.Href(), "link accessors never fetch")
	assert.Panics(t, func() { missing.Label() })
}

func TestProperties(t *testing.T) {
	loader := NewTestLoader().AddJSON("/x", `{"number": 4}`)
	client := NewClient(newItemRegistry(t), loader)
	ctx := context.Background()
	item, err := Get[Item](client, "/x")
	require.NoError(t, err)

	_, ok, err := item.Subtitle().Await(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = item.Title().Await(ctx)
	assert.ErrorIs(t, err, ErrNoValue)
}

func TestRepresentations(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	ctx := context.Background()
	item, err := Get[Item](client, "/items/2")
	require.NoError(t, err)

	doc, err := item.Raw().Await(ctx)
	require.NoError(t, err)
	self, _ := doc.Self()
	assert.Equal(t, "/items/2", self.Href)

	s, err := item.JSON().Await(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_links":{"self":{"href":"/items/2"}},"title":"two","number":2}`, s)
}

func TestRelatedLinks(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	item, err := Get[Item](client, "/items/1")
	require.NoError(t, err)

	links, err := item.Links().Await(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "/items/3", links[0].Href)
	assert.Equal(t, "three", links[0].Name)
	assert.Equal(t, "/items/2", links[1].Href)
}

func TestRelativeHrefsResolved(t *testing.T) {
	loader := NewTestLoader().AddJSON("http://api.test/items/1",
		`{"_links":{"self":{"href":"/items/1"},"item":{"href":"2"}}}`)
	client := NewClient(newItemRegistry(t), loader)
	item, err := Get[Item](client, "http://api.test/items/1")
	require.NoError(t, err)

	children, err := item.Children().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"http://api.test/items/2"}, hrefs(children))
}

func TestWrap(t *testing.T) {
	loader := NewTestLoader()
	client := NewClient(newItemRegistry(t), loader)
	doc, err := hal.Parse([]byte(`{"_links":{"self":{"href":"/w"}},"title":"wrapped"}`))
	require.NoError(t, err)

	item, err := Wrap[Item](client, doc, hal.Link{})
	require.NoError(t, err)
	assert.Equal(t, "/w", item.Href())
	title, err := item.Title().Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wrapped", title)
	assert.Equal(t, 0, loader.Total())

	_, err = Wrap[Item](client, nil, hal.Link{})
	assert.True(t, IsContractError(err))
}

func TestUnregisteredInterface(t *testing.T) {
	client := NewClient(newItemRegistry(t), newItemLoader())
	_, err := Get[Note](client, "/notes/1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)

	reg := NewRegistry()
	require.NoError(t, Register[Item](reg, nil, itemTags...))
	_, err = Get[Item](NewClient(reg, newItemLoader()), "/items/1")
	assert.True(t, IsContractError(err), "server-only registrations have no adapter")
}
