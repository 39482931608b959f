package hxhal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pthm/hxhal/lib/hal"
)

type ItemState struct {
	Title  string `json:"title"`
	Number int    `json:"number"`
}

type ItemFilter struct {
	A *int `hal:"a"`
	B *int
}

type Item interface {
	State() *Single[ItemState]
	Title() *Single[string]
	Subtitle() *Optional[string]
	Label() string
	Children() *Many[Item]
	Parent() *Optional[Item]
	Search(a, b *int) *Many[Item]
	Named(name *string) *Many[Item]
	Filter(f ItemFilter) *Many[Item]
	Links() *Many[hal.Link]
	Self() hal.Link
	Href() string
	Raw() *Single[*hal.Document]
	JSON() *Single[string]
	String() string
}

type itemProxy struct {
	p *Proxy
}

func newItemProxy(p *Proxy) Item {
	return &itemProxy{p: p}
}

func (x *itemProxy) State() *Single[ItemState] { return Call[*Single[ItemState]](x.p, "State") }
func (x *itemProxy) Title() *Single[string] { return Call[*Single[string]](x.p, "Title") }
func (x *itemProxy) Subtitle() *Optional[string] {
	return Call[*Optional[string]](x.p, "Subtitle")
}
func (x *itemProxy) Label() string { return Call[string](x.p, "Label") }
func (x *itemProxy) Children() *Many[Item] { return Call[*Many[Item]](x.p, "Children") }
func (x *itemProxy) Parent() *Optional[Item] { return Call[*Optional[Item]](x.p, "Parent") }
func (x *itemProxy) Search(a, b *int) *Many[Item] {
	return Call[*Many[Item]](x.p, "Search", a, b)
}
func (x *itemProxy) Named(name *string) *Many[Item] {
	return Call[*Many[Item]](x.p, "Named", name)
}
func (x *itemProxy) Filter(f ItemFilter) *Many[Item] {
	return Call[*Many[Item]](x.p, "Filter", f)
}
func (x *itemProxy) Links() *Many[hal.Link] { return Call[*Many[hal.Link]](x.p, "Links") }
func (x *itemProxy) Self() hal.Link { return Call[hal.Link](x.p, "Self") }
func (x *itemProxy) Href() string { return Call[string](x.p, "Href") }
func (x *itemProxy) Raw() *Single[*hal.Document] { return Call[*Single[*hal.Document]](x.p, "Raw") }
func (x *itemProxy) JSON() *Single[string] { return Call[*Single[string]](x.p, "JSON") }
func (x *itemProxy) String() string { return x.p.String() }

var itemTags = []MethodTag{
	State("State"),
	Property("Title", ""),
	Property("Subtitle", ""),
	Property("Label", "label"),
	Related("Children", "item"),
	Related("Parent", "up"),
	Related("Search", "search", Var("a"), Var("b")),
	Related("Named", "item", LinkName("name")),
	Related("Filter", "search"),
	Related("Links", "item"),
	Link("Self"),
	Link("Href"),
	Representation("Raw"),
	Representation("JSON"),
}

func newItemRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, Register[Item](reg, newItemProxy, itemTags...))
	return reg
}

// serverItem is a server-side Item.
type serverItem struct {
	id       int
	title    string
	children []Item
	parent   Item
	links    []hal.Link

	embedded bool
	linked   bool
	noLink   bool
	stateErr error
}

func (s *serverItem) State() *Single[ItemState] {
	if s.stateErr != nil {
		return SingleFrom(Failed[ItemState](s.stateErr))
	}
	return Just(ItemState{Title: s.title, Number: s.id})
}

func (s *serverItem) Title() *Single[string] { return Just(s.title) }
func (s *serverItem) Subtitle() *Optional[string] { return None[string]() }
func (s *serverItem) Label() string { return fmt.Sprintf("item %d", s.id) }
func (s *serverItem) Children() *Many[Item] { return Values(s.children...) }

func (s *serverItem) Parent() *Optional[Item] {
	if s.parent == nil {
		return None[Item]()
	}
	return Some(s.parent)
}

func (s *serverItem) Search(a, b *int) *Many[Item] { return nil }
func (s *serverItem) Named(name *string) *Many[Item] { return nil }
func (s *serverItem) Filter(f ItemFilter) *Many[Item] { return nil }
func (s *serverItem) Links() *Many[hal.Link] { return Values(s.links...) }
func (s *serverItem) Self() hal.Link { return hal.NewLink(s.href()) }
func (s *serverItem) Href() string { return s.href() }
func (s *serverItem) Raw() *Single[*hal.Document] { return nil }
func (s *serverItem) JSON() *Single[string] { return nil }
func (s *serverItem) String() string { return "serverItem " + s.href() }
func (s *serverItem) IsEmbedded() bool { return s.embedded }
func (s *serverItem) IsLinkedWhenEmbedded() bool { return s.linked }
func (s *serverItem) href() string { return fmt.Sprintf("/items/%d", s.id) }

func (s *serverItem) CreateLink() *hal.Link {
	if s.noLink {
		return nil
	}
	l := hal.NewLink(s.href())
	return &l
}
