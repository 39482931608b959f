// Package hal models HAL+JSON documents.
//
// A Document is a JSON object with two reserved keys: "_links" maps a
// relation to one or more links, "_embedded" maps a relation to one or more
// nested documents. Everything else is resource state.
//
// Documents are immutable once built. Construct them with a Builder or
// Parse; derived variants such as ResolveHrefs return new values.
package hal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// MediaType is the HAL+JSON content type.
const MediaType = "application/hal+json"

// RelSelf is the reserved relation of a document's canonical link.
const RelSelf = "self"

const (
	keyLinks    = "_links"
	keyEmbedded = "_embedded"
)

// ErrInvalidDocument is returned when bytes cannot be parsed as HAL+JSON.
var ErrInvalidDocument = errors.New("hal: invalid document")

// Link is a HAL link object.
type Link struct {
	Href        string `json:"href"`
	Templated   bool   `json:"templated,omitempty"`
	Type        string `json:"type,omitempty"`
	Deprecation string `json:"deprecation,omitempty"`
	Name        string `json:"name,omitempty"`
	Profile     string `json:"profile,omitempty"`
	Title       string `json:"title,omitempty"`
	HrefLang    string `json:"hreflang,omitempty"`
}

// NewLink returns a link to href. Hrefs containing a URI template
// expression are marked as templated.
func NewLink(href string) Link {
	return Link{Href: href, Templated: IsTemplate(href)}
}

// WithName returns a copy of l with the given name.
func (l Link) WithName(name string) Link {
	l.Name = name
	return l
}

// WithTitle returns a copy of l with the given title.
func (l Link) WithTitle(title string) Link {
	l.Title = title
	return l
}

// IsZero reports whether l has no href.
func (l Link) IsZero() bool {
	return l.Href == ""
}

type linkRelation struct {
	rel   string
	links []Link
}

type embeddedRelation struct {
	rel  string
	docs []*Document
}

// Document is a parsed or rendered HAL resource.
type Document struct {
	state    map[string]any
	links    []linkRelation
	embedded []embeddedRelation
}

// State returns a shallow copy of the document's state, without the
// reserved _links and _embedded keys.
func (d *Document) State() map[string]any {
	out := make(map[string]any, len(d.state))
	for k, v := range d.state {
		out[k] = v
	}
	return out
}

// Property returns a single state field.
func (d *Document) Property(name string) (any, bool) {
	v, ok := d.state[name]
	return v, ok
}

// Self returns the document's self link.
func (d *Document) Self() (Link, bool) {
	links := d.Links(RelSelf)
	if len(links) == 0 {
		return Link{}, false
	}
	return links[0], true
}

// Links returns the links under rel in document order.
func (d *Document) Links(rel string) []Link {
	for _, lr := range d.links {
		if lr.rel == rel {
			return append([]Link(nil), lr.links...)
		}
	}
	return nil
}

// Embedded returns the embedded documents under rel in document order.
func (d *Document) Embedded(rel string) []*Document {
	for _, er := range d.embedded {
		if er.rel == rel {
			return append([]*Document(nil), er.docs...)
		}
	}
	return nil
}

// LinkRelations returns the link relations in output order.
func (d *Document) LinkRelations() []string {
	rels := make([]string, len(d.links))
	for i, lr := range d.links {
		rels[i] = lr.rel
	}
	return rels
}

// EmbeddedRelations returns the embedded relations in output order.
func (d *Document) EmbeddedRelations() []string {
	rels := make([]string, len(d.embedded))
	for i, er := range d.embedded {
		rels[i] = er.rel
	}
	return rels
}

// Parse decodes HAL+JSON bytes.
func Parse(data []byte) (*Document, error) {
	d := &Document{}
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return d, nil
}

// MarshalJSON writes _links first, then state (sorted by key), then
// _embedded. Relations are written in the document's relation order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}

	if len(d.links) > 0 {
		var lb bytes.Buffer
		lb.WriteByte('{')
		for i, lr := range d.links {
			if i > 0 {
				lb.WriteByte(',')
			}
			k, _ := json.Marshal(lr.rel)
			lb.Write(k)
			lb.WriteByte(':')
			var v []byte
			var err error
			if len(lr.links) == 1 {
				v, err = json.Marshal(lr.links[0])
			} else {
				v, err = json.Marshal(lr.links)
			}
			if err != nil {
				return nil, fmt.Errorf("hal: marshal %q links: %w", lr.rel, err)
			}
			lb.Write(v)
		}
		lb.WriteByte('}')
		field(keyLinks, lb.Bytes())
	}

	keys := make([]string, 0, len(d.state))
	for k := range d.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(d.state[k])
		if err != nil {
			return nil, fmt.Errorf("hal: marshal property %q: %w", k, err)
		}
		field(k, v)
	}

	if len(d.embedded) > 0 {
		var eb bytes.Buffer
		eb.WriteByte('{')
		for i, er := range d.embedded {
			if i > 0 {
				eb.WriteByte(',')
			}
			k, _ := json.Marshal(er.rel)
			eb.Write(k)
			eb.WriteByte(':')
			var v []byte
			var err error
			if len(er.docs) == 1 {
				v, err = er.docs[0].MarshalJSON()
			} else {
				v, err = json.Marshal(er.docs)
			}
			if err != nil {
				return nil, fmt.Errorf("hal: marshal %q embedded: %w", er.rel, err)
			}
			eb.Write(v)
		}
		eb.WriteByte('}')
		field(keyEmbedded, eb.Bytes())
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts single objects or arrays for every relation.
// Relations are sorted with CompareRelations; entries within a relation keep
// their document order.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := decodeNumbers(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidDocument)
	}

	*d = Document{state: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case keyLinks:
			links, err := parseLinks(value)
			if err != nil {
				return err
			}
			d.links = links
		case keyEmbedded:
			embedded, err := parseEmbedded(value)
			if err != nil {
				return err
			}
			d.embedded = embedded
		default:
			var v any
			if err := decodeNumbers(value, &v); err != nil {
				return fmt.Errorf("%w: property %q: %v", ErrInvalidDocument, key, err)
			}
			d.state[key] = v
		}
	}
	d.sortRelations()
	return nil
}

func parseLinks(data json.RawMessage) ([]linkRelation, error) {
	var rels map[string]json.RawMessage
	if err := json.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("%w: _links: %v", ErrInvalidDocument, err)
	}
	out := make([]linkRelation, 0, len(rels))
	for rel, value := range rels {
		var links []Link
		if isArray(value) {
			if err := json.Unmarshal(value, &links); err != nil {
				return nil, fmt.Errorf("%w: _links.%s: %v", ErrInvalidDocument, rel, err)
			}
		} else {
			var l Link
			if err := json.Unmarshal(value, &l); err != nil {
				return nil, fmt.Errorf("%w: _links.%s: %v", ErrInvalidDocument, rel, err)
			}
			links = []Link{l}
		}
		out = append(out, linkRelation{rel: rel, links: links})
	}
	return out, nil
}

func parseEmbedded(data json.RawMessage) ([]embeddedRelation, error) {
	var rels map[string]json.RawMessage
	if err := json.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("%w: _embedded: %v", ErrInvalidDocument, err)
	}
	out := make([]embeddedRelation, 0, len(rels))
	for rel, value := range rels {
		var items []json.RawMessage
		if isArray(value) {
			if err := json.Unmarshal(value, &items); err != nil {
				return nil, fmt.Errorf("%w: _embedded.%s: %v", ErrInvalidDocument, rel, err)
			}
		} else {
			items = []json.RawMessage{value}
		}
		docs := make([]*Document, 0, len(items))
		for _, item := range items {
			doc, err := Parse(item)
			if err != nil {
				return nil, fmt.Errorf("_embedded.%s: %w", rel, err)
			}
			docs = append(docs, doc)
		}
		out = append(out, embeddedRelation{rel: rel, docs: docs})
	}
	return out, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func isArray(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func (d *Document) sortRelations() {
	sort.SliceStable(d.links, func(i, j int) bool {
		return CompareRelations(d.links[i].rel, d.links[j].rel) < 0
	})
	sort.SliceStable(d.embedded, func(i, j int) bool {
		return CompareRelations(d.embedded[i].rel, d.embedded[j].rel) < 0
	})
}

func (d *Document) clone() *Document {
	c := &Document{state: d.State()}
	for _, lr := range d.links {
		c.links = append(c.links, linkRelation{rel: lr.rel, links: append([]Link(nil), lr.links...)})
	}
	for _, er := range d.embedded {
		c.embedded = append(c.embedded, embeddedRelation{rel: er.rel, docs: append([]*Document(nil), er.docs...)})
	}
	return c
}

// Builder assembles a Document. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	doc *Document
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{doc: &Document{state: make(map[string]any)}}
}

// Set sets a single state field, replacing any previous value.
func (b *Builder) Set(key string, value any) *Builder {
	b.doc.state[key] = value
	return b
}

// Merge copies every field of state into the document, replacing
// existing values.
func (b *Builder) Merge(state map[string]any) *Builder {
	for k, v := range state {
		b.doc.state[k] = v
	}
	return b
}

// AddLinks appends links under rel.
func (b *Builder) AddLinks(rel string, links ...Link) *Builder {
	if len(links) == 0 {
		return b
	}
	for i := range b.doc.links {
		if b.doc.links[i].rel == rel {
			b.doc.links[i].links = append(b.doc.links[i].links, links...)
			return b
		}
	}
	b.doc.links = append(b.doc.links, linkRelation{rel: rel, links: append([]Link(nil), links...)})
	return b
}

// Embed appends documents under rel.
func (b *Builder) Embed(rel string, docs ...*Document) *Builder {
	if len(docs) == 0 {
		return b
	}
	for i := range b.doc.embedded {
		if b.doc.embedded[i].rel == rel {
			b.doc.embedded[i].docs = append(b.doc.embedded[i].docs, docs...)
			return b
		}
	}
	b.doc.embedded = append(b.doc.embedded, embeddedRelation{rel: rel, docs: append([]*Document(nil), docs...)})
	return b
}

// Build returns the document with relations in CompareRelations order.
// The builder can keep being used; later changes do not affect documents
// already built.
func (b *Builder) Build() *Document {
	d := b.doc.clone()
	d.sortRelations()
	return d
}
