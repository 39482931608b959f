package hxhal

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pthm/hxhal/lib/hal"
)

// target is one resource a relation points at: a link, an embedded
// document, or both.
type target struct {
	link hal.Link
	doc  *hal.Document
}

// related resolves a related method call against doc and returns the
// proxies (or links, for methods holding hal.Link) in document order.
func (c *Client) related(doc *hal.Document, md *MethodDescriptor, values map[string]any) ([]any, error) {
	targets, err := selectTargets(doc, md, values)
	if err != nil {
		return nil, err
	}
	c.log.Debug("resolved relation",
		zap.String("call", md.String()),
		zap.String("rel", md.Relation),
		zap.Int("targets", len(targets)),
	)

	out := make([]any, 0, len(targets))
	for _, t := range targets {
		if md.Elem == linkType {
			out = append(out, t.link)
			continue
		}
		v, err := c.proxy(md.Elem, t.link, t.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// selectTargets applies the link resolution rules:
//
//   - links whose href matches an embedded document's self link are
//     dropped in favor of the embedded document, which takes the first
//     such link's name;
//   - link-name arguments restrict both links and embedded documents;
//   - without template variables the result is the embedded documents
//     followed by the resolved links, or the unexpanded templated links
//     if there are neither;
//   - with at least one non-null variable the templated links whose
//     variables cover the supplied ones are expanded;
//   - with only null variables the templated links are returned
//     unexpanded.
func selectTargets(doc *hal.Document, md *MethodDescriptor, values map[string]any) ([]target, error) {
	var (
		nameFilter  *string
		declared    int
		supplied    = make(map[string]any)
		anySupplied bool
	)
	for _, v := range md.Vars {
		val := values[v.Name]
		if v.LinkName {
			if val != nil {
				s, ok := val.(string)
				if !ok {
					return nil, contractErrorf(md.String(), "link name %q must be a string, got %T", v.Name, val)
				}
				nameFilter = &s
			}
			continue
		}
		declared++
		supplied[v.Name] = val
		if val != nil {
			anySupplied = true
		}
	}

	embedded := embeddedTargets(doc.Embedded(md.Relation))
	var resolved, templated []hal.Link
	for _, l := range doc.Links(md.Relation) {
		if l.Templated {
			templated = append(templated, l)
		} else {
			resolved = append(resolved, l)
		}
	}
	resolved = dedupe(embedded, resolved)

	if nameFilter != nil {
		embedded = filterTargets(embedded, *nameFilter)
		resolved = filterLinks(resolved, *nameFilter)
		templated = filterLinks(templated, *nameFilter)
	}

	switch {
	case declared == 0:
		out := append(embedded, linkTargets(resolved)...)
		if len(out) == 0 {
			out = linkTargets(templated)
		}
		return out, nil
	case anySupplied:
		return expandMatching(md, templated, supplied)
	case len(templated) > 0:
		return linkTargets(templated), nil
	default:
		return append(embedded, linkTargets(resolved)...), nil
	}
}

func embeddedTargets(docs []*hal.Document) []target {
	out := make([]target, len(docs))
	for i, d := range docs {
		out[i].doc = d
		if self, ok := d.Self(); ok {
			out[i].link = self
		}
	}
	return out
}

// dedupe removes links that point at an embedded document and moves the
// first matching link's name onto that document's target.
func dedupe(embedded []target, links []hal.Link) []hal.Link {
	if len(embedded) == 0 {
		return links
	}
	claimed := make(map[int]bool)
	var kept []hal.Link
	for _, l := range links {
		idx := -1
		for i, t := range embedded {
			if t.link.Href != "" && t.link.Href == l.Href {
				idx = i
				break
			}
		}
		if idx < 0 {
			kept = append(kept, l)
			continue
		}
		if !claimed[idx] {
			claimed[idx] = true
			if l.Name != "" {
				embedded[idx].link.Name = l.Name
			}
		}
	}
	return kept
}

func expandMatching(md *MethodDescriptor, templated []hal.Link, supplied map[string]any) ([]target, error) {
	var names []string
	for name, v := range supplied {
		if v != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []target
	for _, l := range templated {
		vars, err := l.Variables()
		if err != nil {
			return nil, &FetchError{URI: l.Href, Err: err}
		}
		if !covers(vars, names) {
			continue
		}
		expanded, err := l.Expand(supplied)
		if err != nil {
			return nil, &FetchError{URI: l.Href, Err: err}
		}
		out = append(out, target{link: expanded})
	}
	if len(out) == 0 {
		return nil, contractErrorf(md.String(), "no templated link with variables [%s] found in relation %q",
			strings.Join(names, ", "), md.Relation)
	}
	return out, nil
}

func covers(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func filterTargets(ts []target, name string) []target {
	var out []target
	for _, t := range ts {
		if t.link.Name == name {
			out = append(out, t)
		}
	}
	return out
}

func filterLinks(ls []hal.Link, name string) []hal.Link {
	var out []hal.Link
	for _, l := range ls {
		if l.Name == name {
			out = append(out, l)
		}
	}
	return out
}

func linkTargets(ls []hal.Link) []target {
	out := make([]target, len(ls))
	for i, l := range ls {
		out[i].link = l
	}
	return out
}
