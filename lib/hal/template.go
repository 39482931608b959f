package hal

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// IsTemplate reports whether href contains a URI template expression.
func IsTemplate(href string) bool {
	open := strings.IndexByte(href, '{')
	return open >= 0 && strings.IndexByte(href[open:], '}') > 0
}

// Variables returns the variable names of a templated link, in template
// order. Non-templated links have no variables.
func (l Link) Variables() ([]string, error) {
	if !l.Templated {
		return nil, nil
	}
	tmpl, err := uritemplate.New(l.Href)
	if err != nil {
		return nil, fmt.Errorf("hal: parse template %q: %w", l.Href, err)
	}
	return tmpl.Varnames(), nil
}

// Expand returns a copy of l with its template expanded (RFC 6570).
// Nil values are treated as undefined and dropped from the expansion.
// Expanding a non-templated link returns it unchanged.
func (l Link) Expand(vars map[string]any) (Link, error) {
	if !l.Templated {
		return l, nil
	}
	href, err := ExpandTemplate(l.Href, vars)
	if err != nil {
		return Link{}, err
	}
	l.Href = href
	l.Templated = false
	return l, nil
}

// ExpandTemplate expands a URI template with vars.
func ExpandTemplate(template string, vars map[string]any) (string, error) {
	tmpl, err := uritemplate.New(template)
	if err != nil {
		return "", fmt.Errorf("hal: parse template %q: %w", template, err)
	}
	values := uritemplate.Values{}
	for name, v := range vars {
		if value, ok := templateValue(v); ok {
			values.Set(name, value)
		}
	}
	out, err := tmpl.Expand(values)
	if err != nil {
		return "", fmt.Errorf("hal: expand template %q: %w", template, err)
	}
	return out, nil
}

func templateValue(v any) (uritemplate.Value, bool) {
	if v == nil {
		return uritemplate.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return uritemplate.Value{}, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return uritemplate.Value{}, false
		}
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return uritemplate.List(items...), true
	case reflect.Map:
		if rv.IsNil() {
			return uritemplate.Value{}, false
		}
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]string, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			byKey[k] = fmt.Sprint(iter.Value().Interface())
		}
		sort.Strings(keys)
		kv := make([]string, 0, 2*len(keys))
		for _, k := range keys {
			kv = append(kv, k, byKey[k])
		}
		return uritemplate.KV(kv...), true
	default:
		return uritemplate.String(fmt.Sprint(rv.Interface())), true
	}
}

// ResolveHrefs returns a copy of d in which every relative href, including
// those of embedded documents, is resolved against base. Templated hrefs
// are resolved on the part before the first expression.
func (d *Document) ResolveHrefs(base *url.URL) *Document {
	c := &Document{state: d.State()}
	for _, lr := range d.links {
		links := make([]Link, len(lr.links))
		for i, l := range lr.links {
			l.Href = resolveHref(base, l.Href, l.Templated)
			links[i] = l
		}
		c.links = append(c.links, linkRelation{rel: lr.rel, links: links})
	}
	for _, er := range d.embedded {
		docs := make([]*Document, len(er.docs))
		for i, doc := range er.docs {
			docs[i] = doc.ResolveHrefs(base)
		}
		c.embedded = append(c.embedded, embeddedRelation{rel: er.rel, docs: docs})
	}
	return c
}

func resolveHref(base *url.URL, href string, templated bool) string {
	if href == "" {
		return href
	}
	prefix, rest := href, ""
	if templated {
		if i := strings.IndexByte(href, '{'); i >= 0 {
			prefix, rest = href[:i], href[i:]
		}
	}
	ref, err := url.Parse(prefix)
	if err != nil || ref.IsAbs() {
		return href
	}
	return base.ResolveReference(ref).String() + rest
}
