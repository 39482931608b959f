package hxhal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/hxhal/lib/hal"
)

// HTML returns a templ component that renders doc as a browsable page
// fragment: a table of links, the state as JSON and each embedded
// document nested below.
func HTML(doc *hal.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		writeDocument(&sb, doc)
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

// Page wraps HTML(doc) in a minimal standalone document.
func Page(title string, doc *hal.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head><body>`)
		if err != nil {
			return err
		}
		if err := HTML(doc).Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</body></html>`)
		return err
	})
}

func writeDocument(sb *strings.Builder, doc *hal.Document) {
	sb.WriteString(`<div class="hal-document">`)

	if rels := doc.LinkRelations(); len(rels) > 0 {
		sb.WriteString(`<table class="hal-links"><thead><tr><th>rel</th><th>href</th><th>name</th><th>title</th></tr></thead><tbody>`)
		for _, rel := range rels {
			for _, l := range doc.Links(rel) {
				sb.WriteString(`<tr><td>`)
				sb.WriteString(templ.EscapeString(rel))
				sb.WriteString(`</td><td>`)
				if l.Templated {
					sb.WriteString(`<code>`)
					sb.WriteString(templ.EscapeString(l.Href))
					sb.WriteString(`</code>`)
				} else {
					sb.WriteString(`<a href="`)
					sb.WriteString(templ.EscapeString(string(templ.URL(l.Href))))
					sb.WriteString(`">`)
					sb.WriteString(templ.EscapeString(l.Href))
					sb.WriteString(`</a>`)
				}
				sb.WriteString(`</td><td>`)
				sb.WriteString(templ.EscapeString(l.Name))
				sb.WriteString(`</td><td>`)
				sb.WriteString(templ.EscapeString(l.Title))
				sb.WriteString(`</td></tr>`)
			}
		}
		sb.WriteString(`</tbody></table>`)
	}

	if state := doc.State(); len(state) > 0 {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err == nil {
			sb.WriteString(`<pre class="hal-state">`)
			sb.WriteString(templ.EscapeString(strings.TrimSpace(buf.String())))
			sb.WriteString(`</pre>`)
		}
	}

	for _, rel := range doc.EmbeddedRelations() {
		sb.WriteString(`<section class="hal-embedded"><h3>`)
		sb.WriteString(templ.EscapeString(rel))
		sb.WriteString(`</h3>`)
		for _, d := range doc.Embedded(rel) {
			writeDocument(sb, d)
		}
		sb.WriteString(`</section>`)
	}

	sb.WriteString(`</div>`)
}
