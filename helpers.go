package hxhal

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/pthm/hxhal/lib/hal"
)

// ResourceFunc resolves the resource an HTTP request addresses.
// Returning a *FetchError with a status code answers with that status.
type ResourceFunc func(r *http.Request) (any, error)

// Handler serves rendered resources. Browsers asking for text/html get the
// HTML view; everyone else gets HAL+JSON.
//
//	mux.Handle("GET /products/{id}", hxhal.Handler(renderer, func(r *http.Request) (any, error) {
//	    return store.Product(r.PathValue("id"))
//	}))
func Handler(renderer *Renderer, resolve ResourceFunc, opts ...Option) http.Handler {
	o := buildOptions(opts)
	log := o.logger
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource, err := resolve(r)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		doc, err := renderer.RenderDocument(r.Context(), resource)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if WantsHTML(r) {
			if err := Render(w, r, Page(r.URL.Path, doc)); err != nil {
				log.Warn("write html", zap.String("path", r.URL.Path), zap.Error(err))
			}
			return
		}
		if err := WriteDocument(w, http.StatusOK, doc); err != nil {
			log.Warn("write document", zap.String("path", r.URL.Path), zap.Error(err))
		}
	})
}

// WriteDocument writes doc as HAL+JSON with the given status.
func WriteDocument(w http.ResponseWriter, status int, doc *hal.Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", hal.MediaType)
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, http.StatusText(status), status)
}

// Render writes a templ component to the HTTP response.
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// WantsHTML reports whether the request prefers text/html over JSON, as a
// browser navigating to the API does.
func WantsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "text/html":
			return true
		case hal.MediaType, "application/json":
			return false
		}
	}
	return false
}
