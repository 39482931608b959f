// Package hxhalecho provides Echo framework integration for hxhal renderers.
//
// Serve a rendered resource from a route:
//
//	renderer := hxhal.NewRenderer(reg)
//	e.GET("/products/:id", hxhalecho.Handler(renderer, func(c echo.Context) (any, error) {
//	    return store.Product(c.Param("id"))
//	}))
//
// Or mount it on a group with middleware:
//
//	g := e.Group("/api", authMiddleware)
//	hxhalecho.Mount(g, "/products/:id", renderer, resolveProduct)
package hxhalecho

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxhal"
	"github.com/pthm/hxhal/lib/hal"
)

// ResourceFunc resolves the resource an Echo request addresses.
type ResourceFunc func(c echo.Context) (any, error)

// Router is implemented by *echo.Echo and *echo.Group.
type Router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Mount registers Handler(renderer, resolve) for GET requests on path.
func Mount(r Router, path string, renderer *hxhal.Renderer, resolve ResourceFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return r.GET(path, Handler(renderer, resolve), m...)
}

// Handler renders the resource resolve returns. Browsers asking for
// text/html get the HTML view; everyone else gets HAL+JSON. Errors are
// returned as *echo.HTTPError so Echo's error handler answers them.
func Handler(renderer *hxhal.Renderer, resolve ResourceFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		resource, err := resolve(c)
		if err != nil {
			return ErrorStatus(err)
		}
		req := c.Request()
		doc, err := renderer.RenderDocument(req.Context(), resource)
		if err != nil {
			return ErrorStatus(err)
		}
		if hxhal.WantsHTML(req) {
			return Render(c, hxhal.Page(req.URL.Path, doc))
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return ErrorStatus(err)
		}
		return c.Blob(http.StatusOK, hal.MediaType, b)
	}
}

// ErrorStatus converts err into an *echo.HTTPError carrying the status
// hxhal.HTTPStatus maps it to. err is kept as the internal error.
func ErrorStatus(err error) *echo.HTTPError {
	status := hxhal.HTTPStatus(err)
	return echo.NewHTTPError(status, http.StatusText(status)).SetInternal(err)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxhalecho.Render(c, hxhal.HTML(doc))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return component.Render(c.Request().Context(), c.Response())
}
