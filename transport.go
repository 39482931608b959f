package hxhal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pthm/hxhal/lib/hal"
)

// HTTPLoader fetches documents over HTTP.
type HTTPLoader struct {
	client *http.Client
	header http.Header
}

// NewHTTPLoader returns a loader using client, or http.DefaultClient when
// client is nil. header is added to every request.
func NewHTTPLoader(client *http.Client, header http.Header) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{client: client, header: header.Clone()}
}

// Fetch implements Loader. Every failure is a *FetchError. Only non-2xx
// responses carry a status code; an unreadable or malformed body does not.
func (l *HTTPLoader) Fetch(ctx context.Context, uri string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &FetchError{URI: uri, Err: err}
	}
	for k, vs := range l.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", hal.MediaType+", application/json;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URI: uri, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{StatusCode: resp.StatusCode, URI: uri, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URI: uri, Err: err}
	}
	res := &FetchResult{
		URI:         uri,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		MaxAge:      maxAge(resp.Header.Get("Cache-Control")),
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		doc, err := hal.Parse(body)
		if err != nil {
			return nil, &FetchError{URI: uri, Err: err}
		}
		res.Body = doc
	}
	return res, nil
}

// maxAge reads max-age from a Cache-Control header, -1 if absent.
func maxAge(cacheControl string) int {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		n, err := strconv.Atoi(strings.Trim(value, `"`))
		if err != nil || n < 0 {
			return -1
		}
		return n
	}
	return -1
}
