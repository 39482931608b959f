package hxhal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// documentCache loads each URI at most once per client. Concurrent
// requests for the same URI share one in-flight fetch; finished results,
// including failures, are memoized for the lifetime of the client.
type documentCache struct {
	loader Loader
	log    *zap.Logger

	group   singleflight.Group
	mu      sync.Mutex
	results map[string]cachedFetch
}

type cachedFetch struct {
	res *FetchResult
	err error
}

func newDocumentCache(loader Loader, log *zap.Logger) *documentCache {
	return &documentCache{
		loader:  loader,
		log:     log,
		results: make(map[string]cachedFetch),
	}
}

func (c *documentCache) cached(uri string) (cachedFetch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[uri]
	return r, ok
}

func (c *documentCache) fetch(ctx context.Context, uri string) (*FetchResult, error) {
	if r, ok := c.cached(uri); ok {
		return r.res, r.err
	}
	v, err, _ := c.group.Do(uri, func() (any, error) {
		if r, ok := c.cached(uri); ok {
			return r.res, r.err
		}
		res, err := c.load(ctx, uri)
		c.mu.Lock()
		c.results[uri] = cachedFetch{res: res, err: err}
		c.mu.Unlock()
		return res, err
	})
	res, _ := v.(*FetchResult)
	return res, err
}

func (c *documentCache) load(ctx context.Context, uri string) (*FetchResult, error) {
	start := time.Now()
	res, err := c.loader.Fetch(ctx, uri)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			c.log.Error("loader returned a foreign error", zap.String("uri", uri), zap.Error(err))
			return nil, &ContractError{
				Subject: fmt.Sprintf("%T", c.loader),
				Reason:  "loaders must fail with *hxhal.FetchError",
				Err:     err,
			}
		}
		c.log.Warn("fetch failed", zap.String("uri", uri), zap.Int("status", fe.StatusCode), zap.Error(err))
		return nil, err
	}
	if res == nil {
		return nil, contractErrorf(fmt.Sprintf("%T", c.loader), "loader returned neither a result nor an error for %s", uri)
	}
	if res.Status != 0 && (res.Status < 200 || res.Status > 299) {
		c.log.Warn("fetch failed", zap.String("uri", uri), zap.Int("status", res.Status))
		return nil, &FetchError{StatusCode: res.Status, URI: uri, Err: fmt.Errorf("unexpected status %d", res.Status)}
	}
	c.log.Debug("fetched",
		zap.String("uri", uri),
		zap.Int("status", res.Status),
		zap.Duration("elapsed", time.Since(start)),
	)

	if res.Body != nil {
		if base, err := url.Parse(uri); err == nil && base.IsAbs() {
			resolved := *res
			resolved.Body = res.Body.ResolveHrefs(base)
			return &resolved, nil
		}
	}
	return res, nil
}
