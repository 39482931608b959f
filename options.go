package hxhal

import (
	"context"

	"go.uber.org/zap"
)

// Option configures a Client, Renderer or Handler.
type Option func(*options)

type options struct {
	logger *zap.Logger
	ctx    context.Context
}

func buildOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithContext sets the context used by synchronous proxy methods, which
// have no context parameter of their own.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}
