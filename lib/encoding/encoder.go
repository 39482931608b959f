// Package encoding builds canonical keys for memoized calls.
//
// A key is the msgpack encoding of the call's parts with map keys sorted,
// so two calls with equal arguments produce the same key regardless of map
// iteration order. Keys are base64 (URL alphabet) strings, safe to use as
// map keys and in logs.
package encoding

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrInvalidFormat is returned by Decode for strings that are not keys.
var ErrInvalidFormat = errors.New("encoding: invalid key format")

// Encodable is implemented by argument types that provide their own key
// representation instead of being encoded field by field.
type Encodable interface {
	EncodeKey() any
}

// Key returns the canonical key for parts.
func Key(parts ...any) (string, error) {
	normalized := make([]any, len(parts))
	for i, p := range parts {
		if enc, ok := p.(Encodable); ok {
			p = enc.EncodeKey()
		}
		normalized[i] = p
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(normalized); err != nil {
		return "", fmt.Errorf("encoding: encode key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// MustKey is like Key but panics on error. Use it only with parts known to
// be encodable (strings, numbers, maps and slices of those).
func MustKey(parts ...any) string {
	k, err := Key(parts...)
	if err != nil {
		panic(err)
	}
	return k
}

// Decode returns the parts of a key, for diagnostics.
func Decode(key string) ([]any, error) {
	packed, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	var parts []any
	if err := msgpack.Unmarshal(packed, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return parts, nil
}
