package hxhal

import (
	"github.com/pthm/hxhal/lib/encoding"
)

// Encodable is implemented by argument types that supply their own cache
// key representation. Proxies memoize results per method and argument
// values; arguments that msgpack cannot encode field by field (or that
// carry state irrelevant to the request) should implement it.
type Encodable = encoding.Encodable

// callKey returns the memoization key of a call.
func callKey(md *MethodDescriptor, values map[string]any) (string, error) {
	normalized := make(map[string]any, len(values))
	for name, v := range values {
		if enc, ok := v.(Encodable); ok {
			v = enc.EncodeKey()
		}
		normalized[name] = v
	}
	key, err := encoding.Key(md.Name, normalized)
	if err != nil {
		return "", wrapEncodingError(md, err)
	}
	return key, nil
}

func wrapEncodingError(md *MethodDescriptor, err error) error {
	return &ContractError{Subject: md.String(), Reason: "arguments cannot be used as a cache key", Err: err}
}
