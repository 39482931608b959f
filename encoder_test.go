package hxhal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type region struct {
	code  string
	cache map[string]int
}

func (r region) EncodeKey() any { return r.code }

func TestCallKey(t *testing.T) {
	md := &MethodDescriptor{Interface: "Item", Name: "Search"}

	a, err := callKey(md, map[string]any{"a": 1, "b": nil})
	require.NoError(t, err)
	b, err := callKey(md, map[string]any{"b": nil, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b, "keys do not depend on map order")

	c, err := callKey(md, map[string]any{"a": 2, "b": nil})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	other := &MethodDescriptor{Interface: "Item", Name: "Filter"}
	d, err := callKey(other, map[string]any{"a": 1, "b": nil})
	require.NoError(t, err)
	assert.NotEqual(t, a, d, "keys are per method")
}

func TestCallKey_Encodable(t *testing.T) {
	md := &MethodDescriptor{Interface: "Item", Name: "Search"}

	a, err := callKey(md, map[string]any{"r": region{code: "eu", cache: map[string]int{"x": 1}}})
	require.NoError(t, err)
	b, err := callKey(md, map[string]any{"r": region{code: "eu"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := callKey(md, map[string]any{"r": region{code: "us"}})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestCallKey_Unencodable(t *testing.T) {
	md := &MethodDescriptor{Interface: "Item", Name: "Search"}
	_, err := callKey(md, map[string]any{"c": make(chan int)})
	require.Error(t, err)
	assert.True(t, IsContractError(err))
	assert.Contains(t, err.Error(), "Item#Search")
}
