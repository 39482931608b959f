package hxhal

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	errs := []error{ErrContract, ErrFetch, ErrNoValue, ErrNotRegistered}
	for i, err1 := range errs {
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestIsContractError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"ContractError", contractErrorf("Item#State", "bad"), true},
		{"wrapped", fmt.Errorf("outer: %w", contractErrorf("Item", "bad")), true},
		{"not registered", &ContractError{Subject: "Item", Reason: "cannot bind", Err: ErrNotRegistered}, true},
		{"FetchError", &FetchError{StatusCode: 404, URI: "/x"}, false},
		{"other", errors.New("other"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContractError(tt.err); got != tt.expect {
				t.Errorf("IsContractError(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}

func TestIsFetchError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil error", nil, false},
		{"FetchError", &FetchError{URI: "/x"}, true},
		{"wrapped", fmt.Errorf("outer: %w", &FetchError{URI: "/x"}), true},
		{"ContractError", contractErrorf("Item", "bad"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFetchError(tt.err); got != tt.expect {
				t.Errorf("IsFetchError(%v) = %v, want %v", tt.err, got, tt.expect)
			}
		})
	}
}

func TestStatusCodeThroughWrapping(t *testing.T) {
	inner := &FetchError{StatusCode: http.StatusNotFound, URI: "/items/1", Err: errors.New("not found")}
	outer := &FetchError{StatusCode: inner.StatusCode, URI: inner.URI, Invocation: "Item#State()", Err: inner}

	code, ok := StatusCode(outer)
	if !ok || code != http.StatusNotFound {
		t.Errorf("StatusCode() = %d, %v, want 404", code, ok)
	}
	if HTTPStatus(outer) != http.StatusNotFound {
		t.Errorf("HTTPStatus() = %d, want 404", HTTPStatus(outer))
	}
	if !errors.Is(outer, inner) {
		t.Error("wrapped fetch error should unwrap to the original")
	}

	if _, ok := StatusCode(&FetchError{URI: "/x"}); ok {
		t.Error("StatusCode() should report no status for 0")
	}
	if HTTPStatus(errors.New("boom")) != http.StatusInternalServerError {
		t.Error("HTTPStatus() should default to 500")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{contractErrorf("Item#Tags", "arrays are not supported"), "hxhal: Item#Tags: arrays are not supported"},
		{&ContractError{Subject: "Item", Reason: "cannot bind", Err: ErrNotRegistered}, "hxhal: Item: cannot bind: hxhal: resource interface not registered"},
		{&FetchError{StatusCode: 404, URI: "/items/1", Err: errors.New("not found")}, "hxhal: fetch /items/1 returned status 404: not found"},
		{&FetchError{URI: "/items/1", Invocation: "Item#State()", Err: errors.New("boom")}, "hxhal: Item#State() failed: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
