package hxhal

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for binding operations.
var (
	ErrContract      = errors.New("hxhal: contract violation")
	ErrFetch         = errors.New("hxhal: upstream fetch failed")
	ErrNoValue       = errors.New("hxhal: no value emitted")
	ErrNotRegistered = errors.New("hxhal: resource interface not registered")
)

// ContractError reports a usage mistake: an interface or implementation that
// does not satisfy the binding contract. Contract errors are fatal to the
// operation that raised them and are never retried.
type ContractError struct {
	// Subject names what is wrong, such as "Item#Search" or "*store.Item".
	Subject string
	// Reason describes the violation.
	Reason string
	// Err is an optional underlying error.
	Err error
}

func (e *ContractError) Error() string {
	msg := "hxhal: " + e.Subject + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrContract) true for every ContractError.
func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

func contractErrorf(subject, format string, args ...any) *ContractError {
	return &ContractError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// FetchError reports a failure of the resource loader: a non-success
// status, a transport failure or a malformed body.
//
// When a fetch error crosses a proxy method boundary it is wrapped in a new
// FetchError that names the invocation and keeps the status code, so
// errors.As finds the outermost one with the same StatusCode.
type FetchError struct {
	// StatusCode is the upstream status code, 0 if none is known.
	StatusCode int
	// URI is the requested resource.
	URI string
	// Invocation names the proxy method call that triggered the fetch,
	// for example "Item#Search(q=shoes)". Empty for errors raised by the
	// loader itself.
	Invocation string
	// Err is the cause.
	Err error
}

func (e *FetchError) Error() string {
	if e.Invocation != "" {
		msg := "hxhal: " + e.Invocation + " failed"
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	msg := "hxhal: fetch " + e.URI
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" returned status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrFetch) true for every FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsContractError checks if err is a contract violation.
func IsContractError(err error) bool {
	return errors.Is(err, ErrContract)
}

// IsFetchError checks if err originates from the resource loader.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}

// StatusCode returns the upstream status code carried by err, if any.
func StatusCode(err error) (int, bool) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return fe.StatusCode, true
	}
	return 0, false
}

// HTTPStatus maps err to the status an outer HTTP boundary should answer
// with: the upstream status when one is known, 500 otherwise.
func HTTPStatus(err error) int {
	if code, ok := StatusCode(err); ok {
		return code
	}
	return http.StatusInternalServerError
}
