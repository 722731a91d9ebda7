package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies why an API call failed.
type Kind int

const (
	KindInvalidEndpoint Kind = iota + 1
	KindRequestEncoding
	KindTransport
	KindEmptyResponse
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEndpoint:
		return "invalid endpoint"
	case KindRequestEncoding:
		return "request encoding failed"
	case KindTransport:
		return "transport error"
	case KindEmptyResponse:
		return "empty response"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidEndpoint   = errors.New("invalid endpoint")
	ErrRequestEncoding   = errors.New("request encoding failed")
	ErrTransport         = errors.New("transport error")
	ErrEmptyResponse     = errors.New("empty response")
	ErrMalformedResponse = errors.New("malformed response")

	ErrFieldMissing = errors.New("field missing")
	ErrFieldType    = errors.New("field has wrong type")
)

var kindSentinels = map[Kind]error{
	KindInvalidEndpoint:   ErrInvalidEndpoint,
	KindRequestEncoding:   ErrRequestEncoding,
	KindTransport:         ErrTransport,
	KindEmptyResponse:     ErrEmptyResponse,
	KindMalformedResponse: ErrMalformedResponse,
}

// Error is returned by every Client operation.
type Error struct {
	Op     string
	Kind   Kind
	Status int // HTTP status when a response was received, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) and friends match on Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(op string, kind Kind, status int, err error) *Error {
	return &Error{Op: op, Kind: kind, Status: status, Err: err}
}

// KindOf reports the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
