package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidURL indicates the request target could not be addressed.
var ErrInvalidURL = errors.New("invalid request url")

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// Transport delivers an encoded chat completion request and returns the raw
// response body. Implementations return *StatusError for non-success
// responses and never retry.
type Transport interface {
	Name() string
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// StatusError reports a non-success HTTP status from the completion endpoint.
type StatusError struct {
	StatusCode int
	// Body is the decoded JSON diagnostic returned by the endpoint, or empty
	// when the body was not JSON.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("invalid response: status %d", e.StatusCode)
	}
	return fmt.Sprintf("invalid response: status %d: %s", e.StatusCode, e.Body)
}
