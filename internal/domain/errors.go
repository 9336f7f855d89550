package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTemplate is returned when a request template does not hold exactly one report request.
	ErrMalformedTemplate = errors.New("malformed report request template")

	// ErrNoData marks a page that carries no data for a shape (no rows, no pivot requested).
	ErrNoData = errors.New("no data for shape")

	ErrEmptyResponse          = errors.New("response carries no report")
	ErrPageLimitExceeded      = errors.New("page limit exceeded")
	ErrUnsupportedDestination = errors.New("unsupported destination")
	ErrRunNotFound            = errors.New("export run not found")
	ErrInvalidRunRequest      = errors.New("invalid export request")
)

// DecodeError reports a page whose shape violates the response contract.
type DecodeError struct {
	Shape  string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s: %s", e.Shape, e.Field, e.Reason)
}
