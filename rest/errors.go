package rest

import "errors"

// ErrMalformedJSON is wrapped around a json.Unmarshal failure decoding a
// request body.
var ErrMalformedJSON = errors.New("rest: malformed JSON body")

// ErrValidation is wrapped around a go-playground/validator failure.
var ErrValidation = errors.New("rest: request failed validation")

// StatusError lets a resource handler control the exact status code and
// envelope error this package answers with, instead of always falling
// back to 500.
type StatusError struct {
	Status  int
	Code    uint32
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// NewStatusError builds a StatusError for a handler to return.
func NewStatusError(status int, code uint32, message string) *StatusError {
	return &StatusError{Status: status, Code: code, Message: message}
}
