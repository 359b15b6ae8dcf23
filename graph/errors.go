package graph

import (
	"errors"
	"strings"
)

// ErrInvalidParameter is returned when a node is constructed with a
// parameter outside of its valid domain.
var ErrInvalidParameter = errors.New("invalid graph parameter")

// Errors wraps all errors collected by the builder.
type Errors []error

func (e Errors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ", ")
}

// Unwrap allows errors.Is and errors.As to match any of the wrapped errors.
func (e Errors) Unwrap() []error {
	return e
}

// ret returns untyped nil if error is list is empty.
func (e Errors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
