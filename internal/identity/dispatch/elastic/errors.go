package elastic

import (
	"errors"
	"fmt"
)

// Kind is the failure taxonomy for backend calls.
type Kind string

const (
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindCanceled  Kind = "canceled"
	KindStatus    Kind = "status"
	KindMalformed Kind = "malformed"
)

// Error is a failed backend call.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("elastic %s [%s %d]: %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("elastic %s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a backend error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Summary describes err by operation and kind only. The wrapped transport
// error carries the request URL and is left out.
func Summary(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "unclassified backend error"
	}
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: %s %d", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}
