package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
	ErrRejected    = errors.New("storage: rejected")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// RejectedError carries the reason a Guarded store refused a Put.
type RejectedError struct {
	Reason error
}

func (e *RejectedError) Error() string { return fmt.Sprintf("%v: %v", ErrRejected, e.Reason) }

func (e *RejectedError) Unwrap() []error { return []error{ErrRejected, e.Reason} }
