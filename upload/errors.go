package upload

import (
	"errors"
	"fmt"
)

// Kind is a stable category for upload failures.
type Kind string

const (
	// KindRemoteRejected: the service answered with a non-2xx status.
	KindRemoteRejected Kind = "RemoteRejected"
	// KindMalformedResponse: 2xx, but the body is not JSON or lacks "id".
	KindMalformedResponse Kind = "MalformedResponse"
	// KindNetworkFailure: the request could not be sent or the response not read.
	KindNetworkFailure Kind = "NetworkFailure"
	// KindSigningFailure: key generation, envelope assembly or signing failed.
	KindSigningFailure Kind = "SigningFailure"
)

// Error is the structured upload error.
type Error struct {
	Kind Kind
	// Status is the HTTP status for KindRemoteRejected and KindMalformedResponse.
	Status int
	// Body is an excerpt of the response body, at most maxExcerpt bytes.
	Body  string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindRemoteRejected:
		if e.Body == "" {
			return fmt.Sprintf("upload: remote rejected (status %d)", e.Status)
		}
		return fmt.Sprintf("upload: remote rejected (status %d): %s", e.Status, e.Body)
	case KindMalformedResponse:
		if e.Cause != nil {
			return fmt.Sprintf("upload: malformed response (status %d): %v", e.Status, e.Cause)
		}
		return fmt.Sprintf("upload: malformed response (status %d)", e.Status)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("upload: %s: %v", e.Kind, e.Cause)
		}
		return fmt.Sprintf("upload: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

const maxExcerpt = 512

func excerpt(b []byte) string {
	if len(b) <= maxExcerpt {
		return string(b)
	}
	return string(b[:maxExcerpt]) + "..."
}
