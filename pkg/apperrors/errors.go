// Package apperrors defines the tagged error kinds used across the worker.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	// ConfigMissing is a boot-time failure; the process exits.
	ConfigMissing
	// BusProtocol marks a malformed inbound bus message; logged and dropped.
	BusProtocol
	// StoreUnavailable covers object-store and result-store failures.
	StoreUnavailable
	// UpstreamUnavailable covers data-provider HTTP failures.
	UpstreamUnavailable
	// DataShape marks unexpected JSON structure in provider or historical blobs.
	DataShape
	// ComputeFailed wraps a compute-runtime failure; the traceback is carried verbatim.
	ComputeFailed
	// UnknownRequestKind is a router miss.
	UnknownRequestKind
)

func (k Kind) String() string {
	switch k {
	case ConfigMissing:
		return "config_missing"
	case BusProtocol:
		return "bus_protocol"
	case StoreUnavailable:
		return "store_unavailable"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case DataShape:
		return "data_shape"
	case ComputeFailed:
		return "compute_failed"
	case UnknownRequestKind:
		return "unknown_request_kind"
	default:
		return "unknown"
	}
}

// Error is a tagged error carrying a Kind and an optional cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

// New creates a tagged error with a fixed message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates a tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error. The message may be empty, in which case the
// cause's text is used as-is.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	switch {
	case e.msg == "" && e.err != nil:
		return e.err.Error()
	case e.err != nil:
		return e.msg + ": " + e.err.Error()
	default:
		return e.msg
	}
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind == kind
	}
	return false
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindUnknown
}
