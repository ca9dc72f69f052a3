// Package dicomerr provides DICOM-specific error types for better error handling.
//
// Callers branch on error kind with errors.As/Is, never on message contents.
// No error in this taxonomy is retried by the package that raises it; retry
// policy belongs to the calling orchestrator.
package dicomerr

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrConnectionClosed  = errors.New("dicom: connection closed")
	ErrInvalidPDU        = errors.New("dicom: invalid PDU")
	ErrNoPresentationCtx = errors.New("dicom: no suitable presentation context")
	ErrInvalidMessage    = errors.New("dicom: invalid DIMSE message")
	ErrPeerAborted       = errors.New("dicom: association aborted by peer")
)

// ConnectError reports that the transport to an endpoint could not be opened.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NewConnectError wraps a transport dial failure.
func NewConnectError(endpoint string, err error) *ConnectError {
	return &ConnectError{Endpoint: endpoint, Err: err}
}

// RejectSource identifies who rejected an association.
type RejectSource byte

const (
	RejectSourceUnknown         RejectSource = 0x00
	RejectSourceServiceUser     RejectSource = 0x01
	RejectSourceServiceProvider RejectSource = 0x02
)

func (s RejectSource) String() string {
	switch s {
	case RejectSourceServiceUser:
		return "service-user"
	case RejectSourceServiceProvider:
		return "service-provider"
	default:
		return "unknown"
	}
}

// RejectReason identifies why an association was rejected.
type RejectReason byte

const (
	RejectReasonUnknown                        RejectReason = 0x00
	RejectReasonNoReasonGiven                  RejectReason = 0x01
	RejectReasonApplicationContextNotSupported RejectReason = 0x02
	RejectReasonCallingAETitleNotRecognized    RejectReason = 0x03
	RejectReasonCalledAETitleNotRecognized     RejectReason = 0x07
)

func (r RejectReason) String() string {
	switch r {
	case RejectReasonNoReasonGiven:
		return "no-reason-given"
	case RejectReasonApplicationContextNotSupported:
		return "application-context-not-supported"
	case RejectReasonCallingAETitleNotRecognized:
		return "calling-ae-title-not-recognized"
	case RejectReasonCalledAETitleNotRecognized:
		return "called-ae-title-not-recognized"
	default:
		return "unknown"
	}
}

// AssociationRejectedError reports that the peer refused association
// negotiation. It names the endpoint and remote identity so a higher layer
// can log or retry; it is never retried here.
type AssociationRejectedError struct {
	Endpoint      string
	CalledAETitle string
	Source        RejectSource
	Reason        RejectReason
}

func (e *AssociationRejectedError) Error() string {
	return fmt.Sprintf("association rejected by %s (called AE %q, source: %s, reason: %s)",
		e.Endpoint, e.CalledAETitle, e.Source, e.Reason)
}

// SessionAbortedError reports a mid-session transport failure or an explicit
// abort. Operations in flight when the session aborts fail with this error.
type SessionAbortedError struct {
	Endpoint string
	Err      error
}

func (e *SessionAbortedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session to %s aborted: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("session to %s aborted", e.Endpoint)
}

func (e *SessionAbortedError) Unwrap() error { return e.Err }

// OperationFailedError reports a non-zero DIMSE status returned by the peer
// for Echo, Find or Store.
type OperationFailedError struct {
	Op     string
	Status uint16
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s failed with status 0x%04X", e.Op, e.Status)
}

// IsWarning reports whether the status is in the warning range.
func (e *OperationFailedError) IsWarning() bool {
	return (e.Status & 0xFF00) == 0x0100
}

// IsFailure reports whether the status is in one of the failure ranges.
func (e *OperationFailedError) IsFailure() bool {
	return (e.Status&0xF000) == 0xC000 || (e.Status&0xF000) == 0xA000
}

// EncodingError reports malformed bytes encountered while decoding a dataset
// or PDU payload.
type EncodingError struct {
	Offset int
	Msg    string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error at offset %d: %s", e.Offset, e.Msg)
}

// NewEncodingError creates an EncodingError at the given byte offset.
func NewEncodingError(offset int, format string, args ...any) *EncodingError {
	return &EncodingError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a required field missing or malformed while
// building a worklist item or query.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// NewValidationError creates a ValidationError for a named field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}
