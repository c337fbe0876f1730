package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for draft bookkeeping and configuration problems.
var (
	ErrDraftNotFound  = errors.New("draft not found")
	ErrDraftBusy      = errors.New("draft has an operation in flight")
	ErrEquipoNotFound = errors.New("equipment record not found")

	ErrDNIInvalido         = errors.New("dni must be exactly 8 numeric digits")
	ErrFechaInvalida       = errors.New("fechaRegistro must be YYYY-MM-DD")
	ErrCampoDesconocido    = errors.New("unknown draft field")
	ErrFotoIndexOutOfRange = errors.New("photo index out of range")
	ErrRemovalNotConfirmed = errors.New("photo removal requires confirmation")

	// ErrTokenNoConfigurado is a configuration error, distinct from a lookup
	// failure: no network call may be issued when the credential is missing.
	ErrTokenNoConfigurado = errors.New("identity API token is not configured")
)

// ValidationError reports required fields missing at submission. The draft is
// preserved and no network I/O has been performed.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// PermissionError reports a denied camera/gallery (spool or staging) access.
// No state has been mutated.
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied during %s: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// LookupError reports a failed identity lookup: service unreachable,
// non-success status, or no match for the DNI.
type LookupError struct {
	DNI    string
	Reason string
	Err    error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dni lookup failed: %s: %v", e.Reason, e.Err)
	}
	return "dni lookup failed: " + e.Reason
}

func (e *LookupError) Unwrap() error { return e.Err }

// UploadError reports a photo upload failure. The whole submission batch is
// aborted; the draft keeps all its local handles for retry.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("photo upload failed (%s): %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// StoreError reports a document store read/write failure. Surfaced to the
// caller, never retried automatically.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
