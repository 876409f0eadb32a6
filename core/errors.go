package core

import "errors"

// StatusCode is the stable, versioned error taxonomy surfaced by every
// operation in this package. Numeric values match the original Terab C
// client's TERAB_* defines exactly, so a caller porting from the C/C++
// client can keep comparing against the same integers.
type StatusCode int32

const (
	StatusSuccess StatusCode = iota
	StatusConnectionFailed
	StatusTooManyClients
	StatusAuthenticationFailed
	StatusServiceUnavailable
	StatusTooManyRequests
	StatusInternalError
	StatusStorageFull
	StatusStorageCorrupted
	StatusBlockCorrupted
	StatusBlockFrozen
	StatusBlockCommitted
	StatusBlockUnknown
	StatusInconsistentRequest
	StatusInvalidRequest
)

func (c StatusCode) String() string {
	switch c {
	case StatusSuccess:
		return "success"
	case StatusConnectionFailed:
		return "connection failed"
	case StatusTooManyClients:
		return "too many clients"
	case StatusAuthenticationFailed:
		return "authentication failed"
	case StatusServiceUnavailable:
		return "service unavailable"
	case StatusTooManyRequests:
		return "too many requests"
	case StatusInternalError:
		return "internal error"
	case StatusStorageFull:
		return "storage full"
	case StatusStorageCorrupted:
		return "storage corrupted"
	case StatusBlockCorrupted:
		return "block corrupted"
	case StatusBlockFrozen:
		return "block frozen"
	case StatusBlockCommitted:
		return "block committed"
	case StatusBlockUnknown:
		return "block unknown"
	case StatusInconsistentRequest:
		return "inconsistent request"
	case StatusInvalidRequest:
		return "invalid request"
	default:
		return "unknown status"
	}
}

// StatusDetail is a finer-grained diagnostic reason, analogous to the
// original client's thread-local status_detail_t. Rather than a package
// level thread-local (unreliable across goroutines), it is attached
// directly to the Error value that caused it.
type StatusDetail int32

const (
	// DetailUnspecified covers anything not classified below.
	DetailUnspecified StatusDetail = iota
	// DetailUser means the caller supplied technically invalid input
	// (e.g. a malformed connection string).
	DetailUser
	// DetailConnectivity means the network misbehaved; the caller should
	// disconnect and build a fresh connection.
	DetailConnectivity
	// DetailRuntime means the local runtime is in a bad state (e.g. a
	// short write despite a retry loop); continuing to use the process
	// is not advised.
	DetailRuntime
)

func (d StatusDetail) String() string {
	switch d {
	case DetailUser:
		return "user"
	case DetailConnectivity:
		return "connectivity"
	case DetailRuntime:
		return "runtime"
	default:
		return "unspecified"
	}
}

// Error wraps an underlying cause (if any) with the taxonomy Code and the
// diagnostic Detail. It implements Unwrap so callers can use errors.Is/As
// against both this type and the wrapped cause.
type Error struct {
	Code   StatusCode
	Detail StatusDetail
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Code.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error, the package's sole constructor so call sites
// stay terse.
func newError(op string, code StatusCode, detail StatusDetail, cause error) *Error {
	return &Error{Op: op, Code: code, Detail: detail, Err: cause}
}

// StatusOf extracts the StatusCode from err, defaulting to
// StatusInternalError if err does not carry one (defensive: every error
// this package returns is an *Error, so this is only reached for bugs).
func StatusOf(err error) StatusCode {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return StatusInternalError
}

// DetailOf extracts the StatusDetail from err, defaulting to Unspecified.
func DetailOf(err error) StatusDetail {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return DetailUnspecified
}

// Sentinel range-level errors returned by Range; these are always wrapped
// into an *Error by the caller that detects them, never returned bare from
// an exported Connection/protocol method.
var (
	ErrBufferFull      = errors.New("core: buffer full")
	ErrBufferUnderflow = errors.New("core: buffer underflow")
)
