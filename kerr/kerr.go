// Package kerr implements the closed error taxonomy used throughout the
// client: a fixed set of error kinds, the Kafka protocol error-code table,
// and the aggregate error types returned from multi-partition operations.
package kerr

import "fmt"

// Kind classifies an error into one of the closed set of categories a
// caller needs to branch on. New kinds are never added silently; any new
// failure mode must fit one of these.
type Kind int

const (
	// KindUser marks a caller misuse: bad configuration, invalid argument.
	KindUser Kind = iota
	// KindNetwork marks a transport-level failure: dial, read, write, timeout.
	KindNetwork
	// KindAuthentication marks a SASL handshake or TLS failure.
	KindAuthentication
	// KindProtocol marks a Kafka-defined error code returned in a response.
	KindProtocol
	// KindResponse marks a response-level failure that isn't itself a
	// protocol error code: a malformed frame, an unexpected correlation ID.
	KindResponse
	// KindUnsupported marks a feature the broker or this library doesn't
	// implement: an API version out of range, a codec not compiled in.
	KindUnsupported
	// KindUnsupportedCompression marks a compression codec id this build
	// has no decoder registered for.
	KindUnsupportedCompression
	// KindUnexpectedCorrelationID marks a response whose correlation ID
	// doesn't match any outstanding request on the connection.
	KindUnexpectedCorrelationID
	// KindUnfinishedWriteBuffer marks a connection torn down mid-write,
	// leaving a partial frame on the wire that must not be retried as-is.
	KindUnfinishedWriteBuffer
	// KindMultiple wraps more than one error from a fanned-out operation.
	KindMultiple
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindNetwork:
		return "network"
	case KindAuthentication:
		return "authentication"
	case KindProtocol:
		return "protocol"
	case KindResponse:
		return "response"
	case KindUnsupported:
		return "unsupported"
	case KindUnsupportedCompression:
		return "unsupported-compression"
	case KindUnexpectedCorrelationID:
		return "unexpected-correlation-id"
	case KindUnfinishedWriteBuffer:
		return "unfinished-write-buffer"
	case KindMultiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// Error is the common shape every error this package returns satisfies.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kafka: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("kafka: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == k {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
