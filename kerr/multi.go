package kerr

import "strings"

// ResponseError wraps a ProtocolError together with the response body it
// came from, so callers that need the full decoded response (e.g. to read
// throttle time or retriable partitions alongside the failing one) can get
// at it via errors.As instead of re-parsing.
type ResponseError struct {
	*ProtocolError
	Response any
}

func (e *ResponseError) Unwrap() error { return e.ProtocolError }

// NewResponseError pairs a protocol error with the response it was found
// in. Returns nil if code is the zero (no error) code.
func NewResponseError(code int16, resp any) error {
	pe := ErrorForCode(code)
	if pe == nil {
		return nil
	}
	return &ResponseError{ProtocolError: pe, Response: resp}
}

// MultipleErrors aggregates the per-key failures of a fanned-out operation
// (e.g. one DeleteTopics call touching several topics, some of which fail).
type MultipleErrors struct {
	Errs []KeyedError
}

// KeyedError associates a failure with the key it happened for (a topic
// name, a partition number, whatever identifies the sub-operation).
type KeyedError struct {
	Key string
	Err error
}

func (m *MultipleErrors) Error() string {
	var b strings.Builder
	b.WriteString("kafka: multiple errors: ")
	for i, ke := range m.Errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ke.Key)
		b.WriteString(": ")
		b.WriteString(ke.Err.Error())
	}
	return b.String()
}

// FindBy returns the error recorded for key, or nil if that key had no
// error (either because it succeeded or was never part of the operation).
func (m *MultipleErrors) FindBy(key string) error {
	for _, ke := range m.Errs {
		if ke.Key == key {
			return ke.Err
		}
	}
	return nil
}

// Add appends a keyed failure. A nil err is ignored, so callers can do
// `errs.Add(key, maybeErr)` in a loop unconditionally.
func (m *MultipleErrors) Add(key string, err error) {
	if err == nil {
		return
	}
	m.Errs = append(m.Errs, KeyedError{Key: key, Err: err})
}

// ErrOrNil returns m if it has any recorded errors, else nil — so it can be
// returned directly as an `error` without a typed-nil interface footgun.
func (m *MultipleErrors) ErrOrNil() error {
	if m == nil || len(m.Errs) == 0 {
		return nil
	}
	return m
}
