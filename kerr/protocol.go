package kerr

// ProtocolError represents a non-zero error code returned by a broker in a
// response body. The flag set mirrors what callers actually branch on when
// deciding what to do next: retry, refresh metadata, rejoin a group.
type ProtocolError struct {
	// Code is the Kafka-defined numeric error code.
	Code int16
	// Name is the symbolic name Kafka documents for this code, e.g.
	// "NOT_LEADER_OR_FOLLOWER".
	Name string
	// Retriable is true when the broker expects the same request can
	// succeed if sent again unmodified.
	Retriable bool
	// StaleMetadata is true when the error indicates this client's
	// cached partition leadership is out of date and must be refreshed
	// before retrying.
	StaleMetadata bool
	// RebalanceInProgress is true for consumer-group errors that mean a
	// rebalance has already started elsewhere.
	RebalanceInProgress bool
	// NeedsRejoin is true when the consumer group member must rejoin
	// from scratch (its generation or member ID is no longer valid).
	NeedsRejoin bool
}

func (e *ProtocolError) Error() string {
	return "kafka: protocol error " + e.Name
}

// codeTable holds the subset of the official Kafka error code list this
// client branches on by name. Codes not listed here still round-trip
// through ErrorForCode with a generic, non-retriable ProtocolError.
var codeTable = map[int16]ProtocolError{
	-1: {Code: -1, Name: "UNKNOWN_SERVER_ERROR"},
	0:  {Code: 0, Name: "NONE"},
	1:  {Code: 1, Name: "OFFSET_OUT_OF_RANGE"},
	2:  {Code: 2, Name: "CORRUPT_MESSAGE", Retriable: true},
	3:  {Code: 3, Name: "UNKNOWN_TOPIC_OR_PARTITION", Retriable: true, StaleMetadata: true},
	5:  {Code: 5, Name: "LEADER_NOT_AVAILABLE", Retriable: true, StaleMetadata: true},
	6:  {Code: 6, Name: "NOT_LEADER_OR_FOLLOWER", Retriable: true, StaleMetadata: true},
	7:  {Code: 7, Name: "REQUEST_TIMED_OUT", Retriable: true},
	8:  {Code: 8, Name: "BROKER_NOT_AVAILABLE", Retriable: true, StaleMetadata: true},
	9:  {Code: 9, Name: "REPLICA_NOT_AVAILABLE", Retriable: true, StaleMetadata: true},
	10: {Code: 10, Name: "MESSAGE_TOO_LARGE"},
	15: {Code: 15, Name: "GROUP_COORDINATOR_NOT_AVAILABLE", Retriable: true, StaleMetadata: true},
	16: {Code: 16, Name: "NOT_COORDINATOR", Retriable: true, StaleMetadata: true},
	19: {Code: 19, Name: "LEADER_NOT_AVAILABLE", Retriable: true, StaleMetadata: true},
	22: {Code: 22, Name: "ILLEGAL_GENERATION", NeedsRejoin: true},
	24: {Code: 24, Name: "UNKNOWN_MEMBER_ID", NeedsRejoin: true},
	25: {Code: 25, Name: "INVALID_SESSION_TIMEOUT"},
	27: {Code: 27, Name: "REBALANCE_IN_PROGRESS", RebalanceInProgress: true, NeedsRejoin: true},
	34: {Code: 34, Name: "ILLEGAL_SASL_STATE"},
	35: {Code: 35, Name: "UNSUPPORTED_VERSION"},
	37: {Code: 37, Name: "INVALID_PARTITIONS"},
	41: {Code: 41, Name: "NOT_CONTROLLER", Retriable: true, StaleMetadata: true},
	45: {Code: 45, Name: "UNKNOWN_LEADER_EPOCH", Retriable: true, StaleMetadata: true},
	46: {Code: 46, Name: "UNSUPPORTED_COMPRESSION_TYPE"},
	47: {Code: 47, Name: "STALE_BROKER_EPOCH", Retriable: true, StaleMetadata: true},
	48: {Code: 48, Name: "OFFSET_NOT_AVAILABLE", Retriable: true},
	51: {Code: 51, Name: "NETWORK_EXCEPTION", Retriable: true, StaleMetadata: true},
	58: {Code: 58, Name: "OUT_OF_ORDER_SEQUENCE_NUMBER"},
	80: {Code: 80, Name: "MEMBER_ID_REQUIRED", NeedsRejoin: true},
	88: {Code: 88, Name: "FENCED_INSTANCE_ID"},
}

// ErrorForCode maps a Kafka error code to a *ProtocolError. Code 0 maps to
// nil, matching how every response-parsing call site wants to branch
// ("err := kerr.ErrorForCode(resp.ErrorCode); err != nil { ... }").
func ErrorForCode(code int16) *ProtocolError {
	if code == 0 {
		return nil
	}
	if pe, ok := codeTable[code]; ok {
		cp := pe
		return &cp
	}
	return &ProtocolError{Code: code, Name: "UNKNOWN_SERVER_ERROR"}
}

// AsProtocolError reports whether err is a *ProtocolError, unwrapping
// through *Error wrappers as needed.
func AsProtocolError(err error) (*ProtocolError, bool) {
	for err != nil {
		if pe, ok := err.(*ProtocolError); ok {
			return pe, true
		}
		if e, ok := err.(*Error); ok {
			err = e.Err
			continue
		}
		return nil, false
	}
	return nil, false
}
