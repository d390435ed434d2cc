package kproto

import "github.com/knactor/kafka/kwire"

// CoordinatorKeyType distinguishes the two kinds of coordinator a client
// can look up: the group coordinator (for consumer group ops) and the
// transaction coordinator (for transactional producing).
type CoordinatorKeyType int8

const (
	CoordinatorGroup CoordinatorKeyType = 0
	CoordinatorTxn   CoordinatorKeyType = 1
)

type FindCoordinatorRequest struct {
	base
	Key     string
	KeyType CoordinatorKeyType
}

func (r *FindCoordinatorRequest) Key() int16       { return KeyFindCoordinator }
func (r *FindCoordinatorRequest) IsFlexible() bool { return r.version >= 3 }

func (r *FindCoordinatorRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.Key, flex)
	if r.version >= 1 {
		w.Int8(int8(r.KeyType))
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *FindCoordinatorRequest) ResponseKind() Response {
	return &FindCoordinatorResponse{base: base{version: r.version}}
}

type FindCoordinatorResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	NodeID         int32
	Host           string
	Port           int32
}

func (r *FindCoordinatorResponse) Key() int16       { return KeyFindCoordinator }
func (r *FindCoordinatorResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *FindCoordinatorResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *FindCoordinatorResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	r.ErrorCode = b.Int16()
	if r.version >= 1 {
		_ = readNullableString(b, flex) // error message, unused
	}
	r.NodeID = b.Int32()
	r.Host = readString(b, flex)
	r.Port = b.Int32()
	if flex {
		b.SkipTags()
	}
	return b.Err()
}
