package kproto

import "github.com/knactor/kafka/kwire"

// JoinGroupProtocol is one (name, metadata) entry a member offers during
// JoinGroup; the group leader picks partition assignment using whichever
// named protocol every member has in common.
type JoinGroupProtocol struct {
	Name     string
	Metadata []byte
}

type JoinGroupRequest struct {
	base
	GroupID            string
	SessionTimeoutMs   int32
	RebalanceTimeoutMs int32
	MemberID           string
	GroupInstanceID    *string
	ProtocolType       string
	Protocols          []JoinGroupProtocol
}

func (r *JoinGroupRequest) Key() int16       { return KeyJoinGroup }
func (r *JoinGroupRequest) IsFlexible() bool { return r.version >= 6 }

func (r *JoinGroupRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.GroupID, flex)
	w.Int32(r.SessionTimeoutMs)
	if r.version >= 1 {
		w.Int32(r.RebalanceTimeoutMs)
	}
	writeString(w, r.MemberID, flex)
	if r.version >= 5 {
		if flex {
			w.CompactString(r.GroupInstanceID)
		} else {
			w.String(r.GroupInstanceID)
		}
	}
	writeString(w, r.ProtocolType, flex)
	if flex {
		w.CompactArrayLen(len(r.Protocols), false)
	} else {
		w.ArrayLen(len(r.Protocols), false)
	}
	for _, p := range r.Protocols {
		writeString(w, p.Name, flex)
		if flex {
			w.CompactBytes(p.Metadata)
		} else {
			w.NullableBytes(p.Metadata)
		}
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *JoinGroupRequest) ResponseKind() Response {
	return &JoinGroupResponse{base: base{version: r.version}}
}

type JoinGroupMember struct {
	MemberID        string
	GroupInstanceID *string
	Metadata        []byte
}

type JoinGroupResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	GenerationID   int32
	ProtocolName   string
	Leader         string
	MemberID       string
	Members        []JoinGroupMember
}

func (r *JoinGroupResponse) Key() int16       { return KeyJoinGroup }
func (r *JoinGroupResponse) IsFlexible() bool  { return r.version >= 6 }
func (r *JoinGroupResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *JoinGroupResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 2 {
		r.ThrottleMillis = b.Int32()
	}
	r.ErrorCode = b.Int16()
	r.GenerationID = b.Int32()
	r.ProtocolName = readString(b, flex)
	r.Leader = readString(b, flex)
	r.MemberID = readString(b, flex)
	n := arrLen(b, flex)
	r.Members = make([]JoinGroupMember, 0, n)
	for i := 0; i < n; i++ {
		m := JoinGroupMember{MemberID: readString(b, flex)}
		if r.version >= 5 {
			m.GroupInstanceID = readNullableString(b, flex)
		}
		if flex {
			m.Metadata = b.CompactBytes()
		} else {
			m.Metadata = b.Bytes()
		}
		if flex {
			b.SkipTags()
		}
		r.Members = append(r.Members, m)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- SyncGroup ---

type SyncGroupAssignment struct {
	MemberID   string
	Assignment []byte
}

type SyncGroupRequest struct {
	base
	GroupID         string
	GenerationID    int32
	MemberID        string
	GroupInstanceID *string
	ProtocolType    *string
	ProtocolName    *string
	Assignments     []SyncGroupAssignment
}

func (r *SyncGroupRequest) Key() int16       { return KeySyncGroup }
func (r *SyncGroupRequest) IsFlexible() bool { return r.version >= 4 }

func (r *SyncGroupRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.GroupID, flex)
	w.Int32(r.GenerationID)
	writeString(w, r.MemberID, flex)
	if r.version >= 3 {
		if flex {
			w.CompactString(r.GroupInstanceID)
		} else {
			w.String(r.GroupInstanceID)
		}
	}
	if r.version >= 5 {
		writeNullableString(w, r.ProtocolType, flex)
		writeNullableString(w, r.ProtocolName, flex)
	}
	if flex {
		w.CompactArrayLen(len(r.Assignments), false)
	} else {
		w.ArrayLen(len(r.Assignments), false)
	}
	for _, a := range r.Assignments {
		writeString(w, a.MemberID, flex)
		if flex {
			w.CompactBytes(a.Assignment)
		} else {
			w.NullableBytes(a.Assignment)
		}
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *SyncGroupRequest) ResponseKind() Response {
	return &SyncGroupResponse{base: base{version: r.version}}
}

type SyncGroupResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	ProtocolType   *string
	ProtocolName   *string
	Assignment     []byte
}

func (r *SyncGroupResponse) Key() int16       { return KeySyncGroup }
func (r *SyncGroupResponse) IsFlexible() bool  { return r.version >= 4 }
func (r *SyncGroupResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *SyncGroupResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	r.ErrorCode = b.Int16()
	if r.version >= 5 {
		r.ProtocolType = readNullableString(b, flex)
		r.ProtocolName = readNullableString(b, flex)
	}
	if flex {
		r.Assignment = b.CompactBytes()
	} else {
		r.Assignment = b.Bytes()
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- Heartbeat ---

type HeartbeatRequest struct {
	base
	GroupID         string
	GenerationID    int32
	MemberID        string
	GroupInstanceID *string
}

func (r *HeartbeatRequest) Key() int16       { return KeyHeartbeat }
func (r *HeartbeatRequest) IsFlexible() bool { return r.version >= 4 }

func (r *HeartbeatRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.GroupID, flex)
	w.Int32(r.GenerationID)
	writeString(w, r.MemberID, flex)
	if r.version >= 3 {
		writeNullableString(w, r.GroupInstanceID, flex)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *HeartbeatRequest) ResponseKind() Response {
	return &HeartbeatResponse{base: base{version: r.version}}
}

type HeartbeatResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
}

func (r *HeartbeatResponse) Key() int16       { return KeyHeartbeat }
func (r *HeartbeatResponse) IsFlexible() bool  { return r.version >= 4 }
func (r *HeartbeatResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *HeartbeatResponse) ReadFrom(b *kwire.Reader) error {
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	r.ErrorCode = b.Int16()
	if r.IsFlexible() {
		b.SkipTags()
	}
	return b.Err()
}

// --- LeaveGroup ---

type LeaveGroupMember struct {
	MemberID        string
	GroupInstanceID *string
}

type LeaveGroupRequest struct {
	base
	GroupID  string
	MemberID string // version <= 2 only
	Members  []LeaveGroupMember
}

func (r *LeaveGroupRequest) Key() int16       { return KeyLeaveGroup }
func (r *LeaveGroupRequest) IsFlexible() bool { return r.version >= 4 }

func (r *LeaveGroupRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.GroupID, flex)
	if r.version <= 2 {
		writeString(w, r.MemberID, flex)
	} else {
		if flex {
			w.CompactArrayLen(len(r.Members), false)
		} else {
			w.ArrayLen(len(r.Members), false)
		}
		for _, m := range r.Members {
			writeString(w, m.MemberID, flex)
			writeNullableString(w, m.GroupInstanceID, flex)
			if flex {
				w.EmptyTags()
			}
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *LeaveGroupRequest) ResponseKind() Response {
	return &LeaveGroupResponse{base: base{version: r.version}}
}

type LeaveGroupResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
}

func (r *LeaveGroupResponse) Key() int16       { return KeyLeaveGroup }
func (r *LeaveGroupResponse) IsFlexible() bool  { return r.version >= 4 }
func (r *LeaveGroupResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *LeaveGroupResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	r.ErrorCode = b.Int16()
	if r.version >= 3 {
		n := arrLen(b, flex)
		for i := 0; i < n; i++ {
			readString(b, flex)
			readNullableString(b, flex)
			b.Int16() // member error code
			if flex {
				b.SkipTags()
			}
		}
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

func writeNullableString(w *kwire.Writer, s *string, flex bool) {
	if flex {
		w.CompactString(s)
	} else {
		w.String(s)
	}
}
