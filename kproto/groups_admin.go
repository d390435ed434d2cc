package kproto

import "github.com/knactor/kafka/kwire"

// --- ListGroups ---

type ListGroupsRequest struct {
	base
	StatesFilter []string
}

func (r *ListGroupsRequest) Key() int16       { return KeyListGroups }
func (r *ListGroupsRequest) IsFlexible() bool { return r.version >= 3 }

func (r *ListGroupsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if r.version >= 4 {
		if flex {
			w.CompactArrayLen(len(r.StatesFilter), false)
		} else {
			w.ArrayLen(len(r.StatesFilter), false)
		}
		for _, s := range r.StatesFilter {
			writeString(w, s, flex)
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *ListGroupsRequest) ResponseKind() Response {
	return &ListGroupsResponse{base: base{version: r.version}}
}

type ListedGroup struct {
	GroupID      string
	ProtocolType string
	GroupState   string
}

type ListGroupsResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	Groups         []ListedGroup
}

func (r *ListGroupsResponse) Key() int16       { return KeyListGroups }
func (r *ListGroupsResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *ListGroupsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *ListGroupsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	r.ErrorCode = b.Int16()
	n := arrLen(b, flex)
	r.Groups = make([]ListedGroup, 0, n)
	for i := 0; i < n; i++ {
		g := ListedGroup{GroupID: readString(b, flex), ProtocolType: readString(b, flex)}
		if r.version >= 4 {
			g.GroupState = readString(b, flex)
		}
		if flex {
			b.SkipTags()
		}
		r.Groups = append(r.Groups, g)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- DescribeGroups ---

type DescribeGroupsRequest struct {
	base
	Groups                    []string
	IncludeAuthorizedOperations bool
}

func (r *DescribeGroupsRequest) Key() int16       { return KeyDescribeGroups }
func (r *DescribeGroupsRequest) IsFlexible() bool { return r.version >= 5 }

func (r *DescribeGroupsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Groups), false)
	} else {
		w.ArrayLen(len(r.Groups), false)
	}
	for _, g := range r.Groups {
		writeString(w, g, flex)
	}
	if r.version >= 3 {
		w.Bool(r.IncludeAuthorizedOperations)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *DescribeGroupsRequest) ResponseKind() Response {
	return &DescribeGroupsResponse{base: base{version: r.version}}
}

type DescribedGroupMember struct {
	MemberID        string
	GroupInstanceID *string
	ClientID        string
	ClientHost      string
	Metadata        []byte
	Assignment      []byte
}

type DescribedGroup struct {
	ErrorCode    int16
	GroupID      string
	GroupState   string
	ProtocolType string
	ProtocolData string
	Members      []DescribedGroupMember
}

type DescribeGroupsResponse struct {
	base
	ThrottleMillis int32
	Groups         []DescribedGroup
}

func (r *DescribeGroupsResponse) Key() int16       { return KeyDescribeGroups }
func (r *DescribeGroupsResponse) IsFlexible() bool  { return r.version >= 5 }
func (r *DescribeGroupsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DescribeGroupsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	n := arrLen(b, flex)
	r.Groups = make([]DescribedGroup, 0, n)
	for i := 0; i < n; i++ {
		g := DescribedGroup{
			ErrorCode:    b.Int16(),
			GroupID:      readString(b, flex),
			GroupState:   readString(b, flex),
			ProtocolType: readString(b, flex),
			ProtocolData: readString(b, flex),
		}
		nm := arrLen(b, flex)
		g.Members = make([]DescribedGroupMember, 0, nm)
		for j := 0; j < nm; j++ {
			m := DescribedGroupMember{MemberID: readString(b, flex)}
			if r.version >= 4 {
				m.GroupInstanceID = readNullableString(b, flex)
			}
			m.ClientID = readString(b, flex)
			m.ClientHost = readString(b, flex)
			if flex {
				m.Metadata = b.CompactBytes()
				m.Assignment = b.CompactBytes()
			} else {
				m.Metadata = b.Bytes()
				m.Assignment = b.Bytes()
			}
			if flex {
				b.SkipTags()
			}
			g.Members = append(g.Members, m)
		}
		if r.version >= 3 {
			b.Int32() // authorized operations
		}
		if flex {
			b.SkipTags()
		}
		r.Groups = append(r.Groups, g)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- DeleteGroups ---

type DeleteGroupsRequest struct {
	base
	Groups []string
}

func (r *DeleteGroupsRequest) Key() int16       { return KeyDeleteGroups }
func (r *DeleteGroupsRequest) IsFlexible() bool { return r.version >= 2 }

func (r *DeleteGroupsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Groups), false)
	} else {
		w.ArrayLen(len(r.Groups), false)
	}
	for _, g := range r.Groups {
		writeString(w, g, flex)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *DeleteGroupsRequest) ResponseKind() Response {
	return &DeleteGroupsResponse{base: base{version: r.version}}
}

type DeletableGroupResult struct {
	GroupID   string
	ErrorCode int16
}

type DeleteGroupsResponse struct {
	base
	ThrottleMillis int32
	Results        []DeletableGroupResult
}

func (r *DeleteGroupsResponse) Key() int16       { return KeyDeleteGroups }
func (r *DeleteGroupsResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *DeleteGroupsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DeleteGroupsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	n := arrLen(b, flex)
	r.Results = make([]DeletableGroupResult, 0, n)
	for i := 0; i < n; i++ {
		res := DeletableGroupResult{GroupID: readString(b, flex), ErrorCode: b.Int16()}
		if flex {
			b.SkipTags()
		}
		r.Results = append(r.Results, res)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- OffsetDelete ---

type OffsetDeletePartition struct {
	Index int32
}

type OffsetDeleteTopic struct {
	Name       string
	Partitions []OffsetDeletePartition
}

type OffsetDeleteRequest struct {
	base
	GroupID string
	Topics  []OffsetDeleteTopic
}

func (r *OffsetDeleteRequest) Key() int16       { return KeyOffsetDelete }
func (r *OffsetDeleteRequest) IsFlexible() bool { return false }

func (r *OffsetDeleteRequest) AppendTo(w *kwire.Writer) {
	w.String(&r.GroupID)
	w.ArrayLen(len(r.Topics), false)
	for _, t := range r.Topics {
		w.String(&t.Name)
		w.ArrayLen(len(t.Partitions), false)
		for _, p := range t.Partitions {
			w.Int32(p.Index)
		}
	}
}

func (r *OffsetDeleteRequest) ResponseKind() Response {
	return &OffsetDeleteResponse{base: base{version: r.version}}
}

type OffsetDeleteResponse struct {
	base
	ErrorCode      int16
	ThrottleMillis int32
	Topics         []OffsetCommitTopicResponse
}

func (r *OffsetDeleteResponse) Key() int16       { return KeyOffsetDelete }
func (r *OffsetDeleteResponse) IsFlexible() bool  { return false }
func (r *OffsetDeleteResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *OffsetDeleteResponse) ReadFrom(b *kwire.Reader) error {
	r.ErrorCode = b.Int16()
	r.ThrottleMillis = b.Int32()
	n, _ := b.ArrayLen()
	r.Topics = make([]OffsetCommitTopicResponse, 0, n)
	for i := 0; i < n; i++ {
		t := OffsetCommitTopicResponse{Name: readString(b, false)}
		np, _ := b.ArrayLen()
		t.Partitions = make([]OffsetCommitPartitionResponse, 0, np)
		for j := 0; j < np; j++ {
			t.Partitions = append(t.Partitions, OffsetCommitPartitionResponse{
				Index: b.Int32(), ErrorCode: b.Int16(),
			})
		}
		r.Topics = append(r.Topics, t)
	}
	return b.Err()
}
