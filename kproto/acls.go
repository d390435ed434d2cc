package kproto

import "github.com/knactor/kafka/kwire"

// AclResourcePatternType and the other ACL enums are passed through as
// raw bytes/int8s rather than named Go enums: this client never
// interprets them beyond round-tripping to the broker, matching the
// thin-wrapper scope of the admin façade built on top of kproto.

type AclCreation struct {
	ResourceType        int8
	ResourceName        string
	ResourcePatternType  int8
	Principal            string
	Host                  string
	Operation             int8
	PermissionType        int8
}

type CreateAclsRequest struct {
	base
	Creations []AclCreation
}

func (r *CreateAclsRequest) Key() int16       { return KeyCreateAcls }
func (r *CreateAclsRequest) IsFlexible() bool { return r.version >= 2 }

func (r *CreateAclsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Creations), false)
	} else {
		w.ArrayLen(len(r.Creations), false)
	}
	for _, c := range r.Creations {
		w.Int8(c.ResourceType)
		writeString(w, c.ResourceName, flex)
		if r.version >= 1 {
			w.Int8(c.ResourcePatternType)
		}
		writeString(w, c.Principal, flex)
		writeString(w, c.Host, flex)
		w.Int8(c.Operation)
		w.Int8(c.PermissionType)
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *CreateAclsRequest) ResponseKind() Response {
	return &CreateAclsResponse{base: base{version: r.version}}
}

type AclCreationResult struct {
	ErrorCode    int16
	ErrorMessage *string
}

type CreateAclsResponse struct {
	base
	ThrottleMillis int32
	Results        []AclCreationResult
}

func (r *CreateAclsResponse) Key() int16       { return KeyCreateAcls }
func (r *CreateAclsResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *CreateAclsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *CreateAclsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	n := arrLen(b, flex)
	r.Results = make([]AclCreationResult, 0, n)
	for i := 0; i < n; i++ {
		res := AclCreationResult{ErrorCode: b.Int16(), ErrorMessage: readNullableString(b, flex)}
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

// --- DescribeAcls ---

type DescribeAclsRequest struct {
	base
	ResourceTypeFilter        int8
	ResourceNameFilter        *string
	ResourcePatternTypeFilter int8
	PrincipalFilter           *string
	HostFilter                *string
	Operation                 int8
	PermissionType            int8
}

func (r *DescribeAclsRequest) Key() int16       { return KeyDescribeAcls }
func (r *DescribeAclsRequest) IsFlexible() bool { return r.version >= 2 }

func (r *DescribeAclsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	w.Int8(r.ResourceTypeFilter)
	writeNullableString(w, r.ResourceNameFilter, flex)
	if r.version >= 1 {
		w.Int8(r.ResourcePatternTypeFilter)
	}
	writeNullableString(w, r.PrincipalFilter, flex)
	writeNullableString(w, r.HostFilter, flex)
	w.Int8(r.Operation)
	w.Int8(r.PermissionType)
	if flex {
		w.EmptyTags()
	}
}

func (r *DescribeAclsRequest) ResponseKind() Response {
	return &DescribeAclsResponse{base: base{version: r.version}}
}

type AclDescription struct {
	Principal      string
	Host           string
	Operation      int8
	PermissionType int8
}

type DescribeAclsResource struct {
	ResourceType       int8
	ResourceName       string
	ResourcePatternType int8
	Acls               []AclDescription
}

type DescribeAclsResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	ErrorMessage   *string
	Resources      []DescribeAclsResource
}

func (r *DescribeAclsResponse) Key() int16       { return KeyDescribeAcls }
func (r *DescribeAclsResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *DescribeAclsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DescribeAclsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	r.ErrorCode = b.Int16()
	r.ErrorMessage = readNullableString(b, flex)
	n := arrLen(b, flex)
	r.Resources = make([]DescribeAclsResource, 0, n)
	for i := 0; i < n; i++ {
		res := DescribeAclsResource{
			ResourceType: b.Int8(),
			ResourceName: readString(b, flex),
		}
		if r.version >= 1 {
			res.ResourcePatternType = b.Int8()
		}
		na := arrLen(b, flex)
		res.Acls = make([]AclDescription, 0, na)
		for j := 0; j < na; j++ {
			a := AclDescription{
				Principal:      readString(b, flex),
				Host:           readString(b, flex),
				Operation:      b.Int8(),
				PermissionType: b.Int8(),
			}
			if flex {
				b.SkipTags()
			}
			res.Acls = append(res.Acls, a)
		}
		if flex {
			b.SkipTags()
		}
		r.Resources = append(r.Resources, res)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- DeleteAcls ---

type DeleteAclsFilter struct {
	ResourceTypeFilter        int8
	ResourceNameFilter        *string
	ResourcePatternTypeFilter int8
	PrincipalFilter           *string
	HostFilter                *string
	Operation                 int8
	PermissionType            int8
}

type DeleteAclsRequest struct {
	base
	Filters []DeleteAclsFilter
}

func (r *DeleteAclsRequest) Key() int16       { return KeyDeleteAcls }
func (r *DeleteAclsRequest) IsFlexible() bool { return r.version >= 2 }

func (r *DeleteAclsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Filters), false)
	} else {
		w.ArrayLen(len(r.Filters), false)
	}
	for _, f := range r.Filters {
		w.Int8(f.ResourceTypeFilter)
		writeNullableString(w, f.ResourceNameFilter, flex)
		if r.version >= 1 {
			w.Int8(f.ResourcePatternTypeFilter)
		}
		writeNullableString(w, f.PrincipalFilter, flex)
		writeNullableString(w, f.HostFilter, flex)
		w.Int8(f.Operation)
		w.Int8(f.PermissionType)
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *DeleteAclsRequest) ResponseKind() Response {
	return &DeleteAclsResponse{base: base{version: r.version}}
}

type DeleteAclsMatchingAcl struct {
	ErrorCode           int16
	ErrorMessage        *string
	ResourceType        int8
	ResourceName        string
	ResourcePatternType int8
	Principal           string
	Host                string
	Operation           int8
	PermissionType      int8
}

type DeleteAclsFilterResult struct {
	ErrorCode    int16
	ErrorMessage *string
	MatchingAcls []DeleteAclsMatchingAcl
}

type DeleteAclsResponse struct {
	base
	ThrottleMillis int32
	FilterResults  []DeleteAclsFilterResult
}

func (r *DeleteAclsResponse) Key() int16       { return KeyDeleteAcls }
func (r *DeleteAclsResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *DeleteAclsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DeleteAclsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	n := arrLen(b, flex)
	r.FilterResults = make([]DeleteAclsFilterResult, 0, n)
	for i := 0; i < n; i++ {
		fr := DeleteAclsFilterResult{ErrorCode: b.Int16(), ErrorMessage: readNullableString(b, flex)}
		na := arrLen(b, flex)
		fr.MatchingAcls = make([]DeleteAclsMatchingAcl, 0, na)
		for j := 0; j < na; j++ {
			a := DeleteAclsMatchingAcl{
				ErrorCode:    b.Int16(),
				ErrorMessage: readNullableString(b, flex),
				ResourceType: b.Int8(),
				ResourceName: readString(b, flex),
			}
			if r.version >= 1 {
				a.ResourcePatternType = b.Int8()
			}
			a.Principal = readString(b, flex)
			a.Host = readString(b, flex)
			a.Operation = b.Int8()
			a.PermissionType = b.Int8()
			if flex {
				b.SkipTags()
			}
			fr.MatchingAcls = append(fr.MatchingAcls, a)
		}
		if flex {
			b.SkipTags()
		}
		r.FilterResults = append(r.FilterResults, fr)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}
