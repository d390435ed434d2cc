package kproto

import "github.com/knactor/kafka/kwire"

// ConfigResourceType identifies what kind of entity a config resource
// name refers to.
type ConfigResourceType int8

const (
	ConfigResourceTopic  ConfigResourceType = 2
	ConfigResourceBroker ConfigResourceType = 4
)

type DescribeConfigsResource struct {
	Type        ConfigResourceType
	Name        string
	ConfigNames []string // nil means "all configs"
}

type DescribeConfigsRequest struct {
	base
	Resources         []DescribeConfigsResource
	IncludeSynonyms   bool
	IncludeDocumentation bool
}

func (r *DescribeConfigsRequest) Key() int16       { return KeyDescribeConfigs }
func (r *DescribeConfigsRequest) IsFlexible() bool { return r.version >= 4 }

func (r *DescribeConfigsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Resources), false)
	} else {
		w.ArrayLen(len(r.Resources), false)
	}
	for _, res := range r.Resources {
		w.Int8(int8(res.Type))
		writeString(w, res.Name, flex)
		if flex {
			w.CompactArrayLen(len(res.ConfigNames), res.ConfigNames == nil)
		} else {
			w.ArrayLen(len(res.ConfigNames), res.ConfigNames == nil)
		}
		for _, c := range res.ConfigNames {
			writeString(w, c, flex)
		}
		if flex {
			w.EmptyTags()
		}
	}
	if r.version >= 1 {
		w.Bool(r.IncludeSynonyms)
	}
	if r.version >= 3 {
		w.Bool(r.IncludeDocumentation)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *DescribeConfigsRequest) ResponseKind() Response {
	return &DescribeConfigsResponse{base: base{version: r.version}}
}

type DescribeConfigsEntry struct {
	Name      string
	Value     *string
	ReadOnly  bool
	IsDefault bool
	Sensitive bool
}

type DescribeConfigsResult struct {
	ErrorCode    int16
	ErrorMessage *string
	Type         ConfigResourceType
	Name         string
	Configs      []DescribeConfigsEntry
}

type DescribeConfigsResponse struct {
	base
	ThrottleMillis int32
	Results        []DescribeConfigsResult
}

func (r *DescribeConfigsResponse) Key() int16       { return KeyDescribeConfigs }
func (r *DescribeConfigsResponse) IsFlexible() bool  { return r.version >= 4 }
func (r *DescribeConfigsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DescribeConfigsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	n := arrLen(b, flex)
	r.Results = make([]DescribeConfigsResult, 0, n)
	for i := 0; i < n; i++ {
		res := DescribeConfigsResult{
			ErrorCode: b.Int16(),
		}
		res.ErrorMessage = readNullableString(b, flex)
		res.Type = ConfigResourceType(b.Int8())
		res.Name = readString(b, flex)
		nc := arrLen(b, flex)
		res.Configs = make([]DescribeConfigsEntry, 0, nc)
		for j := 0; j < nc; j++ {
			e := DescribeConfigsEntry{Name: readString(b, flex)}
			e.Value = readNullableString(b, flex)
			e.ReadOnly = b.Bool()
			if r.version == 0 {
				e.IsDefault = b.Bool()
			} else {
				b.Int8() // config source
			}
			e.Sensitive = b.Bool()
			if r.version >= 1 {
				ns := arrLen(b, flex) // synonyms
				for k := 0; k < ns; k++ {
					readString(b, flex)
					readNullableString(b, flex)
					b.Int8()
					if flex {
						b.SkipTags()
					}
				}
				if r.version >= 3 {
					b.Int8() // config type
					readNullableString(b, flex) // documentation
				}
			}
			if flex {
				b.SkipTags()
			}
			res.Configs = append(res.Configs, e)
		}
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

// --- AlterConfigs ---

type AlterableConfig struct {
	Name  string
	Value *string
}

type AlterConfigsResource struct {
	Type    ConfigResourceType
	Name    string
	Configs []AlterableConfig
}

type AlterConfigsRequest struct {
	base
	Resources    []AlterConfigsResource
	ValidateOnly bool
}

func (r *AlterConfigsRequest) Key() int16       { return KeyAlterConfigs }
func (r *AlterConfigsRequest) IsFlexible() bool { return false }

func (r *AlterConfigsRequest) AppendTo(w *kwire.Writer) {
	w.ArrayLen(len(r.Resources), false)
	for _, res := range r.Resources {
		w.Int8(int8(res.Type))
		writeString(w, res.Name, false)
		w.ArrayLen(len(res.Configs), false)
		for _, c := range res.Configs {
			writeString(w, c.Name, false)
			writeNullableString(w, c.Value, false)
		}
	}
	w.Bool(r.ValidateOnly)
}

func (r *AlterConfigsRequest) ResponseKind() Response {
	return &AlterConfigsResponse{base: base{version: r.version}}
}

type AlterConfigsResourceResult struct {
	ErrorCode    int16
	ErrorMessage *string
	Type         ConfigResourceType
	Name         string
}

type AlterConfigsResponse struct {
	base
	ThrottleMillis int32
	Responses      []AlterConfigsResourceResult
}

func (r *AlterConfigsResponse) Key() int16       { return KeyAlterConfigs }
func (r *AlterConfigsResponse) IsFlexible() bool  { return false }
func (r *AlterConfigsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *AlterConfigsResponse) ReadFrom(b *kwire.Reader) error {
	r.ThrottleMillis = b.Int32()
	n, _ := b.ArrayLen()
	r.Responses = make([]AlterConfigsResourceResult, 0, n)
	for i := 0; i < n; i++ {
		res := AlterConfigsResourceResult{ErrorCode: b.Int16()}
		res.ErrorMessage = readNullableString(b, false)
		res.Type = ConfigResourceType(b.Int8())
		res.Name = readString(b, false)
		r.Responses = append(r.Responses, res)
	}
	return b.Err()
}
