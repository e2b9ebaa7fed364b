package model

import "encoding/json"

// MetadataValueKind tags the active member of a MetadataValue.
type MetadataValueKind int

const (
	MetaString MetadataValueKind = iota
	MetaInt64
	MetaDouble
	MetaBool
)

// MetadataValue is a tagged union over {string, int64, double, bool}, the
// small set of primitive types the wire codec and redactor both need to
// handle explicitly.
type MetadataValue struct {
	Kind MetadataValueKind
	Str  string
	I64  int64
	F64  float64
	Bool bool
}

func StringValue(s string) MetadataValue  { return MetadataValue{Kind: MetaString, Str: s} }
func IntValue(i int64) MetadataValue      { return MetadataValue{Kind: MetaInt64, I64: i} }
func DoubleValue(f float64) MetadataValue { return MetadataValue{Kind: MetaDouble, F64: f} }
func BoolValue(b bool) MetadataValue      { return MetadataValue{Kind: MetaBool, Bool: b} }

// AsString renders the value as a string regardless of kind, used by the
// redactor which only ever substitutes string placeholders.
func (v MetadataValue) AsString() string {
	switch v.Kind {
	case MetaString:
		return v.Str
	case MetaInt64:
		return jsonNumber(v.I64)
	case MetaDouble:
		return jsonNumber(v.F64)
	case MetaBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func jsonNumber(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaInt64:
		return json.Marshal(v.I64)
	case MetaDouble:
		return json.Marshal(v.F64)
	case MetaBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(nil)
	}
}

func (v *MetadataValue) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case bool:
		*v = BoolValue(t)
	case float64:
		if t == float64(int64(t)) {
			*v = IntValue(int64(t))
		} else {
			*v = DoubleValue(t)
		}
	default:
		*v = StringValue("")
	}
	return nil
}

// Metadata maps string keys to MetadataValues. Key lookup in Get/Set is
// case-sensitive; the redactor is what applies case-insensitive matching
// on top of this map.
type Metadata map[string]MetadataValue

// Clone returns a shallow copy safe to mutate independently of the
// original (MetadataValue itself has no reference fields).
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
