package core

import (
	"math"
	"strconv"

	"github.com/bytedance/sonic"

	"tasting_bot/pkg"
)

// Draft accumulates field values for one session.
// Values are string, int, float64, []string, []pkg.Infusion or nil. Drafts that went through a
// JSON store come back with float64 numbers and []any lists, so reads go through the accessors.
type Draft map[string]any

// Merge copies partial into d, overwriting existing keys
func (d Draft) Merge(partial Draft) {
	for k, v := range partial {
		d[k] = cloneValue(v)
	}
}

// Clone returns a deep copy
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []pkg.Infusion:
		out := make([]pkg.Infusion, len(t))
		for i, inf := range t {
			out[i] = cloneInfusion(inf)
		}
		return out
	default:
		return v
	}
}

func cloneInfusion(in pkg.Infusion) pkg.Infusion {
	out := pkg.Infusion{N: in.N}
	if in.Seconds != nil {
		s := *in.Seconds
		out.Seconds = &s
	}
	out.LiquorColor = cloneStr(in.LiquorColor)
	out.Taste = cloneStr(in.Taste)
	out.SpecialNotes = cloneStr(in.SpecialNotes)
	out.Body = cloneStr(in.Body)
	out.Aftertaste = cloneStr(in.Aftertaste)
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Has reports whether key is present, even when its value is nil
func (d Draft) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the string at key, or "" and false when absent, nil or not a string
func (d Draft) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// StringPtr returns nil for absent or null values
func (d Draft) StringPtr(key string) *string {
	s, ok := d.String(key)
	if !ok {
		return nil
	}
	return &s
}

// Int reads integers stored natively or decoded from JSON
func (d Draft) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// Int64 reads identifiers
func (d Draft) Int64(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (d Draft) IntPtr(key string) *int {
	n, ok := d.Int(key)
	if !ok {
		return nil
	}
	return &n
}

func (d Draft) FloatPtr(key string) *float64 {
	switch v := d[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// Bool is false unless the key holds true
func (d Draft) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Strings returns a copy of a string list
func (d Draft) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Infusions returns the flushed infusion records in creation order
func (d Draft) Infusions() []pkg.Infusion {
	switch v := d[KeyInfusions].(type) {
	case []pkg.Infusion:
		return cloneValue(v).([]pkg.Infusion)
	case []any:
		// JSON-decoded form; re-encode through the struct tags.
		raw, err := sonic.Marshal(v)
		if err != nil {
			return nil
		}
		var out []pkg.Infusion
		if err := sonic.Unmarshal(raw, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
