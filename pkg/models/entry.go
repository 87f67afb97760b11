package models

import (
	"fmt"
	"sort"
	"strconv"
)

// NoID is the identifier assigned to entries that do not declare one.
const NoID = "(no id)"

// NoPage is the identifier of the synthetic root for entries without a page.
const NoPage = "(no page id)"

// Entry is a declarative description of a unit of content to extract.
// The named fields are the ones the orchestrator understands; anything
// else a source file declares (url, cookies, domSelector, ...) lives in
// Extra and is passed through to presets and extractors untouched.
type Entry struct {
	ID        string
	Type      string
	Extractor string
	Page      string
	Title     string
	Target    any
	Extra     map[string]any
}

var reservedKeys = map[string]bool{
	"id":        true,
	"type":      true,
	"extractor": true,
	"page":      true,
	"title":     true,
	"target":    true,
}

// EntryFromMap builds an entry from a decoded mapping. A declared id wins
// over the fallback, which is normally the mapping key in the entries file.
func EntryFromMap(fallbackID string, m map[string]any) Entry {
	e := Entry{ID: fallbackID, Extra: map[string]any{}}
	for k, v := range m {
		switch k {
		case "id":
			if s := scalarString(v); s != "" {
				e.ID = s
			}
		case "type":
			e.Type = scalarString(v)
		case "extractor":
			e.Extractor = scalarString(v)
		case "page":
			e.Page = scalarString(v)
		case "title":
			e.Title = scalarString(v)
		case "target":
			e.Target = v
		default:
			e.Extra[k] = v
		}
	}
	return e
}

// Fields returns every field of the entry as a single mapping, with empty
// named fields omitted. It is the input of the entry fingerprint.
func (e Entry) Fields() map[string]any {
	out := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		out[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("id", e.ID)
	set("type", e.Type)
	set("extractor", e.Extractor)
	set("page", e.Page)
	set("title", e.Title)
	if e.Target != nil {
		out["target"] = e.Target
	}
	return out
}

// Clone returns a deep copy so presets can derive new entries without
// mutating the one they were handed.
func (e Entry) Clone() Entry {
	c := e
	c.Target = deepCopy(e.Target)
	c.Extra = make(map[string]any, len(e.Extra))
	for k, v := range e.Extra {
		c.Extra[k] = deepCopy(v)
	}
	return c
}

// Get returns an extra field.
func (e Entry) Get(key string) (any, bool) {
	if e.Extra == nil {
		return nil, false
	}
	v, ok := e.Extra[key]
	return v, ok
}

// String returns an extra field rendered as a string, or "" when absent.
func (e Entry) String(key string) string {
	v, ok := e.Get(key)
	if !ok {
		return ""
	}
	return scalarString(v)
}

// Bool returns an extra field as a boolean, falling back to def.
func (e Entry) Bool(key string, def bool) bool {
	v, ok := e.Get(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// Int returns an extra field as an integer, falling back to def.
func (e Entry) Int(key string, def int) int {
	v, ok := e.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// Set stores an extra field.
func (e *Entry) Set(key string, value any) {
	if reservedKeys[key] {
		panic(fmt.Sprintf("models: %q is a named entry field", key))
	}
	if e.Extra == nil {
		e.Extra = map[string]any{}
	}
	e.Extra[key] = value
}

// HasTarget reports whether the entry carries a usable target. Empty
// strings, zero numbers and false count as absent.
func (e Entry) HasTarget() bool {
	switch t := e.Target.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return true
}

// TargetString renders a scalar target as a string.
func (e Entry) TargetString() string {
	return scalarString(e.Target)
}

// DisplayPage returns the page id, or the placeholder used for page-less entries.
func (e Entry) DisplayPage() string {
	if e.Page == "" {
		return NoPage
	}
	return e.Page
}

// ExtraKeys returns the extra field names in sorted order.
func (e Entry) ExtraKeys() []string {
	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = deepCopy(val)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
