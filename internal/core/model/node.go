package model

import (
	"encoding/json"
	"strconv"
)

// Node is a person (or other entity) in a relationship graph. It is kept as a
// free-form document: the completion service decides which fields exist, and
// the merger needs to know which fields were actually sent.
//
// Well-known keys: id, name, val, gender, age, summary, details.
type Node map[string]any

func (n Node) ID() string {
	return AsString(n["id"])
}

// HasID reports whether the node carries a non-empty string id. Numeric ids
// are rejected so that 1 and "1" cannot name the same person.
func (n Node) HasID() bool {
	id, ok := n["id"].(string)
	return ok && id != ""
}

func (n Node) Name() string {
	return AsString(n["name"])
}

// Details returns the nested details object, or nil when absent or malformed.
func (n Node) Details() map[string]any {
	return asObject(n["details"])
}

// Clone copies the node and its details object. Deeper values are shared.
func (n Node) Clone() Node {
	return Node(cloneDocument(n))
}

// AsString renders an identifier-like JSON value as a string.
func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func asObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case Node:
		return t
	case Link:
		return t
	default:
		return nil
	}
}

func cloneDocument(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	if details := asObject(src["details"]); details != nil {
		copied := make(map[string]any, len(details))
		for k, v := range details {
			copied[k] = v
		}
		dst["details"] = copied
	}
	return dst
}
