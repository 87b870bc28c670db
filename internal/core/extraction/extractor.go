// Package extraction turns free-form completion text into a partial
// relationship graph.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agenthands/notalone/internal/core/common"
	"github.com/agenthands/notalone/internal/core/model"
)

var (
	ErrExtraction   = errors.New("graph extraction failed")
	ErrNoJSON       = fmt.Errorf("%w: could not extract JSON", ErrExtraction)
	ErrInvalidJSON  = fmt.Errorf("%w: invalid JSON", ErrExtraction)
	ErrInvalidGraph = fmt.Errorf("%w: invalid graph", ErrExtraction)
)

// Extract locates the JSON object in text, parses it and validates it as a
// partial graph. The returned graph has no metadata; every node and link
// document keeps all fields the model sent.
func Extract(text string) (*model.Graph, error) {
	raw, err := Locate(text)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Locate prefers a ```json fenced block and falls back to the first
// brace-balanced object.
func Locate(text string) (string, error) {
	if body, ok := common.FencedJSON(text); ok {
		return body, nil
	}
	if obj, ok := common.FirstObject(text); ok {
		return obj, nil
	}
	return "", ErrNoJSON
}

// Parse decodes raw and validates it against the graph shape.
func Parse(raw string) (*model.Graph, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return Validate(doc)
}

// Validate converts a decoded JSON value into a graph.
func Validate(doc any) (*model.Graph, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidGraph)
	}

	rawNodes, hasNodes := obj["nodes"]
	rawLinks, hasLinks := obj["links"]
	if !hasNodes && !hasLinks {
		return nil, fmt.Errorf("%w: neither nodes nor links present", ErrInvalidGraph)
	}

	g := model.NewGraph()

	nodes, err := documents(rawNodes, "nodes")
	if err != nil {
		return nil, err
	}
	for i, d := range nodes {
		n := model.Node(d)
		if !n.HasID() {
			return nil, fmt.Errorf("%w: nodes[%d] has no string id", ErrInvalidGraph, i)
		}
		g.Nodes = append(g.Nodes, n)
	}

	links, err := documents(rawLinks, "links")
	if err != nil {
		return nil, err
	}
	for i, d := range links {
		l := model.Link(d)
		if !l.HasEndpoints() {
			return nil, fmt.Errorf("%w: links[%d] needs string source and target", ErrInvalidGraph, i)
		}
		g.Links = append(g.Links, l)
	}

	return g, nil
}

// documents accepts a missing or null value as an empty list.
func documents(v any, field string) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an array", ErrInvalidGraph, field)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		d, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be an object", ErrInvalidGraph, field, i)
		}
		out = append(out, d)
	}
	return out, nil
}
