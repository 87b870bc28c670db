// Package merge folds partial graphs produced by the completion service into
// a user's stored relationship graph.
package merge

import (
	"time"

	"github.com/agenthands/notalone/internal/core/model"
)

// Merger merges partial graphs. Now is the clock used for lastUpdated
// stamps; it defaults to time.Now.
type Merger struct {
	Now func() time.Time
}

func NewMerger() *Merger {
	return &Merger{Now: time.Now}
}

// Merge returns a new graph: current with incoming applied. Neither argument
// is modified. Nodes match on id, links on the ordered (source, target) pair.
// Matching documents are overwritten field by field, and their details
// objects are merged one level deep.
func (m *Merger) Merge(current, incoming *model.Graph) *model.Graph {
	now := m.now()
	stamp := now.UTC().Format(time.RFC3339Nano)

	out := copyGraph(current)
	if incoming != nil {
		for _, n := range incoming.Nodes {
			if i := out.FindNode(n.ID()); i >= 0 {
				out.Nodes[i] = model.Node(mergeDocument(out.Nodes[i], n, stamp))
			} else {
				out.Nodes = append(out.Nodes, model.Node(mergeDocument(nil, n, stamp)))
			}
		}
		for _, l := range incoming.Links {
			if i := out.FindLink(l.Key()); i >= 0 {
				out.Links[i] = model.Link(mergeDocument(out.Links[i], l, stamp))
			} else {
				out.Links = append(out.Links, model.Link(mergeDocument(nil, l, stamp)))
			}
		}
	}

	out.Metadata = model.GraphMetadata{LastUpdated: now, Version: model.GraphVersion}
	return out
}

func (m *Merger) now() time.Time {
	if m == nil || m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func copyGraph(g *model.Graph) *model.Graph {
	out := model.NewGraph()
	if g == nil {
		return out
	}
	out.Nodes = append(out.Nodes, g.Nodes...)
	out.Links = append(out.Links, g.Links...)
	out.Metadata = g.Metadata
	return out
}

// mergeDocument builds a fresh document from existing and incoming. existing
// may be nil.
func mergeDocument(existing, incoming map[string]any, stamp string) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		if k == "details" {
			continue
		}
		out[k] = v
	}

	details := make(map[string]any)
	if d, ok := existing["details"].(map[string]any); ok {
		for k, v := range d {
			details[k] = v
		}
	}
	if d, ok := incoming["details"].(map[string]any); ok {
		for k, v := range d {
			details[k] = v
		}
	}
	details["lastUpdated"] = stamp
	out["details"] = details
	return out
}
