package merge

import (
	"testing"
	"time"

	"github.com/agenthands/notalone/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestMerger() *Merger {
	return &Merger{Now: func() time.Time { return fixed }}
}

func graphOf(nodes []model.Node, links []model.Link) *model.Graph {
	g := model.NewGraph()
	g.Nodes = append(g.Nodes, nodes...)
	g.Links = append(g.Links, links...)
	return g
}

// strip removes the timestamps so graphs merged at different times compare
// structurally.
func strip(g *model.Graph) *model.Graph {
	out := model.NewGraph()
	for _, n := range g.Nodes {
		c := n.Clone()
		delete(c.Details(), "lastUpdated")
		out.Nodes = append(out.Nodes, c)
	}
	for _, l := range g.Links {
		c := l.Clone()
		delete(c.Details(), "lastUpdated")
		out.Links = append(out.Links, c)
	}
	return out
}

func TestMerge_AppendsNewNode(t *testing.T) {
	m := newTestMerger()
	current := graphOf([]model.Node{{"id": "user", "name": "Me"}}, nil)
	incoming := graphOf([]model.Node{{"id": "anna", "name": "Anna", "val": 1.0}}, nil)

	out := m.Merge(current, incoming)

	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "anna", out.Nodes[1].ID())
	assert.Equal(t, fixed.Format(time.RFC3339Nano), out.Nodes[1].Details()["lastUpdated"])
	assert.Equal(t, model.GraphVersion, out.Metadata.Version)
	assert.Equal(t, fixed, out.Metadata.LastUpdated)
}

func TestMerge_OverwritesExistingNode(t *testing.T) {
	m := newTestMerger()
	current := graphOf([]model.Node{
		{"id": "anna", "name": "Anna", "age": 30.0, "details": map[string]any{"occupation": "nurse", "personality": "kind"}},
	}, nil)
	incoming := graphOf([]model.Node{
		{"id": "anna", "age": 31.0, "details": map[string]any{"occupation": "doctor"}},
	}, nil)

	out := m.Merge(current, incoming)

	require.Len(t, out.Nodes, 1)
	n := out.Nodes[0]
	assert.Equal(t, "Anna", n.Name())
	assert.Equal(t, 31.0, n["age"])
	assert.Equal(t, "doctor", n.Details()["occupation"])
	assert.Equal(t, "kind", n.Details()["personality"])
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	m := newTestMerger()
	existing := model.Node{"id": "anna", "details": map[string]any{"occupation": "nurse"}}
	current := graphOf([]model.Node{existing}, nil)
	incoming := graphOf([]model.Node{{"id": "anna", "details": map[string]any{"occupation": "doctor"}}}, nil)

	_ = m.Merge(current, incoming)

	assert.Equal(t, "nurse", current.Nodes[0].Details()["occupation"])
	assert.NotContains(t, current.Nodes[0].Details(), "lastUpdated")
	assert.NotContains(t, incoming.Nodes[0].Details(), "lastUpdated")
}

func TestMerge_DirectedLinksCoexist(t *testing.T) {
	m := newTestMerger()
	current := graphOf(nil, []model.Link{{"source": "a", "target": "b", "label": "likes"}})
	incoming := graphOf(nil, []model.Link{{"source": "b", "target": "a", "label": "avoids"}})

	out := m.Merge(current, incoming)

	require.Len(t, out.Links, 2)
	assert.Equal(t, "likes", out.Links[0]["label"])
	assert.Equal(t, "avoids", out.Links[1]["label"])
}

func TestMerge_UpdatesExistingLink(t *testing.T) {
	m := newTestMerger()
	current := graphOf(nil, []model.Link{{"source": "a", "target": "b", "value": 1.0,
		"details": map[string]any{"sentiment": "neutral", "status": "active"}}})
	incoming := graphOf(nil, []model.Link{{"source": "a", "target": "b", "value": 3.0,
		"details": map[string]any{"sentiment": "positive"}}})

	out := m.Merge(current, incoming)

	require.Len(t, out.Links, 1)
	assert.Equal(t, 3.0, out.Links[0]["value"])
	assert.Equal(t, "positive", out.Links[0].Details()["sentiment"])
	assert.Equal(t, "active", out.Links[0].Details()["status"])
}

func TestMerge_StructurallyIdempotent(t *testing.T) {
	clock := fixed
	m := &Merger{Now: func() time.Time { return clock }}

	current := graphOf([]model.Node{{"id": "user"}}, nil)
	incoming := graphOf(
		[]model.Node{{"id": "anna", "name": "Anna", "details": map[string]any{"interests": []any{"chess"}}}},
		[]model.Link{{"source": "user", "target": "anna", "label": "sister"}},
	)

	once := m.Merge(current, incoming)
	clock = clock.Add(time.Hour)
	twice := m.Merge(once, incoming)

	assert.Equal(t, strip(once), strip(twice))
	assert.NotEqual(t, once.Metadata.LastUpdated, twice.Metadata.LastUpdated)
}

func TestMerge_NilGraphs(t *testing.T) {
	m := newTestMerger()

	out := m.Merge(nil, nil)
	assert.NotNil(t, out.Nodes)
	assert.NotNil(t, out.Links)
	assert.Empty(t, out.Nodes)
	assert.Equal(t, model.GraphVersion, out.Metadata.Version)

	out = m.Merge(nil, graphOf([]model.Node{{"id": "a"}}, nil))
	assert.Len(t, out.Nodes, 1)
}
