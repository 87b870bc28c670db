package community

import (
	"testing"

	"github.com/agenthands/notalone/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []model.Node {
	out := make([]model.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Node{"id": id})
	}
	return out
}

func links(pairs ...[2]string) []model.Link {
	out := make([]model.Link, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, model.Link{"source": p[0], "target": p[1]})
	}
	return out
}

func TestComponentDetector(t *testing.T) {
	ns := nodes("a", "b", "c", "d")
	ls := links([2]string{"a", "b"}, [2]string{"b", "c"})

	groups, err := NewComponentDetector().Detect(ns, ls)
	require.NoError(t, err)

	// d is isolated and dropped.
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, groups[0])
}

func TestComponentDetector_IgnoresSelf(t *testing.T) {
	ns := nodes(SelfID, "a", "b", "c", "d")
	ls := links(
		[2]string{SelfID, "a"}, [2]string{SelfID, "b"}, [2]string{SelfID, "c"}, [2]string{SelfID, "d"},
		[2]string{"a", "b"}, [2]string{"c", "d"},
	)

	groups, err := NewComponentDetector().Detect(ns, ls)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestComponentDetector_IgnoresDanglingLinks(t *testing.T) {
	groups, err := NewComponentDetector().Detect(nodes("a"), links([2]string{"a", "ghost"}))
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCircles(t *testing.T) {
	g := model.NewGraph()
	g.Nodes = nodes(SelfID, "mum", "dad", "sis", "joe", "kim")
	g.Links = links(
		[2]string{"mum", "dad"}, [2]string{"dad", "sis"}, [2]string{"sis", "mum"},
		[2]string{"joe", "kim"},
	)

	circles, err := Circles(g, NewComponentDetector())
	require.NoError(t, err)
	require.Len(t, circles, 2)

	assert.Equal(t, model.Circle{ID: 1, Members: []string{"dad", "mum", "sis"}, Size: 3}, circles[0])
	assert.Equal(t, model.Circle{ID: 2, Members: []string{"joe", "kim"}, Size: 2}, circles[1])
}

func TestCircles_EmptyGraph(t *testing.T) {
	circles, err := Circles(model.NewGraph(), NewLabelPropagationDetector())
	require.NoError(t, err)
	assert.NotNil(t, circles)
	assert.Empty(t, circles)

	circles, err = Circles(nil, NewLabelPropagationDetector())
	require.NoError(t, err)
	assert.Empty(t, circles)
}

type stubDetector struct {
	groups [][]string
	calls  int
}

func (d *stubDetector) Detect(nodes []model.Node, links []model.Link) ([][]string, error) {
	d.calls++
	return d.groups, nil
}

func TestFallbackDetector_UsesFallbackWhenPrimaryFindsNothing(t *testing.T) {
	primary := &stubDetector{}
	d := &FallbackDetector{Primary: primary, Fallback: NewComponentDetector()}

	groups, err := d.Detect(nodes("a", "b", "c"), links([2]string{"a", "b"}))
	require.NoError(t, err)

	assert.Equal(t, 1, primary.calls)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, groups[0])
}

func TestFallbackDetector_KeepsPrimaryGroups(t *testing.T) {
	primary := &stubDetector{groups: [][]string{{"x", "y"}}}
	fallback := &stubDetector{groups: [][]string{{"a", "b"}}}
	d := &FallbackDetector{Primary: primary, Fallback: fallback}

	groups, err := d.Detect(nodes("a", "b"), links([2]string{"a", "b"}))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"x", "y"}}, groups)
	assert.Equal(t, 0, fallback.calls)
}

func TestNew(t *testing.T) {
	d, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &FallbackDetector{}, d)

	d, err = New(AlgorithmLabelPropagation)
	require.NoError(t, err)
	assert.IsType(t, &FallbackDetector{}, d)

	d, err = New("Components")
	require.NoError(t, err)
	assert.IsType(t, &ComponentDetector{}, d)

	_, err = New("louvain")
	assert.ErrorContains(t, err, "unsupported circle algorithm")
}
