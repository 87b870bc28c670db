// Package community groups the people of a relationship graph into circles.
package community

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenthands/notalone/internal/core/model"
)

// SelfID is the node that represents the user. Everyone is connected to it,
// so it is left out of circle detection.
const SelfID = "user"

type Detector interface {
	// Detect returns groups of node ids. Groups have at least two members.
	Detect(nodes []model.Node, links []model.Link) ([][]string, error)
}

// ComponentDetector groups nodes into connected components.
type ComponentDetector struct{}

func NewComponentDetector() *ComponentDetector {
	return &ComponentDetector{}
}

func (d *ComponentDetector) Detect(nodes []model.Node, links []model.Link) ([][]string, error) {
	adj := buildAdjacency(nodes, links)

	visited := make(map[string]bool)
	var groups [][]string
	for _, id := range sortedIDs(adj) {
		if visited[id] {
			continue
		}
		var component []string
		d.dfs(id, adj, visited, &component)
		if len(component) >= 2 {
			groups = append(groups, component)
		}
	}
	return groups, nil
}

func (d *ComponentDetector) dfs(u string, adj map[string]map[string]int, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range sortedIDs(adj[u]) {
		if !visited[v] {
			d.dfs(v, adj, visited, component)
		}
	}
}

const (
	AlgorithmLabelPropagation = "label_propagation"
	AlgorithmComponents       = "components"
)

// New returns the detector for algorithm. Label propagation falls back to
// connected components when it finds no circles.
func New(algorithm string) (Detector, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmLabelPropagation:
		return &FallbackDetector{
			Primary:  NewLabelPropagationDetector(),
			Fallback: NewComponentDetector(),
		}, nil
	case AlgorithmComponents:
		return NewComponentDetector(), nil
	default:
		return nil, fmt.Errorf("unsupported circle algorithm: %q", algorithm)
	}
}

// FallbackDetector runs Fallback when Primary returns no groups.
type FallbackDetector struct {
	Primary  Detector
	Fallback Detector
}

func (d *FallbackDetector) Detect(nodes []model.Node, links []model.Link) ([][]string, error) {
	groups, err := d.Primary.Detect(nodes, links)
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		return groups, nil
	}
	return d.Fallback.Detect(nodes, links)
}

// Circles runs detector over g and numbers the resulting groups, largest
// first.
func Circles(g *model.Graph, detector Detector) ([]model.Circle, error) {
	circles := []model.Circle{}
	if g == nil {
		return circles, nil
	}

	groups, err := detector.Detect(g.Nodes, g.Links)
	if err != nil {
		return nil, err
	}

	for _, members := range groups {
		sort.Strings(members)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0] < groups[j][0]
	})

	for i, members := range groups {
		circles = append(circles, model.Circle{ID: i + 1, Members: members, Size: len(members)})
	}
	return circles, nil
}

// buildAdjacency returns an undirected weighted adjacency map over the nodes
// of the graph, without the self node. Links to unknown nodes are ignored.
func buildAdjacency(nodes []model.Node, links []model.Link) map[string]map[string]int {
	adj := make(map[string]map[string]int)
	for _, n := range nodes {
		if id := n.ID(); id != "" && id != SelfID {
			adj[id] = make(map[string]int)
		}
	}
	for _, l := range links {
		src, dst := l.Source(), l.Target()
		if src == dst {
			continue
		}
		if _, ok := adj[src]; !ok {
			continue
		}
		if _, ok := adj[dst]; !ok {
			continue
		}
		adj[src][dst]++
		adj[dst][src]++
	}
	return adj
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
