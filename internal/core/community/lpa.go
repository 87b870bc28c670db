package community

import (
	"sort"

	"github.com/agenthands/notalone/internal/core/model"
)

// LabelPropagationDetector finds circles with label propagation. Multiple
// links between two people count as a stronger tie.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(nodes []model.Node, links []model.Link) ([][]string, error) {
	adj := buildAdjacency(nodes, links)
	if len(adj) == 0 {
		return nil, nil
	}

	ids := sortedIDs(adj)
	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = id
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for _, u := range ids {
			neighbors := adj[u]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[string]int)
			best := 0
			for v, weight := range neighbors {
				counts[labels[v]] += weight
				if counts[labels[v]] > best {
					best = counts[labels[v]]
				}
			}

			var candidates []string
			for label, count := range counts {
				if count == best {
					candidates = append(candidates, label)
				}
			}
			// Largest label wins ties so runs are reproducible.
			sort.Strings(candidates)
			label := candidates[len(candidates)-1]

			if labels[u] != label {
				labels[u] = label
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	clusters := make(map[string][]string)
	for _, id := range ids {
		clusters[labels[id]] = append(clusters[labels[id]], id)
	}

	var groups [][]string
	for _, label := range sortedIDs(clusters) {
		if len(clusters[label]) >= 2 {
			groups = append(groups, clusters[label])
		}
	}
	return groups, nil
}
