package model

import "time"

// GraphVersion is written into every merged graph. It is a constant, not a
// schema version counter.
const GraphVersion = "1.0"

type GraphMetadata struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Version     string    `json:"version"`
}

// Graph is the relationship graph of one user.
type Graph struct {
	Nodes    []Node        `json:"nodes"`
	Links    []Link        `json:"links"`
	Metadata GraphMetadata `json:"metadata"`
}

func NewGraph() *Graph {
	return &Graph{
		Nodes: []Node{},
		Links: []Link{},
	}
}

// FindNode returns the index of the node with the given id, or -1.
func (g *Graph) FindNode(id string) int {
	for i, n := range g.Nodes {
		if n.ID() == id {
			return i
		}
	}
	return -1
}

// FindLink returns the index of the link with the given ordered pair, or -1.
func (g *Graph) FindLink(key LinkKey) int {
	for i, l := range g.Links {
		if l.Key() == key {
			return i
		}
	}
	return -1
}
