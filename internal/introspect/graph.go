package introspect

import "github.com/roach88/quarry/internal/plan"

// Graph is diagram data for a pipeline: one node per operator/table
// reference and edges following the chain. This package emits structure
// only; rendering belongs to an external collaborator.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode describes one chain node. ID equals the chain index.
type GraphNode struct {
	ID    int    `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// GraphEdge is a directed edge from an upstream node to its consumer.
type GraphEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// BuildGraph emits the graph structure of a pipeline with stable node ids.
func BuildGraph(p plan.Pipeline) Graph {
	nodes := p.Nodes()
	g := Graph{
		Nodes: make([]GraphNode, len(nodes)),
		Edges: make([]GraphEdge, 0, len(nodes)-1),
	}
	for i, n := range nodes {
		g.Nodes[i] = GraphNode{ID: i, Kind: n.Kind(), Label: nodeParams(n)}
		if i > 0 {
			g.Edges = append(g.Edges, GraphEdge{From: i - 1, To: i})
		}
	}
	return g
}
