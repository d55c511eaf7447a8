package depgraph

// --- Models ---

// Node is one issue placed in the dependency graph. Function is the
// enclosing function at the issue's location, or empty when no source was
// available to resolve it.
type Node struct {
	Key      string `json:"key"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function,omitempty"`
}

// Edge is a directed relation: the issue at From must not begin resolution
// until the batch holding To has completed. Edges always point from the
// lower issue key to the higher one, which makes the graph acyclic by
// construction.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// Graph is the dependency DAG over issue keys produced by the Analyzer.
// Nodes and Edges are sorted by key so the same issue set always yields a
// byte-identical graph.
type Graph struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Warnings []string `json:"warnings,omitempty"`
}

// Node returns the node for key, or false if absent.
func (g *Graph) Node(key string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return Node{}, false
}

// EdgesFrom returns every edge whose dependent side is key.
func (g *Graph) EdgesFrom(key string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == key {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge whose dependency side is key.
func (g *Graph) EdgesTo(key string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == key {
			out = append(out, e)
		}
	}
	return out
}

// Related reports whether the two keys share an edge in either position,
// and the weight of that edge.
func (g *Graph) Related(a, b string) (int, bool) {
	for _, e := range g.Edges {
		if (e.From == a && e.To == b) || (e.From == b && e.To == a) {
			return e.Weight, true
		}
	}
	return 0, false
}

// Stats summarizes a stored dependency graph.
type Stats struct {
	IssueCount int `json:"issueCount"`
	EdgeCount  int `json:"edgeCount"`
}
