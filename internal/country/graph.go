package country

import "strings"

// Graph is an immutable, read-only adjacency table built once at startup.
// The engine only ever looks entries up by code; it never mutates the graph.
type Graph struct {
	countries map[string]Country
}

// NewGraph builds a Graph from a flat list of Country records.
func NewGraph(countries []Country) *Graph {
	g := &Graph{countries: make(map[string]Country, len(countries))}
	for _, c := range countries {
		g.countries[strings.ToUpper(c.Code)] = c
	}
	return g
}

// Lookup resolves a 2-letter code (case-insensitive) to its Country record.
func (g *Graph) Lookup(code string) (Country, bool) {
	c, ok := g.countries[strings.ToUpper(code)]
	return c, ok
}

// Neighbors returns a country's outgoing links in the order the dataset
// defines them. Duplicate destination codes are not deduplicated here —
// the jump scheduler's visited-set check handles that at traversal time.
func (g *Graph) Neighbors(c Country) []Link {
	return c.Links
}

// Len reports how many countries the graph knows about.
func (g *Graph) Len() int {
	return len(g.countries)
}
