package molecule

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// molGraph exposes a Mol as a gonum graph.Undirected.  Node IDs are atom
// indices.  From yields neighbours in bond-list order so that traversals are
// reproducible.  A non-negative skip hides that bond.
type molGraph struct {
	m    *Mol
	skip int
}

var _ graph.Undirected = molGraph{}

func (g molGraph) Node(id int64) graph.Node {
	if !g.m.validAtom(int(id)) {
		return nil
	}
	return simple.Node(id)
}

func (g molGraph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, len(g.m.atoms))
	for i := range g.m.atoms {
		nodes[i] = simple.Node(i)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g molGraph) From(id int64) graph.Nodes {
	i := int(id)
	if !g.m.validAtom(i) {
		return graph.Empty
	}
	var nodes []graph.Node
	for _, bi := range g.m.atoms[i].bonds {
		if bi == g.skip {
			continue
		}
		nodes = append(nodes, simple.Node(g.m.bonds[bi].Other(i)))
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g molGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.EdgeBetween(xid, yid) != nil
}

func (g molGraph) Edge(uid, vid int64) graph.Edge {
	return g.EdgeBetween(uid, vid)
}

func (g molGraph) EdgeBetween(xid, yid int64) graph.Edge {
	b := g.m.BondBetween(int(xid), int(yid))
	if b == nil || b.idx == g.skip {
		return nil
	}
	return simple.Edge{F: simple.Node(xid), T: simple.Node(yid)}
}

func (m *Mol) graphView() molGraph { return molGraph{m: m, skip: -1} }

// ShortestPath returns the atom indices of a shortest bond path from a to b,
// both ends included.  It returns nil when either index is out of range or the
// atoms are not connected.
func (m *Mol) ShortestPath(a, b int) []int {
	if !m.validAtom(a) || !m.validAtom(b) {
		return nil
	}
	if a == b {
		return []int{a}
	}
	g := m.graphView()
	shortest := path.DijkstraFrom(simple.Node(a), g)
	nodes, _ := shortest.To(int64(b))
	if len(nodes) == 0 {
		return nil
	}
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	return out
}

// IsRingBond reports whether bond bi lies on a cycle.
func (m *Mol) IsRingBond(bi int) bool {
	b := m.Bond(bi)
	if b == nil {
		return false
	}
	g := molGraph{m: m, skip: bi}
	return topo.PathExistsIn(g, simple.Node(b.Begin), simple.Node(b.End))
}

// IsInRing reports whether atom i has at least one ring bond.
func (m *Mol) IsInRing(i int) bool {
	if !m.validAtom(i) {
		return false
	}
	for _, bi := range m.atoms[i].bonds {
		if m.IsRingBond(bi) {
			return true
		}
	}
	return false
}

// Fragments returns the connected components, each sorted ascending, ordered
// by their lowest atom index.
func (m *Mol) Fragments() [][]int {
	if len(m.atoms) == 0 {
		return nil
	}
	comps := topo.ConnectedComponents(m.graphView())
	out := make([][]int, 0, len(comps))
	for _, c := range comps {
		frag := make([]int, len(c))
		for i, n := range c {
			frag[i] = int(n.ID())
		}
		sort.Ints(frag)
		out = append(out, frag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
