package molecule

import (
	"sort"
)

// maxDigraphNodes caps the hierarchical digraph built for one center.
// Fused ring systems grow exponentially; the digraph is cut at the last
// sphere that fits, the same sphere for all four branches.
const maxDigraphNodes = 1 << 14

// ChiralCenter is one entry of FindChiralCenters.  Label is "R", "S", or "?"
// for a center without a chirality tag.
type ChiralCenter struct {
	Atom  int
	Label string
}

// ChiralCenterOptions controls FindChiralCenters.
type ChiralCenterOptions struct {
	// IncludeUnassigned adds centers that carry no chirality tag.
	IncludeUnassigned bool
}

// cipNode is a vertex of the hierarchical digraph rooted at a stereocenter.
type cipNode struct {
	atom     int // -1 for a hydrogen that is not a graph atom
	z        int
	mass     float64
	dup      bool
	parent   *cipNode
	children []*cipNode
	rank     int
}

func (m *Mol) atomMass(i int) float64 {
	a := m.atoms[i]
	if a.Isotope > 0 {
		return float64(a.Isotope)
	}
	return standardMass(a.AtomicNum)
}

func (m *Mol) realNode(atom int, parent *cipNode) *cipNode {
	return &cipNode{atom: atom, z: m.atoms[atom].AtomicNum, mass: m.atomMass(atom), parent: parent}
}

func (m *Mol) duplicateNode(atom int, parent *cipNode) *cipNode {
	n := m.realNode(atom, parent)
	n.dup = true
	return n
}

func hydrogenNode(parent *cipNode) *cipNode {
	return &cipNode{atom: -1, z: 1, mass: standardMass(1), parent: parent}
}

func onPath(n *cipNode, atom int) bool {
	for p := n; p != nil; p = p.parent {
		if !p.dup && p.atom == atom {
			return true
		}
	}
	return false
}

func multiplicity(o BondOrder) int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

// cipChildren expands n one sphere outward.  Multiple bonds add duplicate
// atoms on both ends, a ring closure back onto the path adds a duplicate of
// the revisited atom.  Duplicates and hydrogens are leaves.
func (m *Mol) cipChildren(n *cipNode) []*cipNode {
	if n.dup || n.atom < 0 {
		return nil
	}
	a := m.atoms[n.atom]
	parentAtom := -2
	if n.parent != nil {
		parentAtom = n.parent.atom
	}
	var out []*cipNode
	for _, bi := range a.bonds {
		b := m.bonds[bi]
		o := b.Other(n.atom)
		k := multiplicity(b.Order)
		switch {
		case o == parentAtom:
			for j := 1; j < k; j++ {
				out = append(out, m.duplicateNode(o, n))
			}
		case onPath(n, o):
			for j := 0; j < k; j++ {
				out = append(out, m.duplicateNode(o, n))
			}
		default:
			out = append(out, m.realNode(o, n))
			for j := 1; j < k; j++ {
				out = append(out, m.duplicateNode(o, n))
			}
		}
	}
	for h := 0; h < a.TotalHs(); h++ {
		out = append(out, hydrogenNode(n))
	}
	return out
}

// buildDigraph expands the four branches sphere by sphere and returns every
// node.  A sphere that would push the total past maxDigraphNodes is not
// added.
func (m *Mol) buildDigraph(branches []*cipNode) []*cipNode {
	all := append([]*cipNode(nil), branches...)
	sphere := branches
	for len(sphere) > 0 {
		var next []*cipNode
		for _, n := range sphere {
			n.children = m.cipChildren(n)
			next = append(next, n.children...)
		}
		if len(all)+len(next) > maxDigraphNodes {
			for _, n := range sphere {
				n.children = nil
			}
			break
		}
		all = append(all, next...)
		sphere = next
	}
	return all
}

// rankBy assigns dense ranks (1 is lowest) ordered by key and returns the
// number of distinct ranks.  Keys are all computed before any rank changes.
func rankBy(nodes []*cipNode, key func(*cipNode) []int) int {
	keys := make([][]int, len(nodes))
	idx := make([]int, len(nodes))
	for i, n := range nodes {
		keys[i] = key(n)
		idx[i] = i
	}
	sort.Slice(idx, func(x, y int) bool { return compareInts(keys[idx[x]], keys[idx[y]]) < 0 })
	rank := 0
	for k, i := range idx {
		if k == 0 || compareInts(keys[idx[k-1]], keys[i]) != 0 {
			rank++
		}
		nodes[i].rank = rank
	}
	return rank
}

// refinedKey is a node's current rank followed by its children's ranks,
// highest first.  Missing children read as phantom atoms (0).
func refinedKey(n *cipNode) []int {
	key := make([]int, 1, len(n.children)+1)
	key[0] = n.rank
	start := len(key)
	for _, c := range n.children {
		key = append(key, c.rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(key[start:])))
	return key
}

// refine repeats rank refinement until the branches are told apart or the
// partition stops changing.  A node's rank after h rounds orders it by the
// first h spheres of its sub-digraph, each sphere explored in the order of
// the ranks already fixed for its parents.
func refine(nodes, branches []*cipNode, classes int) {
	for !distinctRanks(branches) {
		next := rankBy(nodes, refinedKey)
		if next == classes {
			return
		}
		classes = next
	}
}

func distinctRanks(branches []*cipNode) bool {
	for i := 0; i < len(branches); i++ {
		for j := i + 1; j < len(branches); j++ {
			if branches[i].rank == branches[j].rank {
				return false
			}
		}
	}
	return true
}

// cipPriorities ranks the four substituents of center c by CIP rules 1a, 1b
// and 2.  The returned keys are neighbour indices (-1 for hydrogen), highest
// priority first.  ok is false when c does not have four substituents or two
// of them tie.
func (m *Mol) cipPriorities(c int) ([]int, bool) {
	subs := m.chiralRef(c)
	if len(subs) != 4 {
		return nil, false
	}
	root := m.realNode(c, nil)
	branches := make([]*cipNode, len(subs))
	for i, key := range subs {
		if key < 0 {
			branches[i] = hydrogenNode(root)
		} else {
			branches[i] = m.realNode(key, root)
		}
	}
	nodes := m.buildDigraph(branches)

	// Rule 1: atomic number, duplicates included.
	refine(nodes, branches, rankBy(nodes, func(n *cipNode) []int { return []int{n.z} }))
	if !distinctRanks(branches) {
		// Rule 2: mass, only among what rule 1 left tied.
		refine(nodes, branches, rankBy(nodes, func(n *cipNode) []int {
			return []int{n.rank, int(n.mass * 1e4)}
		}))
	}
	if !distinctRanks(branches) {
		return nil, false
	}

	order := make([]int, len(branches))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool { return branches[order[x]].rank > branches[order[y]].rank })
	keys := make([]int, len(order))
	for i, b := range order {
		keys[i] = subs[b]
	}
	return keys, true
}

// isStereoCandidate is a tetrahedral atom: four substituents, at most one
// hydrogen, no multiple or aromatic bonds.
func (m *Mol) isStereoCandidate(i int) bool {
	a := m.atoms[i]
	if a.Aromatic || a.TotalHs() > 1 || a.Degree()+a.TotalHs() != 4 {
		return false
	}
	for _, bi := range a.bonds {
		if m.bonds[bi].Order != BondSingle {
			return false
		}
	}
	return true
}

// IsStereoCenter reports whether atom i has four substituents of distinct
// CIP priority.
func (m *Mol) IsStereoCenter(i int) bool {
	if !m.validAtom(i) || !m.isStereoCandidate(i) {
		return false
	}
	_, ok := m.cipPriorities(i)
	return ok
}

// cipLabel derives R or S for atom i from its tag and the substituent
// priorities.  It returns "" for an untagged atom or a non-center.
func (m *Mol) cipLabel(i int) string {
	a := m.atoms[i]
	if a.ChiralTag == ChiralUnspecified || !m.isStereoCandidate(i) {
		return ""
	}
	prio, ok := m.cipPriorities(i)
	if !ok {
		return ""
	}
	return labelFor(a.ChiralTag, m.chiralRef(i), prio)
}

// labelFor looks at the center with the lowest priority substituent as the
// first neighbour; the remaining three then run highest, second, third.
func labelFor(tag ChiralTag, ref, prio []int) string {
	view := []int{prio[3], prio[0], prio[1], prio[2]}
	odd, ok := permutationParity(ref, view)
	if !ok {
		return ""
	}
	eff := tag
	if odd {
		eff = eff.Invert()
	}
	if eff == ChiralCCW {
		return "R"
	}
	return "S"
}

// FindChiralCenters lists stereocenters in atom index order.  Tagged centers
// carry the label computed from their current tag.
func (m *Mol) FindChiralCenters(opts ChiralCenterOptions) []ChiralCenter {
	var out []ChiralCenter
	for i, a := range m.atoms {
		if !m.isStereoCandidate(i) {
			continue
		}
		if a.ChiralTag == ChiralUnspecified && !opts.IncludeUnassigned {
			continue
		}
		prio, ok := m.cipPriorities(i)
		if !ok {
			continue
		}
		label := "?"
		if a.ChiralTag != ChiralUnspecified {
			label = labelFor(a.ChiralTag, m.chiralRef(i), prio)
		}
		out = append(out, ChiralCenter{Atom: i, Label: label})
	}
	return out
}

// AssignCIPLabels recomputes the CIP label of every atom from the current
// tags and topology.  Atoms that are not tagged stereocenters lose their
// label.
func (m *Mol) AssignCIPLabels() {
	for i, a := range m.atoms {
		a.CIP = m.cipLabel(i)
	}
}

// compareInts orders int slices lexicographically; the shorter one is
// padded with zeros.
func compareInts(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	return 0
}
