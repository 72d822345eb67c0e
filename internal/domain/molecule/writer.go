package molecule

import (
	"sort"
	"strconv"
	"strings"
)

type atomInvariant struct {
	z, degree, hs, charge, isotope, aromatic, mapNum, cip int
}

func (a atomInvariant) less(b atomInvariant) bool {
	switch {
	case a.z != b.z:
		return a.z < b.z
	case a.degree != b.degree:
		return a.degree < b.degree
	case a.hs != b.hs:
		return a.hs < b.hs
	case a.charge != b.charge:
		return a.charge < b.charge
	case a.isotope != b.isotope:
		return a.isotope < b.isotope
	case a.aromatic != b.aromatic:
		return a.aromatic < b.aromatic
	case a.mapNum != b.mapNum:
		return a.mapNum < b.mapNum
	default:
		return a.cip < b.cip
	}
}

func cipCode(label string) int {
	switch label {
	case "R":
		return 1
	case "S":
		return 2
	default:
		return 0
	}
}

// canonicalRanks orders atoms by iterated neighbourhood refinement of their
// invariants, breaking remaining ties on the lowest-ranked tied class until
// every atom has its own rank.
func (m *Mol) canonicalRanks(labels []string) []int {
	n := len(m.atoms)
	inv := make([]atomInvariant, n)
	for i, a := range m.atoms {
		arom := 0
		if a.Aromatic {
			arom = 1
		}
		inv[i] = atomInvariant{
			z: a.AtomicNum, degree: a.Degree(), hs: a.TotalHs(), charge: a.Charge,
			isotope: a.Isotope, aromatic: arom, mapNum: a.MapNum, cip: cipCode(labels[i]),
		}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool { return inv[idx[x]].less(inv[idx[y]]) })
	ranks := make([]int, n)
	r := 0
	for k, i := range idx {
		if k > 0 && inv[idx[k-1]].less(inv[i]) {
			r++
		}
		ranks[i] = r
	}

	for {
		ranks = m.refineRanks(ranks)
		if countClasses(ranks) == n {
			return ranks
		}
		ranks = breakTie(ranks)
	}
}

func countClasses(ranks []int) int {
	seen := make(map[int]bool, len(ranks))
	for _, r := range ranks {
		seen[r] = true
	}
	return len(seen)
}

// refineRanks repeats neighbourhood refinement until the class count stops
// growing.
func (m *Mol) refineRanks(ranks []int) []int {
	n := len(ranks)
	classes := countClasses(ranks)
	for {
		keys := make([][]int, n)
		for i, a := range m.atoms {
			nb := make([]int, 0, len(a.bonds))
			for _, bi := range a.bonds {
				b := m.bonds[bi]
				nb = append(nb, ranks[b.Other(i)]*8+int(b.Order))
			}
			sort.Ints(nb)
			keys[i] = append([]int{ranks[i]}, nb...)
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(x, y int) bool { return compareInts(keys[idx[x]], keys[idx[y]]) < 0 })
		next := make([]int, n)
		r := 0
		for k, i := range idx {
			if k > 0 && compareInts(keys[idx[k-1]], keys[i]) != 0 {
				r++
			}
			next[i] = r
		}
		c := countClasses(next)
		ranks = next
		if c == classes {
			return ranks
		}
		classes = c
	}
}

// breakTie splits the lowest tied class by promoting its lowest-index member.
func breakTie(ranks []int) []int {
	count := make(map[int]int)
	for _, r := range ranks {
		count[r]++
	}
	tied := -1
	for r, c := range count {
		if c > 1 && (tied < 0 || r < tied) {
			tied = r
		}
	}
	out := make([]int, len(ranks))
	chosen := false
	for i, r := range ranks {
		out[i] = 2 * r
		if r == tied && !chosen {
			out[i] = 2*r - 1
			chosen = true
		}
	}
	return out
}

type smilesWriter struct {
	m        *Mol
	ranks    []int
	labels   []string
	visited  []bool
	bondUsed []bool
	order    []int
	parent   []int
	children [][]int
	opens    [][]int // ring-closure bonds opened at an atom, in output order
	closes   [][]int // ring-closure bonds closed at an atom
	digits   map[int]int
	free     []bool
	sb       strings.Builder
}

// SMILES writes canonical isomeric SMILES and records the atom output order
// (see SMILESAtomOutputOrder).  Labels used for ranking are computed from the
// current tags.
func (m *Mol) SMILES() string {
	n := len(m.atoms)
	labels := make([]string, n)
	for i := range m.atoms {
		labels[i] = m.cipLabel(i)
	}
	w := &smilesWriter{
		m:        m,
		ranks:    m.canonicalRanks(labels),
		labels:   labels,
		visited:  make([]bool, n),
		bondUsed: make([]bool, len(m.bonds)),
		parent:   make([]int, n),
		children: make([][]int, n),
		opens:    make([][]int, n),
		closes:   make([][]int, n),
		digits:   make(map[int]int),
		free:     make([]bool, 100),
	}
	for i := range w.free {
		w.free[i] = true
	}

	frags := m.Fragments()
	sort.Slice(frags, func(i, j int) bool { return w.minRank(frags[i]) < w.minRank(frags[j]) })
	for k, frag := range frags {
		start := frag[0]
		for _, a := range frag {
			if w.ranks[a] < w.ranks[start] {
				start = a
			}
		}
		w.parent[start] = -1
		w.build(start)
		if k > 0 {
			w.sb.WriteByte('.')
		}
		w.write(start)
	}
	m.outputOrder = w.order
	return w.sb.String()
}

func (w *smilesWriter) minRank(frag []int) int {
	r := w.ranks[frag[0]]
	for _, a := range frag {
		if w.ranks[a] < r {
			r = w.ranks[a]
		}
	}
	return r
}

// build lays out the DFS tree and ring closures without writing anything.
func (w *smilesWriter) build(a int) {
	w.visited[a] = true
	w.order = append(w.order, a)
	type edge struct{ bond, nb int }
	var edges []edge
	for _, bi := range w.m.atoms[a].bonds {
		if w.bondUsed[bi] {
			continue
		}
		edges = append(edges, edge{bi, w.m.bonds[bi].Other(a)})
	}
	sort.Slice(edges, func(i, j int) bool { return w.ranks[edges[i].nb] < w.ranks[edges[j].nb] })
	for _, e := range edges {
		if w.bondUsed[e.bond] || !w.visited[e.nb] {
			continue
		}
		w.bondUsed[e.bond] = true
		w.opens[e.nb] = append(w.opens[e.nb], e.bond)
		w.closes[a] = append(w.closes[a], e.bond)
	}
	for _, e := range edges {
		// A neighbour reached through an earlier child already closed its
		// ring bond back onto a.
		if w.bondUsed[e.bond] || w.visited[e.nb] {
			continue
		}
		w.bondUsed[e.bond] = true
		w.parent[e.nb] = a
		w.children[a] = append(w.children[a], e.nb)
		w.build(e.nb)
	}
}

func (w *smilesWriter) write(a int) {
	m := w.m
	type ringRef struct {
		digit int
		bond  int
		open  bool
	}
	var rings []ringRef
	for _, bi := range w.closes[a] {
		rings = append(rings, ringRef{digit: w.digits[bi], bond: bi})
	}
	for _, bi := range w.opens[a] {
		d := w.allocDigit()
		w.digits[bi] = d
		rings = append(rings, ringRef{digit: d, bond: bi, open: true})
	}

	// Output neighbour order decides @ versus @@.
	out := make([]int, 0, 4)
	if w.parent[a] >= 0 {
		out = append(out, w.parent[a])
	}
	if m.atoms[a].TotalHs() > 0 {
		out = append(out, -1)
	}
	for _, r := range rings {
		out = append(out, m.bonds[r.bond].Other(a))
	}
	out = append(out, w.children[a]...)

	w.sb.WriteString(w.atomToken(a, out))
	for _, r := range rings {
		if r.open {
			w.sb.WriteString(w.bondToken(m.bonds[r.bond]))
		} else {
			w.free[r.digit] = true
		}
		if r.digit >= 10 {
			w.sb.WriteString("%" + strconv.Itoa(r.digit))
		} else {
			w.sb.WriteString(strconv.Itoa(r.digit))
		}
	}
	for k, c := range w.children[a] {
		last := k == len(w.children[a])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondToken(m.BondBetween(a, c)))
		w.write(c)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) allocDigit() int {
	for d := 1; d < len(w.free); d++ {
		if w.free[d] {
			w.free[d] = false
			return d
		}
	}
	return 0
}

func (w *smilesWriter) bondToken(b *Bond) string {
	aromaticPair := w.m.atoms[b.Begin].Aromatic && w.m.atoms[b.End].Aromatic
	switch b.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		if aromaticPair {
			return ""
		}
		return ":"
	default:
		if aromaticPair {
			return "-"
		}
		return ""
	}
}

func (w *smilesWriter) atomToken(i int, outOrder []int) string {
	m := w.m
	a := m.atoms[i]
	chiral := ""
	if a.ChiralTag != ChiralUnspecified && w.labels[i] != "" {
		tag := a.ChiralTag
		if odd, ok := permutationParity(m.chiralRef(i), outOrder); ok && odd {
			tag = tag.Invert()
		}
		if tag == ChiralCCW {
			chiral = "@"
		} else {
			chiral = "@@"
		}
	}
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	organic := organicSubset[a.Symbol] && a.Charge == 0 && a.Isotope == 0 &&
		a.MapNum == 0 && chiral == "" && a.TotalHs() == m.unbracketedHs(i)
	if a.Aromatic {
		if _, ok := aromaticSymbols[sym]; !ok {
			organic = false
		}
	}
	if organic {
		return sym
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	sb.WriteString(chiral)
	if h := a.TotalHs(); h > 0 {
		sb.WriteByte('H')
		if h > 1 {
			sb.WriteString(strconv.Itoa(h))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	if a.MapNum > 0 {
		sb.WriteString(":" + strconv.Itoa(a.MapNum))
	}
	sb.WriteByte(']')
	return sb.String()
}

// unbracketedHs is the hydrogen count a parser would infer for atom i
// written without brackets.
func (m *Mol) unbracketedHs(i int) int {
	a := m.atoms[i]
	saved := a.ExplicitHs
	a.ExplicitHs = 0
	h := m.defaultImplicitHs(i)
	a.ExplicitHs = saved
	return h
}
