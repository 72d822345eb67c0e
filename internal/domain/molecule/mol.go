// Package molecule is the molecule graph toolkit used by the stereo
// assigner: SMILES and SMARTS parsing, canonical SMILES output, substructure
// search, shortest paths, CIP labelling, reaction transforms and
// sanitization.
package molecule

import (
	"fmt"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// ChiralTag is the low-level tetrahedral flag of an atom.  It is read
// relative to the atom's reference neighbour order: the implicit or bracket
// hydrogen first (if any), then the neighbours in bond-list order.
type ChiralTag int

const (
	ChiralUnspecified ChiralTag = iota
	ChiralCW
	ChiralCCW
)

func (t ChiralTag) String() string {
	switch t {
	case ChiralCW:
		return "CHI_TETRAHEDRAL_CW"
	case ChiralCCW:
		return "CHI_TETRAHEDRAL_CCW"
	default:
		return "CHI_UNSPECIFIED"
	}
}

// Invert swaps CW and CCW.  An unspecified tag stays unspecified.
func (t ChiralTag) Invert() ChiralTag {
	switch t {
	case ChiralCW:
		return ChiralCCW
	case ChiralCCW:
		return ChiralCW
	default:
		return t
	}
}

// BondOrder is the order of a bond.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "SINGLE"
	case BondDouble:
		return "DOUBLE"
	case BondTriple:
		return "TRIPLE"
	case BondAromatic:
		return "AROMATIC"
	default:
		return "UNKNOWN"
	}
}

// valence contribution; aromatic bonds count as one, the extra electron of
// an aromatic carbon is added per atom.
func (o BondOrder) valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

// Atom is a node of the molecule graph.
type Atom struct {
	Symbol     string
	AtomicNum  int
	Charge     int
	Isotope    int
	ExplicitHs int
	// NoImplicit is set for bracket atoms: their hydrogen count is exactly
	// ExplicitHs.
	NoImplicit bool
	Aromatic   bool
	MapNum     int
	ChiralTag  ChiralTag
	// CIP is the label written by AssignCIPLabels: "R", "S" or empty.
	CIP string

	implicitHs int
	bonds      []int
	idx        int
}

// Index returns the atom's index in its molecule.
func (a *Atom) Index() int { return a.idx }

// TotalHs returns explicit plus implicit hydrogen count.
func (a *Atom) TotalHs() int { return a.ExplicitHs + a.implicitHs }

// Degree is the number of explicit neighbours.
func (a *Atom) Degree() int { return len(a.bonds) }

// Bonds returns the indices of the atom's bonds in reference order.
func (a *Atom) Bonds() []int {
	out := make([]int, len(a.bonds))
	copy(out, a.bonds)
	return out
}

// Bond is an undirected edge of the molecule graph.
type Bond struct {
	Begin int
	End   int
	Order BondOrder
	idx   int
}

// Index returns the bond's index in its molecule.
func (b *Bond) Index() int { return b.idx }

// Other returns the endpoint that is not i.
func (b *Bond) Other(i int) int {
	if b.Begin == i {
		return b.End
	}
	return b.Begin
}

// Provenance records where a reaction product atom came from.  Reactant is
// -1 for atoms created by the product template.
type Provenance struct {
	Reactant int
	Atom     int
}

// Mol is a molecule graph addressed by integer atom and bond indices.
type Mol struct {
	atoms       []*Atom
	bonds       []*Bond
	outputOrder []int
	provenance  []Provenance
}

// NewMol returns an empty molecule.
func NewMol() *Mol {
	return &Mol{}
}

// AddAtom appends a copy of a and returns its index.
func (m *Mol) AddAtom(a Atom) int {
	cp := a
	cp.bonds = nil
	cp.idx = len(m.atoms)
	if cp.Symbol == "" {
		if e, ok := elementsByNumber[cp.AtomicNum]; ok {
			cp.Symbol = e.Symbol
		}
	}
	if cp.AtomicNum == 0 && cp.Symbol != "" && cp.Symbol != "*" {
		if e, ok := lookupElement(cp.Symbol); ok {
			cp.AtomicNum = e.Number
		}
	}
	m.atoms = append(m.atoms, &cp)
	return cp.idx
}

// AddBond joins atoms i and j.
func (m *Mol) AddBond(i, j int, order BondOrder) (int, error) {
	if !m.validAtom(i) || !m.validAtom(j) {
		return -1, errors.Newf(errors.ErrCodeAtomIndexOutOfRange, "bond %d-%d references a missing atom", i, j)
	}
	if i == j {
		return -1, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "atom %d cannot bond to itself", i)
	}
	if m.BondBetween(i, j) != nil {
		return -1, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "duplicate bond %d-%d", i, j)
	}
	b := &Bond{Begin: i, End: j, Order: order, idx: len(m.bonds)}
	m.bonds = append(m.bonds, b)
	m.atoms[i].bonds = append(m.atoms[i].bonds, b.idx)
	m.atoms[j].bonds = append(m.atoms[j].bonds, b.idx)
	return b.idx, nil
}

func (m *Mol) validAtom(i int) bool { return i >= 0 && i < len(m.atoms) }

// NumAtoms returns the atom count.
func (m *Mol) NumAtoms() int { return len(m.atoms) }

// NumBonds returns the bond count.
func (m *Mol) NumBonds() int { return len(m.bonds) }

// Atom returns atom i or nil when out of range.
func (m *Mol) Atom(i int) *Atom {
	if !m.validAtom(i) {
		return nil
	}
	return m.atoms[i]
}

// Bond returns bond i or nil when out of range.
func (m *Mol) Bond(i int) *Bond {
	if i < 0 || i >= len(m.bonds) {
		return nil
	}
	return m.bonds[i]
}

// BondBetween returns the bond joining i and j, or nil.
func (m *Mol) BondBetween(i, j int) *Bond {
	if !m.validAtom(i) || !m.validAtom(j) {
		return nil
	}
	for _, bi := range m.atoms[i].bonds {
		if m.bonds[bi].Other(i) == j {
			return m.bonds[bi]
		}
	}
	return nil
}

// Neighbors returns the neighbours of atom i in bond-list order.
func (m *Mol) Neighbors(i int) []int {
	if !m.validAtom(i) {
		return nil
	}
	out := make([]int, 0, len(m.atoms[i].bonds))
	for _, bi := range m.atoms[i].bonds {
		out = append(out, m.bonds[bi].Other(i))
	}
	return out
}

// SetChiralTag writes the chirality tag of atom i.
func (m *Mol) SetChiralTag(i int, tag ChiralTag) error {
	if !m.validAtom(i) {
		return errors.Newf(errors.ErrCodeAtomIndexOutOfRange, "atom %d out of range [0,%d)", i, len(m.atoms))
	}
	m.atoms[i].ChiralTag = tag
	return nil
}

// ChiralTags returns the tag of every atom that carries one.
func (m *Mol) ChiralTags() map[int]ChiralTag {
	out := make(map[int]ChiralTag)
	for _, a := range m.atoms {
		if a.ChiralTag != ChiralUnspecified {
			out[a.idx] = a.ChiralTag
		}
	}
	return out
}

// CIPLabels returns the stored CIP label of every labelled atom.
func (m *Mol) CIPLabels() map[int]string {
	out := make(map[int]string)
	for _, a := range m.atoms {
		if a.CIP != "" {
			out[a.idx] = a.CIP
		}
	}
	return out
}

// Provenance returns the source of product atom i.  ok is false when the
// molecule was not produced by a reaction.
func (m *Mol) Provenance(i int) (Provenance, bool) {
	if m.provenance == nil || !m.validAtom(i) {
		return Provenance{}, false
	}
	return m.provenance[i], true
}

// SMILESAtomOutputOrder returns the atom indices in the order the last call
// to SMILES wrote them.
func (m *Mol) SMILESAtomOutputOrder() []int {
	out := make([]int, len(m.outputOrder))
	copy(out, m.outputOrder)
	return out
}

// Clone returns a deep copy.
func (m *Mol) Clone() *Mol {
	c := &Mol{
		atoms: make([]*Atom, len(m.atoms)),
		bonds: make([]*Bond, len(m.bonds)),
	}
	for i, a := range m.atoms {
		cp := *a
		cp.bonds = append([]int(nil), a.bonds...)
		c.atoms[i] = &cp
	}
	for i, b := range m.bonds {
		cp := *b
		c.bonds[i] = &cp
	}
	c.outputOrder = append([]int(nil), m.outputOrder...)
	if m.provenance != nil {
		c.provenance = append([]Provenance(nil), m.provenance...)
	}
	return c
}

// chiralRef is the reference neighbour order of atom i; -1 stands for the
// hydrogen.
func (m *Mol) chiralRef(i int) []int {
	a := m.atoms[i]
	ref := make([]int, 0, len(a.bonds)+1)
	if a.TotalHs() > 0 {
		ref = append(ref, -1)
	}
	return append(ref, m.Neighbors(i)...)
}

// explicitValence sums bond orders, counting the extra aromatic electron of
// carbon and boron.
func (m *Mol) explicitValence(i int) int {
	a := m.atoms[i]
	v := 0
	arom := 0
	for _, bi := range a.bonds {
		b := m.bonds[bi]
		v += b.Order.valence()
		if b.Order == BondAromatic {
			arom++
		}
	}
	if a.Aromatic && arom > 0 && (a.AtomicNum == 6 || a.AtomicNum == 5) {
		v++
	}
	return v
}

// defaultImplicitHs is the hydrogen count an unbracketed atom would get.
func (m *Mol) defaultImplicitHs(i int) int {
	a := m.atoms[i]
	if a.AtomicNum == 0 {
		return 0
	}
	if a.Aromatic && a.AtomicNum != 6 && a.AtomicNum != 5 {
		return 0
	}
	allowed := allowedValences(a.AtomicNum, a.Charge)
	if allowed == nil {
		return 0
	}
	v := m.explicitValence(i) + a.ExplicitHs
	for _, av := range allowed {
		if av >= v {
			return av - v
		}
	}
	return 0
}

// UpdateImplicitHs recomputes implicit hydrogens of every non-bracket atom.
func (m *Mol) UpdateImplicitHs() {
	for i, a := range m.atoms {
		if a.NoImplicit {
			a.implicitHs = 0
			continue
		}
		a.implicitHs = m.defaultImplicitHs(i)
	}
}

func (m *Mol) String() string {
	return fmt.Sprintf("Mol(atoms=%d, bonds=%d)", len(m.atoms), len(m.bonds))
}

// permutationParity reports whether to is an odd permutation of from.  ok is
// false when the two lists do not hold the same elements.
func permutationParity(from, to []int) (odd bool, ok bool) {
	if len(from) != len(to) {
		return false, false
	}
	pos := make(map[int]int, len(to))
	for i, v := range to {
		if _, dup := pos[v]; dup {
			return false, false
		}
		pos[v] = i
	}
	perm := make([]int, len(from))
	for i, v := range from {
		p, found := pos[v]
		if !found {
			return false, false
		}
		perm[i] = p
	}
	seen := make([]bool, len(perm))
	cycles := 0
	for i := range perm {
		if seen[i] {
			continue
		}
		cycles++
		for j := i; !seen[j]; j = perm[j] {
			seen[j] = true
		}
	}
	return (len(perm)-cycles)%2 == 1, true
}
