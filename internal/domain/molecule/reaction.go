package molecule

import (
	"sort"
	"strings"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// maxReactionProducts bounds the number of product sets RunReactants builds.
const maxReactionProducts = 1000

// Reaction is a parsed reaction SMARTS "reactants>agents>products".
type Reaction struct {
	smarts    string
	Reactants []*Query
	Products  []*Query
}

func (r *Reaction) String() string { return r.smarts }

// MustParseReaction is ParseReaction that panics on error.
func MustParseReaction(s string) *Reaction {
	r, err := ParseReaction(s)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseReaction parses a reaction SMARTS.  Components of each side are
// separated by '.'; a parenthesised group "(A.B)" forms a single template.
// Agents are ignored.
func ParseReaction(s string) (*Reaction, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ">")
	if len(parts) != 3 {
		return nil, errors.Newf(errors.ErrCodeInvalidReaction, "reaction SMARTS needs exactly two '>' separators").
			WithDetail(s)
	}
	r := &Reaction{smarts: s}
	var err error
	if r.Reactants, err = parseTemplates(parts[0]); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidReaction, "invalid reactant template").WithDetail(s)
	}
	if r.Products, err = parseTemplates(parts[2]); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidReaction, "invalid product template").WithDetail(s)
	}
	if len(r.Reactants) == 0 || len(r.Products) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidReaction, "reaction needs reactant and product templates").WithDetail(s)
	}
	seen := map[int]bool{}
	for _, q := range r.Reactants {
		for _, a := range q.atoms {
			if a.MapNum == 0 {
				continue
			}
			if seen[a.MapNum] {
				return nil, errors.Newf(errors.ErrCodeInvalidReaction, "map number %d repeated among reactants", a.MapNum).WithDetail(s)
			}
			seen[a.MapNum] = true
		}
	}
	for _, q := range r.Products {
		for _, a := range q.atoms {
			if a.MapNum == 0 && a.element == "" {
				return nil, errors.New(errors.ErrCodeInvalidReaction, "unmapped product atom must name a single element").WithDetail(s)
			}
		}
	}
	return r, nil
}

// parseTemplates splits one side of a reaction into templates.
func parseTemplates(side string) ([]*Query, error) {
	side = strings.TrimSpace(side)
	if side == "" {
		return nil, nil
	}
	var pieces []string
	depth, start := 0, 0
	inBracket := false
	for i := 0; i < len(side); i++ {
		switch side[i] {
		case '[':
			inBracket = true
		case ']':
			inBracket = false
		case '(':
			if !inBracket {
				depth++
			}
		case ')':
			if !inBracket {
				depth--
			}
		case '.':
			if depth == 0 && !inBracket {
				pieces = append(pieces, side[start:i])
				start = i + 1
			}
		}
	}
	pieces = append(pieces, side[start:])

	out := make([]*Query, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if strings.HasPrefix(piece, "(") && strings.HasSuffix(piece, ")") {
			piece = piece[1 : len(piece)-1]
		}
		q, err := ParseSMARTS(piece)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

type sourceAtom struct {
	reactant int
	atom     int
}

type sourceBond struct {
	reactant int
	bond     int
}

// RunReactants applies the reaction to the given reactants, one molecule per
// reactant template.  Every combination of template matches yields one
// product set, holding one molecule per product template.  Products are not
// sanitized; each product atom records its source through Provenance.
func (r *Reaction) RunReactants(reactants ...*Mol) ([][]*Mol, error) {
	if len(reactants) != len(r.Reactants) {
		return nil, errors.Newf(errors.ErrCodeInvalidReaction,
			"reaction takes %d reactants, got %d", len(r.Reactants), len(reactants))
	}
	matches := make([][][]int, len(reactants))
	for i, q := range r.Reactants {
		matches[i] = reactants[i].SubstructMatchesWithOptions(q, MatchOptions{Uniquify: true, MaxMatches: maxReactionProducts})
		if len(matches[i]) == 0 {
			return nil, nil
		}
	}

	var out [][]*Mol
	combo := make([][]int, len(reactants))
	var walk func(k int) error
	walk = func(k int) error {
		if len(out) >= maxReactionProducts {
			return nil
		}
		if k == len(reactants) {
			set := make([]*Mol, 0, len(r.Products))
			for _, pt := range r.Products {
				p, err := r.buildProduct(pt, reactants, combo)
				if err != nil {
					return err
				}
				set = append(set, p)
			}
			out = append(out, set)
			return nil
		}
		for _, mt := range matches[k] {
			combo[k] = mt
			if err := walk(k + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reaction) buildProduct(pt *Query, reactants []*Mol, combo [][]int) (*Mol, error) {
	mapped := map[int]sourceAtom{}
	matched := map[sourceAtom]bool{}
	matchedBonds := map[sourceBond]bool{}
	for ri, q := range r.Reactants {
		mt := combo[ri]
		for qi, a := range q.atoms {
			matched[sourceAtom{ri, mt[qi]}] = true
			if a.MapNum > 0 {
				mapped[a.MapNum] = sourceAtom{ri, mt[qi]}
			}
		}
		for _, qb := range q.bonds {
			if b := reactants[ri].BondBetween(mt[qb.Begin], mt[qb.End]); b != nil {
				matchedBonds[sourceBond{ri, b.idx}] = true
			}
		}
	}

	p := NewMol()
	var prov []Provenance
	index := map[sourceAtom]int{}

	for _, qa := range pt.atoms {
		src, ok := mapped[qa.MapNum]
		if qa.MapNum > 0 && ok {
			a := *reactants[src.reactant].atoms[src.atom]
			a.CIP = ""
			if qa.element != "" && qa.element != a.Symbol {
				a.Symbol = qa.element
				a.AtomicNum = elementsBySymbol[qa.element].Number
				a.Aromatic = qa.aromatic
			}
			if qa.charge != nil {
				a.Charge = *qa.charge
			}
			if qa.hCount != nil {
				a.ExplicitHs = *qa.hCount
				a.NoImplicit = true
			} else if organicSubset[a.Symbol] && a.Isotope == 0 {
				a.ExplicitHs = 0
				a.NoImplicit = false
			}
			idx := p.AddAtom(a)
			index[src] = idx
			prov = append(prov, Provenance{Reactant: src.reactant, Atom: src.atom})
			continue
		}
		if qa.element == "" {
			return nil, errors.New(errors.ErrCodeInvalidReaction, "product template atom has no source and no element")
		}
		a := Atom{Symbol: qa.element, Aromatic: qa.aromatic, NoImplicit: qa.hCount != nil}
		if qa.charge != nil {
			a.Charge = *qa.charge
		}
		if qa.hCount != nil {
			a.ExplicitHs = *qa.hCount
		}
		p.AddAtom(a)
		prov = append(prov, Provenance{Reactant: -1, Atom: -1})
	}

	// Carry every reactant atom reachable from a mapped atom without passing
	// through an atom the template deletes.
	var carried []sourceAtom
	for _, src := range sortedSources(mapped) {
		if _, inProduct := index[src]; !inProduct {
			continue
		}
		mol := reactants[src.reactant]
		queue := []int{src.atom}
		visited := map[int]bool{src.atom: true}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range mol.Neighbors(cur) {
				key := sourceAtom{src.reactant, nb}
				if visited[nb] {
					continue
				}
				visited[nb] = true
				if matched[key] {
					continue
				}
				if _, done := index[key]; done {
					continue
				}
				index[key] = -1
				carried = append(carried, key)
				queue = append(queue, nb)
			}
		}
	}
	sort.Slice(carried, func(i, j int) bool {
		if carried[i].reactant != carried[j].reactant {
			return carried[i].reactant < carried[j].reactant
		}
		return carried[i].atom < carried[j].atom
	})
	for _, src := range carried {
		a := *reactants[src.reactant].atoms[src.atom]
		a.CIP = ""
		index[src] = p.AddAtom(a)
		prov = append(prov, Provenance{Reactant: src.reactant, Atom: src.atom})
	}

	// Template bonds first, then untouched reactant bonds between product
	// atoms.
	for _, qb := range pt.bonds {
		order := qb.kind.order()
		if qb.kind == bondQueryDefault || qb.kind == bondQueryAny {
			ba, bb := pt.atoms[qb.Begin], pt.atoms[qb.End]
			sa, oka := mapped[ba.MapNum]
			sb, okb := mapped[bb.MapNum]
			if oka && okb && sa.reactant == sb.reactant {
				if rb := reactants[sa.reactant].BondBetween(sa.atom, sb.atom); rb != nil {
					order = rb.Order
				}
			}
		}
		if _, err := p.AddBond(qb.Begin, qb.End, order); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidReaction, "cannot add product template bond")
		}
	}
	for ri, mol := range reactants {
		for _, b := range mol.bonds {
			if matchedBonds[sourceBond{ri, b.idx}] {
				continue
			}
			i, okI := index[sourceAtom{ri, b.Begin}]
			j, okJ := index[sourceAtom{ri, b.End}]
			if !okI || !okJ || i < 0 || j < 0 || p.BondBetween(i, j) != nil {
				continue
			}
			if _, err := p.AddBond(i, j, b.Order); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInvalidReaction, "cannot carry reactant bond")
			}
		}
	}

	p.provenance = prov
	p.UpdateImplicitHs()
	p.carryChirality(reactants)
	return p, nil
}

// carryChirality re-expresses inherited tags in the product's neighbour
// order.  A tag is dropped when the atom's neighbourhood changed.
func (m *Mol) carryChirality(reactants []*Mol) {
	toProduct := map[sourceAtom]int{}
	for i, pv := range m.provenance {
		if pv.Reactant >= 0 {
			toProduct[sourceAtom{pv.Reactant, pv.Atom}] = i
		}
	}
	for i, a := range m.atoms {
		pv := m.provenance[i]
		if a.ChiralTag == ChiralUnspecified || pv.Reactant < 0 {
			continue
		}
		oldRef := reactants[pv.Reactant].chiralRef(pv.Atom)
		mappedRef := make([]int, len(oldRef))
		for k, n := range oldRef {
			mappedRef[k] = -1
			if n < 0 {
				continue
			}
			if pi, ok := toProduct[sourceAtom{pv.Reactant, n}]; ok {
				mappedRef[k] = pi
			} else {
				mappedRef[k] = -2 - k
			}
		}
		odd, ok := permutationParity(mappedRef, m.chiralRef(i))
		if !ok {
			a.ChiralTag = ChiralUnspecified
			continue
		}
		if odd {
			a.ChiralTag = a.ChiralTag.Invert()
		}
	}
}

func sortedSources(mapped map[int]sourceAtom) []sourceAtom {
	keys := make([]int, 0, len(mapped))
	for k := range mapped {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]sourceAtom, 0, len(keys))
	for _, k := range keys {
		out = append(out, mapped[k])
	}
	return out
}
