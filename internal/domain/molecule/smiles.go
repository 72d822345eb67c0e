package molecule

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// ParseOptions controls ParseSMILESWithOptions.
type ParseOptions struct {
	// Sanitize runs Sanitize on the parsed molecule.
	Sanitize bool
}

// ParseSMILES parses and sanitizes a SMILES string.
func ParseSMILES(s string) (*Mol, error) {
	return ParseSMILESWithOptions(s, ParseOptions{Sanitize: true})
}

// MustParseSMILES is ParseSMILES that panics on error.  Tests and fixed
// tables only.
func MustParseSMILES(s string) *Mol {
	m, err := ParseSMILES(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Neighbour-order placeholders recorded while parsing.
const (
	slotHydrogen = -1
	slotPending  = -2
)

type ringOpening struct {
	atom  int
	order BondOrder
	set   bool
	slot  int
}

type smilesParser struct {
	src      string
	pos      int
	mol      *Mol
	prev     int
	branches []int
	bond     BondOrder
	bondSet  bool
	rings    map[int]ringOpening
	order    [][]int
}

// ParseSMILESWithOptions parses s into a molecule.
func ParseSMILESWithOptions(s string, opts ParseOptions) (*Mol, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES")
	}
	p := &smilesParser{src: s, mol: NewMol(), prev: -1, rings: make(map[int]ringOpening)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	m := p.mol
	m.UpdateImplicitHs()
	p.normalizeChirality()
	if opts.Sanitize {
		if err := Sanitize(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, format, args...).
		WithDetail("SMILES " + strconv.Quote(p.src) + " at position " + strconv.Itoa(p.pos))
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch opened without a preceding atom")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.bondSet {
				return p.fail("bond symbol before ')'")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '.':
			if p.bondSet {
				return p.fail("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\':
			if p.bondSet {
				return p.fail("consecutive bond symbols")
			}
			p.bond = bondFromSymbol(c)
			p.bondSet = true
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if err := p.parseRing(); err != nil {
				return err
			}
		case c == '[':
			if err := p.parseBracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.parseOrganicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.branches) != 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) != 0 {
		for n := range p.rings {
			return p.fail("unclosed ring %d", n)
		}
	}
	if p.bondSet {
		return p.fail("dangling bond symbol")
	}
	return nil
}

func bondFromSymbol(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

func (p *smilesParser) defaultOrder(i, j int) BondOrder {
	if p.mol.atoms[i].Aromatic && p.mol.atoms[j].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) parseRing() error {
	if p.prev < 0 {
		return p.fail("ring bond without a preceding atom")
	}
	var n int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return p.fail("'%%' must be followed by two digits")
		}
		n, _ = strconv.Atoi(p.src[p.pos+1 : p.pos+3])
		p.pos += 3
	} else {
		n = int(p.src[p.pos] - '0')
		p.pos++
	}
	if open, ok := p.rings[n]; ok {
		delete(p.rings, n)
		if open.atom == p.prev {
			return p.fail("ring %d closes on its own atom", n)
		}
		order := p.defaultOrder(open.atom, p.prev)
		if open.set {
			order = open.order
		}
		if p.bondSet {
			order = p.bond
		}
		if _, err := p.mol.AddBond(open.atom, p.prev, order); err != nil {
			return p.fail("ring %d: %v", n, err)
		}
		p.order[p.prev] = append(p.order[p.prev], open.atom)
		p.order[open.atom][open.slot] = p.prev
	} else {
		p.rings[n] = ringOpening{atom: p.prev, order: p.bond, set: p.bondSet, slot: len(p.order[p.prev])}
		p.order[p.prev] = append(p.order[p.prev], slotPending)
	}
	p.bondSet = false
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *smilesParser) addAtom(a Atom, hSlot bool) error {
	idx := p.mol.AddAtom(a)
	p.order = append(p.order, nil)
	if p.prev >= 0 {
		order := p.defaultOrder(p.prev, idx)
		if p.bondSet {
			order = p.bond
		}
		if _, err := p.mol.AddBond(p.prev, idx, order); err != nil {
			return p.fail("%v", err)
		}
		p.order[p.prev] = append(p.order[p.prev], idx)
		p.order[idx] = append(p.order[idx], p.prev)
	} else if p.bondSet {
		return p.fail("bond symbol without a preceding atom")
	}
	if hSlot {
		p.order[idx] = append(p.order[idx], slotHydrogen)
	}
	p.bondSet = false
	p.prev = idx
	return nil
}

func (p *smilesParser) parseOrganicAtom() error {
	c := p.src[p.pos]
	if c == '*' {
		p.pos++
		return p.addAtom(Atom{Symbol: "*"}, false)
	}
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			p.pos += 2
			return p.addAtom(Atom{Symbol: two}, false)
		}
	}
	one := string(c)
	if organicSubset[one] {
		p.pos++
		return p.addAtom(Atom{Symbol: one}, false)
	}
	if sym, ok := aromaticSymbols[one]; ok && organicSubset[sym] {
		p.pos++
		return p.addAtom(Atom{Symbol: sym, Aromatic: true}, false)
	}
	return p.fail("unexpected character %q", c)
}

func (p *smilesParser) parseBracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	a, hasH, err := parseBracketBody(body)
	if err != nil {
		return p.fail("bracket atom [%s]: %v", body, err)
	}
	p.pos += end + 1
	return p.addAtom(a, hasH)
}

// parseBracketBody parses the inside of "[...]".  hasH reports a non-zero
// hydrogen count, which occupies a neighbour slot for chirality.
func parseBracketBody(body string) (Atom, bool, error) {
	a := Atom{NoImplicit: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}
	if i > 0 {
		a.Isotope, _ = strconv.Atoi(body[:i])
	}
	if i >= len(body) {
		return a, false, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "missing element symbol")
	}
	switch {
	case body[i] == '*':
		a.Symbol = "*"
		i++
	case unicode.IsUpper(rune(body[i])):
		sym := body[i : i+1]
		if i+1 < len(body) && unicode.IsLower(rune(body[i+1])) {
			if _, ok := lookupElement(body[i : i+2]); ok {
				sym = body[i : i+2]
			}
		}
		if _, ok := lookupElement(sym); !ok {
			return a, false, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "unknown element %q", sym)
		}
		a.Symbol = sym
		i += len(sym)
	default:
		matched := false
		for _, n := range []int{2, 1} {
			if i+n <= len(body) {
				if sym, ok := aromaticSymbols[body[i:i+n]]; ok {
					a.Symbol = sym
					a.Aromatic = true
					i += n
					matched = true
					break
				}
			}
		}
		if !matched {
			return a, false, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "unknown element at %q", body[i:])
		}
	}

	if i < len(body) && body[i] == '@' {
		i++
		a.ChiralTag = ChiralCCW
		if i < len(body) && body[i] == '@' {
			a.ChiralTag = ChiralCW
			i++
		} else if strings.HasPrefix(body[i:], "TH1") {
			i += 3
		} else if strings.HasPrefix(body[i:], "TH2") {
			a.ChiralTag = ChiralCW
			i += 3
		} else if i+1 < len(body) && unicode.IsUpper(rune(body[i])) && unicode.IsUpper(rune(body[i+1])) {
			return a, false, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "unsupported chirality class at %q", body[i:])
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.ExplicitHs = 1
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		if j > i {
			a.ExplicitHs, _ = strconv.Atoi(body[i:j])
			i = j
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		c := body[i]
		i++
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		switch {
		case j > i:
			n, _ := strconv.Atoi(body[i:j])
			a.Charge = sign * n
			i = j
		default:
			n := 1
			for i < len(body) && body[i] == c {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		if j == i {
			return a, false, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "atom map number expected after ':'")
		}
		a.MapNum, _ = strconv.Atoi(body[i:j])
		i = j
	}

	if i != len(body) {
		return a, false, errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "unexpected %q", body[i:])
	}
	return a, a.ExplicitHs > 0, nil
}

// normalizeChirality rewrites tags read against SMILES neighbour order into
// the atom's reference order.
func (p *smilesParser) normalizeChirality() {
	for i, a := range p.mol.atoms {
		if a.ChiralTag == ChiralUnspecified {
			continue
		}
		written := p.order[i]
		ref := p.mol.chiralRef(i)
		odd, ok := permutationParity(written, ref)
		if !ok {
			continue
		}
		if odd {
			a.ChiralTag = a.ChiralTag.Invert()
		}
	}
}
