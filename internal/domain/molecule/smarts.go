package molecule

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// atomPrimitive is one conjunction term of a query atom.  Unset fields match
// anything.
type atomPrimitive struct {
	negate    bool
	atomicNum *int
	aromatic  *bool
	charge    *int
	hCount    *int
}

func (p atomPrimitive) matches(m *Mol, i int) bool {
	a := m.atoms[i]
	ok := true
	if p.atomicNum != nil && a.AtomicNum != *p.atomicNum {
		ok = false
	}
	if p.aromatic != nil && a.Aromatic != *p.aromatic {
		ok = false
	}
	if p.charge != nil && a.Charge != *p.charge {
		ok = false
	}
	if p.hCount != nil && a.TotalHs() != *p.hCount {
		ok = false
	}
	return ok != p.negate
}

// QueryAtom is an OR of AND-ed primitive lists.
type QueryAtom struct {
	alternatives [][]atomPrimitive
	MapNum       int
	// element is the single concrete element the query names, used when a
	// reaction product template creates the atom.
	element  string
	aromatic bool
	charge   *int
	hCount   *int
}

func (q *QueryAtom) matches(m *Mol, i int) bool {
	if len(q.alternatives) == 0 {
		return true
	}
	for _, alt := range q.alternatives {
		all := true
		for _, p := range alt {
			if !p.matches(m, i) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

type bondQuery int

const (
	bondQueryDefault bondQuery = iota // single or aromatic
	bondQuerySingle
	bondQueryDouble
	bondQueryTriple
	bondQueryAromatic
	bondQueryAny
)

func (k bondQuery) matches(o BondOrder) bool {
	switch k {
	case bondQuerySingle:
		return o == BondSingle
	case bondQueryDouble:
		return o == BondDouble
	case bondQueryTriple:
		return o == BondTriple
	case bondQueryAromatic:
		return o == BondAromatic
	case bondQueryAny:
		return true
	default:
		return o == BondSingle || o == BondAromatic
	}
}

// order is the bond order a product template creates for this query bond.
func (k bondQuery) order() BondOrder {
	switch k {
	case bondQueryDouble:
		return BondDouble
	case bondQueryTriple:
		return BondTriple
	case bondQueryAromatic:
		return BondAromatic
	default:
		return BondSingle
	}
}

// QueryBond joins two query atoms.
type QueryBond struct {
	Begin int
	End   int
	kind  bondQuery
}

// Query is a parsed SMARTS pattern.
type Query struct {
	smarts string
	atoms  []*QueryAtom
	bonds  []QueryBond
	adj    [][]int
}

// NumAtoms returns the number of query atoms.
func (q *Query) NumAtoms() int { return len(q.atoms) }

// MapNum returns the atom-map number of query atom i (0 if unmapped).
func (q *Query) MapNum(i int) int { return q.atoms[i].MapNum }

func (q *Query) String() string { return q.smarts }

func (q *Query) bondBetween(i, j int) (QueryBond, bool) {
	for _, bi := range q.adj[i] {
		b := q.bonds[bi]
		if (b.Begin == i && b.End == j) || (b.Begin == j && b.End == i) {
			return b, true
		}
	}
	return QueryBond{}, false
}

// MustParseSMARTS is ParseSMARTS that panics on error.
func MustParseSMARTS(s string) *Query {
	q, err := ParseSMARTS(s)
	if err != nil {
		panic(err)
	}
	return q
}

type smartsParser struct {
	src      string
	pos      int
	q        *Query
	prev     int
	branches []int
	bond     bondQuery
	bondSet  bool
	rings    map[int]smartsRing
}

type smartsRing struct {
	atom int
	kind bondQuery
	set  bool
}

// ParseSMARTS parses the supported SMARTS subset.
func ParseSMARTS(s string) (*Query, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrCodeInvalidSMARTS, "empty SMARTS")
	}
	p := &smartsParser{src: s, q: &Query{smarts: s}, prev: -1, rings: make(map[int]smartsRing)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.q, nil
}

func (p *smartsParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeInvalidSMARTS, format, args...).
		WithDetail("SMARTS " + strconv.Quote(p.src) + " at position " + strconv.Itoa(p.pos))
}

func (p *smartsParser) parse() error {
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
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '.':
			p.prev = -1
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '~' || c == '/' || c == '\\':
			if p.bondSet {
				return p.fail("consecutive bond symbols")
			}
			p.bond = smartsBond(c)
			p.bondSet = true
			p.pos++
		case c == '%' || isDigit(c):
			if err := p.parseRing(); err != nil {
				return err
			}
		case c == '[':
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				return p.fail("unclosed bracket atom")
			}
			qa, err := parseSMARTSBracket(p.src[p.pos+1 : p.pos+end])
			if err != nil {
				return p.fail("%v", err)
			}
			p.pos += end + 1
			if err := p.addAtom(qa); err != nil {
				return err
			}
		default:
			qa, n, err := parseSMARTSBare(p.src[p.pos:])
			if err != nil {
				return p.fail("%v", err)
			}
			p.pos += n
			if err := p.addAtom(qa); err != nil {
				return err
			}
		}
	}
	if len(p.branches) != 0 {
		return p.fail("unclosed branch")
	}
	for n := range p.rings {
		return p.fail("unclosed ring %d", n)
	}
	if p.bondSet {
		return p.fail("dangling bond symbol")
	}
	return nil
}

func smartsBond(c byte) bondQuery {
	switch c {
	case '-', '/', '\\':
		return bondQuerySingle
	case '=':
		return bondQueryDouble
	case '#':
		return bondQueryTriple
	case ':':
		return bondQueryAromatic
	default:
		return bondQueryAny
	}
}

func (p *smartsParser) addBond(i, j int, kind bondQuery) {
	bi := len(p.q.bonds)
	p.q.bonds = append(p.q.bonds, QueryBond{Begin: i, End: j, kind: kind})
	p.q.adj[i] = append(p.q.adj[i], bi)
	p.q.adj[j] = append(p.q.adj[j], bi)
}

func (p *smartsParser) addAtom(qa *QueryAtom) error {
	idx := len(p.q.atoms)
	p.q.atoms = append(p.q.atoms, qa)
	p.q.adj = append(p.q.adj, nil)
	if p.prev >= 0 {
		kind := bondQueryDefault
		if p.bondSet {
			kind = p.bond
		}
		p.addBond(p.prev, idx, kind)
	} else if p.bondSet {
		return p.fail("bond symbol without a preceding atom")
	}
	p.bondSet = false
	p.prev = idx
	return nil
}

func (p *smartsParser) parseRing() error {
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
		kind := bondQueryDefault
		if open.set {
			kind = open.kind
		}
		if p.bondSet {
			kind = p.bond
		}
		p.addBond(open.atom, p.prev, kind)
	} else {
		p.rings[n] = smartsRing{atom: p.prev, kind: p.bond, set: p.bondSet}
	}
	p.bondSet = false
	return nil
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// parseSMARTSBare parses an atom outside brackets and returns the consumed
// length.
func parseSMARTSBare(s string) (*QueryAtom, int, error) {
	switch s[0] {
	case '*':
		return &QueryAtom{}, 1, nil
	case 'a':
		return &QueryAtom{alternatives: [][]atomPrimitive{{{aromatic: boolPtr(true)}}}}, 1, nil
	case 'A':
		return &QueryAtom{alternatives: [][]atomPrimitive{{{aromatic: boolPtr(false)}}}}, 1, nil
	}
	if len(s) >= 2 && (s[:2] == "Cl" || s[:2] == "Br") {
		return elementQuery(s[:2], false), 2, nil
	}
	one := s[:1]
	if organicSubset[one] {
		return elementQuery(one, false), 1, nil
	}
	if sym, ok := aromaticSymbols[one]; ok {
		return elementQuery(sym, true), 1, nil
	}
	return nil, 0, errors.Newf(errors.ErrCodeInvalidSMARTS, "unexpected character %q", s[0])
}

func elementQuery(sym string, aromatic bool) *QueryAtom {
	e, _ := lookupElement(sym)
	return &QueryAtom{
		alternatives: [][]atomPrimitive{{{atomicNum: intPtr(e.Number), aromatic: boolPtr(aromatic)}}},
		element:      sym,
		aromatic:     aromatic,
	}
}

// parseSMARTSBracket parses "[...]" content: ',' separates alternatives,
// '&' and ';' (or adjacency) join primitives, ':n' at the end is the map
// number.
func parseSMARTSBracket(body string) (*QueryAtom, error) {
	qa := &QueryAtom{}
	if k := strings.LastIndexByte(body, ':'); k >= 0 {
		n, err := strconv.Atoi(body[k+1:])
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeInvalidSMARTS, "bad atom map in [%s]", body)
		}
		qa.MapNum = n
		body = body[:k]
	}
	if body == "" {
		return nil, errors.New(errors.ErrCodeInvalidSMARTS, "empty bracket atom")
	}
	elements := map[string]bool{}
	for _, alt := range strings.Split(body, ",") {
		prims, err := parsePrimitives(alt)
		if err != nil {
			return nil, err
		}
		qa.alternatives = append(qa.alternatives, prims)
		for _, p := range prims {
			if p.negate {
				continue
			}
			if p.atomicNum != nil {
				if e, ok := elementsByNumber[*p.atomicNum]; ok {
					elements[e.Symbol] = true
				}
				if p.aromatic != nil {
					qa.aromatic = *p.aromatic
				}
			}
			if p.charge != nil {
				qa.charge = p.charge
			}
			if p.hCount != nil {
				qa.hCount = p.hCount
			}
		}
	}
	if len(elements) == 1 && len(qa.alternatives) == 1 {
		for sym := range elements {
			qa.element = sym
		}
	}
	return qa, nil
}

func parsePrimitives(s string) ([]atomPrimitive, error) {
	var out []atomPrimitive
	i := 0
	first := true
	for i < len(s) {
		c := s[i]
		if c == '&' || c == ';' {
			i++
			continue
		}
		var p atomPrimitive
		if c == '!' {
			p.negate = true
			i++
			if i >= len(s) {
				return nil, errors.New(errors.ErrCodeInvalidSMARTS, "'!' without primitive")
			}
			c = s[i]
		}
		switch {
		case c == '*':
			i++
		case c == '#':
			j := i + 1
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			if j == i+1 {
				return nil, errors.New(errors.ErrCodeInvalidSMARTS, "'#' requires an atomic number")
			}
			n, _ := strconv.Atoi(s[i+1 : j])
			p.atomicNum = intPtr(n)
			i = j
		case c == 'a':
			p.aromatic = boolPtr(true)
			i++
		case c == 'A' && (i+1 >= len(s) || !unicode.IsLower(rune(s[i+1]))):
			p.aromatic = boolPtr(false)
			i++
		case c == 'H' && !(first && (i+1 >= len(s) || !isDigit(s[i+1])) && onlyHydrogen(s[i:])):
			j := i + 1
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			h := 1
			if j > i+1 {
				h, _ = strconv.Atoi(s[i+1 : j])
			}
			p.hCount = intPtr(h)
			i = j
		case c == '+' || c == '-':
			sign := 1
			if c == '-' {
				sign = -1
			}
			j := i + 1
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			n := 1
			if j > i+1 {
				n, _ = strconv.Atoi(s[i+1 : j])
			} else {
				for j < len(s) && s[j] == c {
					n++
					j++
				}
			}
			p.charge = intPtr(sign * n)
			i = j
		case unicode.IsUpper(rune(c)):
			sym := s[i : i+1]
			if i+1 < len(s) && unicode.IsLower(rune(s[i+1])) {
				if _, ok := lookupElement(s[i : i+2]); ok {
					sym = s[i : i+2]
				}
			}
			e, ok := lookupElement(sym)
			if !ok {
				return nil, errors.Newf(errors.ErrCodeInvalidSMARTS, "unknown element %q", sym)
			}
			p.atomicNum = intPtr(e.Number)
			p.aromatic = boolPtr(false)
			i += len(sym)
		case unicode.IsLower(rune(c)):
			matched := false
			for _, n := range []int{2, 1} {
				if i+n <= len(s) {
					if sym, ok := aromaticSymbols[s[i:i+n]]; ok {
						p.atomicNum = intPtr(elementsBySymbol[sym].Number)
						p.aromatic = boolPtr(true)
						i += n
						matched = true
						break
					}
				}
			}
			if !matched {
				return nil, errors.Newf(errors.ErrCodeInvalidSMARTS, "unknown primitive at %q", s[i:])
			}
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidSMARTS, "unsupported primitive at %q", s[i:])
		}
		first = false
		out = append(out, p)
	}
	return out, nil
}

// onlyHydrogen reports whether a leading "H" names the element: "[H]" or
// "[H+]" style atoms.
func onlyHydrogen(s string) bool {
	rest := strings.TrimLeft(s[1:], "+-0123456789")
	return rest == "" && !strings.ContainsAny(s[1:], "0123456789") || s == "H"
}

// MatchOptions controls SubstructMatches.
type MatchOptions struct {
	// Uniquify drops matches that cover the same atom set as an earlier one.
	Uniquify bool
	// MaxMatches stops the search once reached; 0 means unlimited.
	MaxMatches int
}

// SubstructMatches returns every embedding of q in m, uniquified by atom
// set.  Each match lists the molecule atom for query atom i at position i.
// Matches are produced in a deterministic order.
func (m *Mol) SubstructMatches(q *Query) [][]int {
	return m.SubstructMatchesWithOptions(q, MatchOptions{Uniquify: true})
}

// SubstructMatch returns the first match, or nil.
func (m *Mol) SubstructMatch(q *Query) []int {
	res := m.SubstructMatchesWithOptions(q, MatchOptions{Uniquify: true, MaxMatches: 1})
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

// HasSubstructMatch reports whether q occurs in m.
func (m *Mol) HasSubstructMatch(q *Query) bool {
	return m.SubstructMatch(q) != nil
}

type matcher struct {
	m       *Mol
	q       *Query
	opts    MatchOptions
	order   []int
	anchor  []int
	mapping []int
	used    []bool
	seen    map[string]bool
	out     [][]int
}

// SubstructMatchesWithOptions is SubstructMatches with explicit options.
func (m *Mol) SubstructMatchesWithOptions(q *Query, opts MatchOptions) [][]int {
	if q == nil || len(q.atoms) == 0 || len(m.atoms) == 0 {
		return nil
	}
	mt := &matcher{
		m:       m,
		q:       q,
		opts:    opts,
		mapping: make([]int, len(q.atoms)),
		used:    make([]bool, len(m.atoms)),
		seen:    make(map[string]bool),
	}
	for i := range mt.mapping {
		mt.mapping[i] = -1
	}
	mt.plan()
	mt.search(0)
	return mt.out
}

// plan orders query atoms so that every atom after a component's root is
// adjacent to an earlier one.
func (mt *matcher) plan() {
	n := len(mt.q.atoms)
	placed := make([]bool, n)
	mt.anchor = make([]int, 0, n)
	for root := 0; root < n; root++ {
		if placed[root] {
			continue
		}
		queue := []int{root}
		placed[root] = true
		mt.order = append(mt.order, root)
		mt.anchor = append(mt.anchor, -1)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, bi := range mt.q.adj[cur] {
				b := mt.q.bonds[bi]
				nb := b.End
				if nb == cur {
					nb = b.Begin
				}
				if placed[nb] {
					continue
				}
				placed[nb] = true
				mt.order = append(mt.order, nb)
				mt.anchor = append(mt.anchor, cur)
				queue = append(queue, nb)
			}
		}
	}
}

func (mt *matcher) done() bool {
	return mt.opts.MaxMatches > 0 && len(mt.out) >= mt.opts.MaxMatches
}

func (mt *matcher) search(k int) {
	if mt.done() {
		return
	}
	if k == len(mt.order) {
		mt.record()
		return
	}
	qa := mt.order[k]
	var candidates []int
	if anchor := mt.anchor[k]; anchor >= 0 {
		candidates = mt.m.Neighbors(mt.mapping[anchor])
	} else {
		candidates = make([]int, len(mt.m.atoms))
		for i := range candidates {
			candidates[i] = i
		}
	}
	for _, c := range candidates {
		if mt.used[c] || !mt.q.atoms[qa].matches(mt.m, c) || !mt.bondsConsistent(qa, c) {
			continue
		}
		mt.mapping[qa] = c
		mt.used[c] = true
		mt.search(k + 1)
		mt.used[c] = false
		mt.mapping[qa] = -1
		if mt.done() {
			return
		}
	}
}

// bondsConsistent checks every query bond from qa to an already mapped atom.
func (mt *matcher) bondsConsistent(qa, c int) bool {
	for _, bi := range mt.q.adj[qa] {
		b := mt.q.bonds[bi]
		other := b.End
		if other == qa {
			other = b.Begin
		}
		mo := mt.mapping[other]
		if mo < 0 {
			continue
		}
		mb := mt.m.BondBetween(c, mo)
		if mb == nil || !b.kind.matches(mb.Order) {
			return false
		}
	}
	return true
}

func (mt *matcher) record() {
	match := append([]int(nil), mt.mapping...)
	if mt.opts.Uniquify {
		key := append([]int(nil), match...)
		sort.Ints(key)
		var sb strings.Builder
		for _, v := range key {
			sb.WriteString(strconv.Itoa(v))
			sb.WriteByte(',')
		}
		if mt.seen[sb.String()] {
			return
		}
		mt.seen[sb.String()] = true
	}
	mt.out = append(mt.out, match)
}
