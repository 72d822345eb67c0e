package molecule

// element describes the periodic-table facts the toolkit needs: atomic
// number, standard mass (CIP rule 2), and allowed neutral valences.  A nil
// valence list means the element is not valence-checked (metals, noble gases
// used as m2p placeholders).
type element struct {
	Symbol   string
	Number   int
	Mass     float64
	Valences []int
}

var elements = []element{
	{"*", 0, 0, nil},
	{"H", 1, 1.008, []int{1}},
	{"He", 2, 4.003, nil},
	{"Li", 3, 6.94, nil},
	{"Be", 4, 9.012, nil},
	{"B", 5, 10.81, []int{3}},
	{"C", 6, 12.011, []int{4}},
	{"N", 7, 14.007, []int{3}},
	{"O", 8, 15.999, []int{2}},
	{"F", 9, 18.998, []int{1}},
	{"Ne", 10, 20.180, nil},
	{"Na", 11, 22.990, nil},
	{"Mg", 12, 24.305, nil},
	{"Al", 13, 26.982, nil},
	{"Si", 14, 28.085, []int{4}},
	{"P", 15, 30.974, []int{3, 5}},
	{"S", 16, 32.06, []int{2, 4, 6}},
	{"Cl", 17, 35.45, []int{1}},
	{"Ar", 18, 39.948, nil},
	{"K", 19, 39.098, nil},
	{"Ca", 20, 40.078, nil},
	{"Ti", 22, 47.867, nil},
	{"Cr", 24, 51.996, nil},
	{"Mn", 25, 54.938, nil},
	{"Fe", 26, 55.845, nil},
	{"Co", 27, 58.933, nil},
	{"Ni", 28, 58.693, nil},
	{"Cu", 29, 63.546, nil},
	{"Zn", 30, 65.38, nil},
	{"Ga", 31, 69.723, nil},
	{"Ge", 32, 72.630, []int{4}},
	{"As", 33, 74.922, []int{3, 5}},
	{"Se", 34, 78.971, []int{2, 4, 6}},
	{"Br", 35, 79.904, []int{1}},
	{"Kr", 36, 83.798, nil},
	{"Rb", 37, 85.468, nil},
	{"Sr", 38, 87.62, nil},
	{"Zr", 40, 91.224, nil},
	{"Mo", 42, 95.95, nil},
	{"Ru", 44, 101.07, nil},
	{"Rh", 45, 102.91, nil},
	{"Pd", 46, 106.42, nil},
	{"Ag", 47, 107.87, nil},
	{"Cd", 48, 112.41, nil},
	{"In", 49, 114.82, nil},
	{"Sn", 50, 118.71, nil},
	{"Sb", 51, 121.76, []int{3, 5}},
	{"Te", 52, 127.60, []int{2, 4, 6}},
	{"I", 53, 126.90, []int{1, 3, 5}},
	{"Xe", 54, 131.29, nil},
	{"Cs", 55, 132.91, nil},
	{"Ba", 56, 137.33, nil},
	{"W", 74, 183.84, nil},
	{"Pt", 78, 195.08, nil},
	{"Au", 79, 196.97, nil},
	{"Hg", 80, 200.59, nil},
	{"Tl", 81, 204.38, nil},
	{"Pb", 82, 207.2, nil},
	{"Bi", 83, 208.98, nil},
	{"Rn", 86, 222, nil},
}

var (
	elementsBySymbol = map[string]*element{}
	elementsByNumber = map[int]*element{}
)

func init() {
	for i := range elements {
		e := &elements[i]
		elementsBySymbol[e.Symbol] = e
		elementsByNumber[e.Number] = e
	}
}

// organicSubset lists elements that may be written without brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true, "*": true,
}

// aromaticSymbols maps lowercase aromatic spellings to element symbols.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As",
}

func lookupElement(symbol string) (*element, bool) {
	e, ok := elementsBySymbol[symbol]
	return e, ok
}

// allowedValences shifts the neutral valence list of z by formal charge the
// way isoelectronic species behave: N+ and O+ gain a bond, C+ and C- lose
// one, B- gains one.  nil means unrestricted.
func allowedValences(z, charge int) []int {
	e, ok := elementsByNumber[z]
	if !ok || e.Valences == nil {
		return nil
	}
	if charge == 0 {
		return e.Valences
	}
	out := make([]int, 0, len(e.Valences))
	for _, v := range e.Valences {
		var nv int
		switch {
		case z == 6 || z == 14 || z == 32:
			nv = v - abs(charge)
		case z == 5:
			nv = v - charge
		default:
			nv = v + charge
		}
		if nv >= 0 {
			out = append(out, nv)
		}
	}
	return out
}

func standardMass(z int) float64 {
	if e, ok := elementsByNumber[z]; ok {
		return e.Mass
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
