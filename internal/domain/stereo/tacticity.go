package stereo

import (
	"math"
	"math/rand"
	"strings"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// DefaultMaxUniqueAttempts bounds how often a duplicate diad sequence is
// redrawn before it is accepted.
const DefaultMaxUniqueAttempts = 1000

// TacticityGenerator draws descriptor sequences with a given meso diad
// fraction.  It is not safe for concurrent use; the rng is owned.
type TacticityGenerator struct {
	rng               *rand.Rand
	maxUniqueAttempts int
}

// NewTacticityGenerator returns a generator over rng.  maxUniqueAttempts <= 0
// selects DefaultMaxUniqueAttempts.
func NewTacticityGenerator(rng *rand.Rand, maxUniqueAttempts int) *TacticityGenerator {
	if maxUniqueAttempts <= 0 {
		maxUniqueAttempts = DefaultMaxUniqueAttempts
	}
	return &TacticityGenerator{rng: rng, maxUniqueAttempts: maxUniqueAttempts}
}

// GenerateCIPAssignments builds n descriptor sequences of length dp using
// the default uniqueness bound.
func GenerateCIPAssignments(rng *rand.Rand, n int, pm float64, dp int) ([][]Descriptor, error) {
	return NewTacticityGenerator(rng, 0).Generate(n, pm, dp)
}

// Generate builds n descriptor sequences of length dp whose expected meso
// diad fraction is pm.  Diad sequences are kept unique while a fresh one can
// be found within the attempt bound.
func (g *TacticityGenerator) Generate(n int, pm float64, dp int) ([][]Descriptor, error) {
	if n < 1 {
		return nil, errors.Newf(errors.ErrCodeTacticityInvalidInput, "number of structures must be at least 1, got %d", n)
	}
	if dp < 1 {
		return nil, errors.Newf(errors.ErrCodeTacticityInvalidInput, "degree of polymerization must be at least 1, got %d", dp)
	}
	if math.IsNaN(pm) || pm < 0 || pm > 1 {
		return nil, errors.Newf(errors.ErrCodeTacticityInvalidInput, "meso diad fraction must lie in [0,1], got %g", pm)
	}

	diads := g.diadSequences(n, pm, dp-1)
	out := make([][]Descriptor, len(diads))
	for i, seq := range diads {
		out[i] = g.toDescriptors(seq)
	}
	return out, nil
}

// diadSequences draws n strings over {0,1}; '1' is a meso diad.
func (g *TacticityGenerator) diadSequences(n int, pm float64, nDiads int) []string {
	exact := float64(nDiads) * pm
	lower, upper := int(math.Floor(exact)), int(math.Ceil(exact))
	pools := [2][]byte{diadPool(lower, nDiads), diadPool(upper, nDiads)}
	// P(upper) makes the expected meso count equal nDiads*pm.
	upperWeight := exact - float64(lower)

	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	attempts := 0
	for len(out) < n {
		pool := pools[0]
		if upper != lower && g.rng.Float64() < upperWeight {
			pool = pools[1]
		}
		perm := g.rng.Perm(len(pool))
		buf := make([]byte, len(pool))
		for i, j := range perm {
			buf[i] = pool[j]
		}
		s := string(buf)
		if !seen[s] || attempts >= g.maxUniqueAttempts {
			seen[s] = true
			out = append(out, s)
			attempts = 0
		}
		attempts++
	}
	return out
}

func diadPool(meso, total int) []byte {
	return []byte(strings.Repeat("1", meso) + strings.Repeat("0", total-meso))
}

// toDescriptors starts from a random descriptor; a racemo diad switches
// R and S, a meso diad keeps it.
func (g *TacticityGenerator) toDescriptors(diads string) []Descriptor {
	pair := [2]Descriptor{DescriptorR, DescriptorS}
	cur := g.rng.Intn(2)
	out := make([]Descriptor, 0, len(diads)+1)
	out = append(out, pair[cur])
	for i := 0; i < len(diads); i++ {
		if diads[i] == '0' {
			cur ^= 1
		}
		out = append(out, pair[cur])
	}
	return out
}

// MesoFraction returns the fraction of adjacent equal descriptors in seq.
func MesoFraction(seq []Descriptor) float64 {
	if len(seq) < 2 {
		return 0
	}
	meso := 0
	for i := 1; i < len(seq); i++ {
		if seq[i] == seq[i-1] {
			meso++
		}
	}
	return float64(meso) / float64(len(seq)-1)
}
