package stereo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerlab/m2pcalc/internal/domain/molecule"
	"github.com/polymerlab/m2pcalc/internal/testutil"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

const (
	polystyrene       = "[Xe]CC(c1ccccc1)CC(c1ccccc1)CC(c1ccccc1)[Pb]"
	taggedPolystyrene = "[Xe]C[C@H](c1ccccc1)C[C@@H](c1ccccc1)C[C@H](c1ccccc1)[Pb]"
)

func newAssigner(t *testing.T, opts Options) *Assigner {
	t.Helper()
	a, err := NewAssigner(opts, testutil.NewMockLogger())
	require.NoError(t, err)
	return a
}

func targets(t *testing.T, s string) []Descriptor {
	t.Helper()
	ds, err := ParseTargets(s)
	require.NoError(t, err)
	return ds
}

func TestNewAssigner(t *testing.T) {
	a, err := NewAssigner(Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Options().MaxPasses)
	assert.Equal(t, VinylTermination, a.Options().Termination)

	_, err = NewAssigner(Options{MaxPasses: -1}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = NewAssigner(Options{Termination: "[C:1]"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidReaction))
}

func TestAssign_FirstPassAlreadyCorrect(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	for _, want := range []string{"R", "S"} {
		m := molecule.MustParseSMILES("NC(C(=O)O)C")
		_, rep, err := a.Assign(m, targets(t, want), "N", "[CH3]")
		require.NoError(t, err)

		assert.Equal(t, []int{0, 1, 5}, rep.Backbone)
		assert.Equal(t, []int{1}, rep.Centers)
		assert.Empty(t, rep.FirstPassMismatches, want)
		assert.Empty(t, rep.Residual)
		assert.Equal(t, 0, rep.FlipCount())
		assert.Equal(t, want, m.Atom(1).CIP)
	}
}

func TestAssign_CorrectsFirstPassMismatch(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	m := molecule.MustParseSMILES("NC(C)C(=O)O")

	_, rep, err := a.Assign(m, targets(t, "R"), "N", "[CH3]")
	require.NoError(t, err)

	// R maps to CCW, which reads as S in this neighbour order.
	assert.Equal(t, []int{1}, rep.FirstPassMismatches)
	assert.Equal(t, [][]int{{1}}, rep.Flipped)
	assert.Equal(t, 1, rep.Passes)
	assert.Empty(t, rep.Residual)
	assert.True(t, rep.Converged())
	assert.Equal(t, molecule.ChiralCW, m.Atom(1).ChiralTag)
	assert.Equal(t, "R", m.Atom(1).CIP)
}

func TestAssign_Polymer(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	m := molecule.MustParseSMILES(polystyrene)

	smiles, rep, err := a.Assign(m, targets(t, "RSR"), "[Xe]", "[Pb]")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10, 18}, rep.Centers)
	assert.Equal(t, map[int]Descriptor{2: "R", 10: "S", 18: "R"}, rep.Specified)
	assert.Equal(t, map[int]string{2: "R", 10: "S", 18: "R"}, m.CIPLabels())
	assert.Empty(t, rep.Residual)
	assert.Equal(t, smiles, rep.SMILES)
	assert.Equal(t, rep.Labels, m.CIPLabels())
}

func TestAssign_Deterministic(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	first, _, err := a.Assign(molecule.MustParseSMILES(polystyrene), targets(t, "RRS"), "[Xe]", "[Pb]")
	require.NoError(t, err)
	second, _, err := a.Assign(molecule.MustParseSMILES(polystyrene), targets(t, "RRS"), "[Xe]", "[Pb]")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssign_EmptyTargetsLeaveTags(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	m := molecule.MustParseSMILES(taggedPolystyrene)
	ref := m.Clone()
	ref.AssignCIPLabels()

	_, rep, err := a.Assign(m, nil, "[Xe]", "[Pb]")
	require.NoError(t, err)
	assert.Equal(t, ref.ChiralTags(), m.ChiralTags())
	assert.Equal(t, ref.CIPLabels(), m.CIPLabels())
	assert.Equal(t, 0, rep.Passes)
	assert.Equal(t, 3, rep.UntargetedCenters)
}

func TestAssign_UntargetedCentersFlipped(t *testing.T) {
	m := molecule.MustParseSMILES(taggedPolystyrene)
	before := m.Atom(18).ChiralTag

	_, rep, err := newAssigner(t, DefaultOptions()).Assign(m, targets(t, "RS"), "[Xe]", "[Pb]")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.UntargetedCenters)
	assert.Contains(t, rep.FirstPassMismatches, 18)
	assert.Contains(t, rep.Flipped[0], 18)
	assert.Equal(t, before.Invert(), m.Atom(18).ChiralTag)
	assert.Equal(t, []int{18}, rep.Residual)
	assert.True(t, rep.Converged())
}

func TestAssign_RestrictToTargets(t *testing.T) {
	m := molecule.MustParseSMILES(taggedPolystyrene)
	before := m.Atom(18).ChiralTag

	opts := DefaultOptions()
	opts.RestrictToTargets = true
	_, rep, err := newAssigner(t, opts).Assign(m, targets(t, "RS"), "[Xe]", "[Pb]")
	require.NoError(t, err)
	assert.Equal(t, before, m.Atom(18).ChiralTag)
	for _, pass := range rep.Flipped {
		assert.NotContains(t, pass, 18)
	}
	assert.Equal(t, "R", m.Atom(2).CIP)
	assert.Equal(t, "S", m.Atom(10).CIP)
}

func TestAssign_MultiPassStopsWhenTargetsMatch(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPasses = 5
	m := molecule.MustParseSMILES(taggedPolystyrene)

	_, rep, err := newAssigner(t, opts).Assign(m, targets(t, "SS"), "[Xe]", "[Pb]")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Passes)
	assert.True(t, rep.Converged())
}

func TestAssign_TargetCountMismatch(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	m := molecule.MustParseSMILES("NC(C)C(=O)O")

	_, rep, err := a.Assign(m, targets(t, "RSS"), "N", "[CH3]")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.IgnoredTargets)
	assert.Equal(t, map[int]Descriptor{1: "R"}, rep.Specified)
	assert.Equal(t, "R", m.Atom(1).CIP)
}

func TestAssign_EndpointErrors(t *testing.T) {
	a := newAssigner(t, DefaultOptions())

	_, _, err := a.Assign(molecule.MustParseSMILES("NC(C)C(=O)O"), targets(t, "R"), "[Xe]", "[CH3]")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEndpointNotFound))

	_, _, err = a.Assign(molecule.MustParseSMILES("NC(C)C(=O)O"), targets(t, "R"), "N", "[Pb]")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEndpointNotFound))

	_, _, err = a.Assign(molecule.MustParseSMILES("NC(C)C(=O)O.[Xe]"), targets(t, "R"), "N", "[Xe]")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBackboneUnavailable))

	_, _, err = a.Assign(molecule.MustParseSMILES("CC"), nil, "[C", "C")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMARTS))
}

func polymer(unit string, n int) string {
	return "[Xe]" + strings.Repeat(unit, n) + "[Pb]"
}

func TestAssign_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		smiles  string
		targets string
	}{
		{"polystyrene x3", polystyrene, "SRS"},
		{"polypropylene x6", polymer("CC(C)", 6), "RSRRSS"},
		{"polystyrene x6", polymer("CC(c1ccccc1)", 6), "RRSRSS"},
		{"pmma x6", polymer("CC(C)(C(=O)OC)", 6), "SRSSRR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := molecule.MustParseSMILES(tt.smiles)
			smiles, rep, err := newAssigner(t, DefaultOptions()).Assign(m, targets(t, tt.targets), "[Xe]", "[Pb]")
			require.NoError(t, err)
			require.Len(t, rep.Centers, len(tt.targets))
			assert.Empty(t, rep.Residual)

			labels := m.CIPLabels()
			for i, c := range rep.Centers {
				assert.Equal(t, string(tt.targets[i]), labels[c], "center %d", c)
			}

			order := m.SMILESAtomOutputOrder()
			re, err := molecule.ParseSMILES(smiles)
			require.NoError(t, err)
			re.AssignCIPLabels()
			got := map[int]string{}
			for k, label := range re.CIPLabels() {
				got[order[k]] = label
			}
			assert.Equal(t, labels, got)
		})
	}
}

func TestAssignVinyl(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	m := molecule.MustParseSMILES(polystyrene)

	p, rep, err := a.AssignVinyl(m, targets(t, "RSR"))
	require.NoError(t, err)
	assert.Equal(t, "C24H26", p.Formula())
	assert.Equal(t, []int{2, 10}, rep.Centers)
	assert.Equal(t, 1, rep.LostCenters)
	assert.Equal(t, map[int]Descriptor{2: "R", 10: "S"}, rep.Specified)
	assert.Equal(t, map[int]string{2: "R", 10: "S"}, p.CIPLabels())
	assert.Empty(t, rep.Residual)
	assert.NotEmpty(t, rep.SMILES)

	// the capped input is untouched
	assert.Equal(t, 26, m.NumAtoms())
	assert.Empty(t, m.ChiralTags())
}

func TestAssignVinyl_WithoutCaps(t *testing.T) {
	a := newAssigner(t, DefaultOptions())
	_, _, err := a.AssignVinyl(molecule.MustParseSMILES("CC(c1ccccc1)CC"), targets(t, "R"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTerminationFailed))
}
