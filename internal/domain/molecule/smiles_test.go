package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

func TestParseSMILES_Basic(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumAtoms())
	assert.Equal(t, 2, m.NumBonds())
	assert.Equal(t, 3, m.Atom(0).TotalHs())
	assert.Equal(t, 2, m.Atom(1).TotalHs())
	assert.Equal(t, 1, m.Atom(2).TotalHs())
	assert.Equal(t, "C2H6O", m.Formula())
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m, err := ParseSMILES("[13CH3][NH3+].[O-]C(=O)C.[Xe]")
	require.NoError(t, err)

	c := m.Atom(0)
	assert.Equal(t, 13, c.Isotope)
	assert.Equal(t, 3, c.TotalHs())
	assert.True(t, c.NoImplicit)

	n := m.Atom(1)
	assert.Equal(t, 1, n.Charge)
	assert.Equal(t, 3, n.TotalHs())

	assert.Equal(t, -1, m.Atom(2).Charge)
	xe := m.Atom(m.NumAtoms() - 1)
	assert.Equal(t, "Xe", xe.Symbol)
	assert.Equal(t, 54, xe.AtomicNum)
	assert.Equal(t, 0, xe.TotalHs())
}

func TestParseSMILES_MapNumbersAndWildcard(t *testing.T) {
	m, err := ParseSMILES("[CH3:1]*")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Atom(0).MapNum)
	assert.Equal(t, "*", m.Atom(1).Symbol)
	assert.Equal(t, 0, m.Atom(1).AtomicNum)
}

func TestParseSMILES_Rings(t *testing.T) {
	m, err := ParseSMILES("c1ccccc1")
	require.NoError(t, err)
	assert.Equal(t, 6, m.NumBonds())
	for i := 0; i < 6; i++ {
		assert.Equal(t, 1, m.Atom(i).TotalHs(), "atom %d", i)
		assert.True(t, m.IsInRing(i))
	}

	m, err = ParseSMILES("C1CC%10CC1CC%10")
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumBonds())
}

func TestParseSMILES_Errors(t *testing.T) {
	cases := []string{
		"",
		"C(",
		"C)",
		"c1ccccc",
		"[Xx]",
		"C==C",
		"C=",
		"(C)",
		"[C",
		"C1C1",
	}
	for _, s := range cases {
		_, err := ParseSMILES(s)
		require.Error(t, err, s)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES), "%q: %v", s, err)
	}
}

func TestParseSMILES_SanitizeFailure(t *testing.T) {
	_, err := ParseSMILES("C(C)(C)(C)(C)C")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeSanitizeFailed))

	_, err = ParseSMILES("cc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeSanitizeFailed))

	m, err := ParseSMILESWithOptions("C(C)(C)(C)(C)C", ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 6, m.NumAtoms())
}

func TestParseSMILES_ChiralityNormalised(t *testing.T) {
	// The same L-alanine written from two different starting atoms.
	a := MustParseSMILES("N[C@@H](C)C(=O)O")
	b := MustParseSMILES("C[C@H](N)C(=O)O")
	assert.Equal(t, ChiralCCW, a.Atom(1).ChiralTag)
	assert.Equal(t, ChiralCW, b.Atom(1).ChiralTag)

	a.AssignCIPLabels()
	b.AssignCIPLabels()
	assert.Equal(t, "S", a.Atom(1).CIP)
	assert.Equal(t, "S", b.Atom(1).CIP)
}

func TestSMILES_Canonical(t *testing.T) {
	assert.Equal(t, "CCO", MustParseSMILES("OCC").SMILES())
	assert.Equal(t, "CCO", MustParseSMILES("CCO").SMILES())
	assert.Equal(t, "c1ccccc1", MustParseSMILES("c1ccccc1").SMILES())
	assert.Equal(t, "C[C@@H](C(=O)O)N", MustParseSMILES("N[C@@H](C)C(=O)O").SMILES())
	assert.Equal(t,
		MustParseSMILES("N[C@@H](C)C(=O)O").SMILES(),
		MustParseSMILES("C[C@H](N)C(=O)O").SMILES())
}

func TestSMILES_BracketsWhenNeeded(t *testing.T) {
	out := MustParseSMILES("[NH4+]").SMILES()
	assert.Equal(t, "[NH4+]", out)

	out = MustParseSMILES("CC[Xe]").SMILES()
	assert.Contains(t, out, "[Xe]")

	out = MustParseSMILES("c1cc[nH]c1").SMILES()
	assert.Contains(t, out, "[nH]")
}

func TestSMILES_Fragments(t *testing.T) {
	out := MustParseSMILES("O.CC").SMILES()
	assert.Equal(t, "CC.O", out)
}

func TestSMILES_OutputOrder(t *testing.T) {
	m := MustParseSMILES("OCC")
	m.SMILES()
	assert.Equal(t, []int{2, 1, 0}, m.SMILESAtomOutputOrder())
}

func TestSMILES_RoundTripPreservesLabels(t *testing.T) {
	inputs := []string{
		"N[C@@H](C)C(=O)O",
		"C[C@H](O)C[C@@H](C)Cl",
		"C[C@@H]1CCC[C@H](O)C1",
		"[Xe]C[C@H](c1ccccc1)C[C@@H](c1ccccc1)C[C@H](c1ccccc1)[Pb]",
	}
	for _, s := range inputs {
		m := MustParseSMILES(s)
		m.AssignCIPLabels()
		before := m.CIPLabels()
		require.NotEmpty(t, before, s)

		out := m.SMILES()
		order := m.SMILESAtomOutputOrder()
		re, err := ParseSMILES(out)
		require.NoError(t, err, out)
		re.AssignCIPLabels()

		after := map[int]string{}
		for k, label := range re.CIPLabels() {
			after[order[k]] = label
		}
		assert.Equal(t, before, after, "%s -> %s", s, out)
	}
}

func TestPermutationParity(t *testing.T) {
	odd, ok := permutationParity([]int{0, 1, 2, 3}, []int{0, 1, 2, 3})
	assert.True(t, ok)
	assert.False(t, odd)

	odd, ok = permutationParity([]int{0, 1, 2, 3}, []int{1, 0, 2, 3})
	assert.True(t, ok)
	assert.True(t, odd)

	odd, ok = permutationParity([]int{-1, 0, 2, 3}, []int{-1, 2, 3, 0})
	assert.True(t, ok)
	assert.False(t, odd)

	_, ok = permutationParity([]int{0, 1, 2}, []int{0, 1, 3})
	assert.False(t, ok)
	_, ok = permutationParity([]int{0, 1}, []int{0, 1, 2})
	assert.False(t, ok)
}

func TestChiralTag_Invert(t *testing.T) {
	assert.Equal(t, ChiralCCW, ChiralCW.Invert())
	assert.Equal(t, ChiralCW, ChiralCCW.Invert())
	assert.Equal(t, ChiralUnspecified, ChiralUnspecified.Invert())
	assert.Equal(t, "CHI_TETRAHEDRAL_CW", ChiralCW.String())
}
