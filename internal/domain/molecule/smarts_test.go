package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerlab/m2pcalc/pkg/errors"
)

func TestParseSMARTS(t *testing.T) {
	q, err := ParseSMARTS("[Pb][C:1]")
	require.NoError(t, err)
	assert.Equal(t, 2, q.NumAtoms())
	assert.Equal(t, 0, q.MapNum(0))
	assert.Equal(t, 1, q.MapNum(1))
	assert.Equal(t, "[Pb][C:1]", q.String())

	for _, bad := range []string{"", "[C", "C(", "C)", "C1CC", "[Qq]", "C==C", "[#]"} {
		_, err := ParseSMARTS(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMARTS), bad)
	}
}

func TestSubstructMatches(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		smarts string
		want   [][]int
	}{
		{"single placeholder", "[Xe]CC[Pb]", "[Xe]", [][]int{{0}}},
		{"no match", "CCO", "[Xe]", nil},
		{"double bond", "CC(=O)O", "C=O", [][]int{{1, 2}}},
		{"uniquified", "CCC", "CC", [][]int{{0, 1}, {1, 2}}},
		{"or list", "CN", "[C,N]", [][]int{{0}, {1}}},
		{"atomic number", "CN", "[#7]", [][]int{{1}}},
		{"aromatic only", "c1ccccc1C", "[c;H0]", [][]int{{5}}},
		{"aliphatic carbon", "c1ccccc1C", "[C]", [][]int{{6}}},
		{"charge", "C[NH3+]", "[N+]", [][]int{{1}}},
		{"h count", "CCO", "[CH3]", [][]int{{0}}},
		{"any bond", "C=CC", "C~C", [][]int{{0, 1}, {1, 2}}},
		{"negation", "CNO", "[!C]", [][]int{{1}, {2}}},
		{"ring closure", "C1CC1C", "C1CC1", [][]int{{0, 1, 2}}},
		{"disconnected components", "[Pb]CCC[Xe]", "[Pb]C.C[Xe]", [][]int{{0, 1, 3, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustParseSMILES(tt.smiles)
			q := MustParseSMARTS(tt.smarts)
			assert.Equal(t, tt.want, m.SubstructMatches(q))
		})
	}
}

func TestSubstructMatch_First(t *testing.T) {
	m := MustParseSMILES("[Xe]CC(C)CC(C)[Pb]")
	assert.Equal(t, []int{0}, m.SubstructMatch(MustParseSMARTS("[Xe]")))
	assert.Equal(t, []int{7}, m.SubstructMatch(MustParseSMARTS("[Pb]")))
	assert.Nil(t, m.SubstructMatch(MustParseSMARTS("[Au]")))
	assert.True(t, m.HasSubstructMatch(MustParseSMARTS("[Pb]C")))
}

func TestSubstructMatches_NotUniquified(t *testing.T) {
	m := MustParseSMILES("CCC")
	all := m.SubstructMatchesWithOptions(MustParseSMARTS("CC"), MatchOptions{})
	assert.Len(t, all, 4)
	limited := m.SubstructMatchesWithOptions(MustParseSMARTS("CC"), MatchOptions{MaxMatches: 1})
	assert.Len(t, limited, 1)
}
