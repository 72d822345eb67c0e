package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIP_AlanineEnantiomers(t *testing.T) {
	l := MustParseSMILES("N[C@@H](C)C(=O)O")
	d := MustParseSMILES("N[C@H](C)C(=O)O")

	assert.Equal(t, []ChiralCenter{{Atom: 1, Label: "S"}}, l.FindChiralCenters(ChiralCenterOptions{}))
	assert.Equal(t, []ChiralCenter{{Atom: 1, Label: "R"}}, d.FindChiralCenters(ChiralCenterOptions{}))
}

func TestCIP_PrioritiesUseDuplicatesForDoubleBonds(t *testing.T) {
	// C(=O)O outranks CH2OH: {O,O,O} beats {O,H,H}.
	m := MustParseSMILES("OC[C@@H](N)C(=O)O")
	prio, ok := m.cipPriorities(2)
	require.True(t, ok)
	assert.Equal(t, []int{3, 4, 1, -1}, prio)
}

func TestCIP_IsotopeBreaksTie(t *testing.T) {
	m := MustParseSMILES("[2H][C@@H](O)C")
	assert.True(t, m.IsStereoCenter(1))

	plain := MustParseSMILES("[H]C(O)C")
	assert.False(t, plain.IsStereoCenter(1))
}

func TestCIP_NotACenter(t *testing.T) {
	m := MustParseSMILES("CC(C)O")
	assert.False(t, m.IsStereoCenter(1))
	assert.Empty(t, m.FindChiralCenters(ChiralCenterOptions{IncludeUnassigned: true}))

	// sp2 carbon
	m = MustParseSMILES("CC(=O)O")
	assert.False(t, m.IsStereoCenter(1))
}

func TestFindChiralCenters_Unassigned(t *testing.T) {
	m := MustParseSMILES("CC(O)CC")
	assert.Empty(t, m.FindChiralCenters(ChiralCenterOptions{}))
	assert.Equal(t,
		[]ChiralCenter{{Atom: 1, Label: "?"}},
		m.FindChiralCenters(ChiralCenterOptions{IncludeUnassigned: true}))
}

func TestAssignCIPLabels_TracksTagChanges(t *testing.T) {
	m := MustParseSMILES("N[C@@H](C)C(=O)O")
	m.AssignCIPLabels()
	assert.Equal(t, map[int]string{1: "S"}, m.CIPLabels())

	require.NoError(t, m.SetChiralTag(1, m.Atom(1).ChiralTag.Invert()))
	m.AssignCIPLabels()
	assert.Equal(t, map[int]string{1: "R"}, m.CIPLabels())

	require.NoError(t, m.SetChiralTag(1, ChiralUnspecified))
	m.AssignCIPLabels()
	assert.Empty(t, m.CIPLabels())

	assert.Error(t, m.SetChiralTag(42, ChiralCW))
}

func TestCIP_PolymerCentersAreDistinct(t *testing.T) {
	m := MustParseSMILES("[Xe]CC(c1ccccc1)CC(c1ccccc1)CC(c1ccccc1)[Pb]")
	centers := m.FindChiralCenters(ChiralCenterOptions{IncludeUnassigned: true})
	var atoms []int
	for _, c := range centers {
		atoms = append(atoms, c.Atom)
		assert.Equal(t, "?", c.Label)
	}
	assert.Equal(t, []int{2, 10, 18}, atoms)
}

func TestCIP_BranchWritingOrderDoesNotMatter(t *testing.T) {
	// Both strings describe the same molecule and configuration; only the
	// methyl and hydroxymethyl of the first branch are swapped.
	for _, smiles := range []string{
		"F[C@H](C(C)CO)C(CC)CC",
		"F[C@H](C(CO)C)C(CC)CC",
	} {
		m := MustParseSMILES(smiles)
		prio, ok := m.cipPriorities(1)
		require.True(t, ok, smiles)
		assert.Equal(t, []int{0, 2, 6, -1}, prio, smiles)
		assert.Equal(t, []ChiralCenter{{Atom: 1, Label: "S"}}, m.FindChiralCenters(ChiralCenterOptions{}), smiles)
	}
}

func TestCIP_SymmetricSubstituentsTie(t *testing.T) {
	tests := []struct {
		name    string
		smiles  string
		atom    int
		centers []int
	}{
		{"two sec-butyl arms", "OC(C(C)CC)C(CC)C", 1, []int{2, 6}},
		{"cubane", "C12C3C4C1C5C2C3C45", 0, nil},
		{"adamantane", "C1C2CC3CC1CC(C2)C3", 1, nil},
		{"diethyl carbinol", "CCC(O)CC", 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustParseSMILES(tt.smiles)
			assert.False(t, m.IsStereoCenter(tt.atom))
			var got []int
			for _, c := range m.FindChiralCenters(ChiralCenterOptions{IncludeUnassigned: true}) {
				got = append(got, c.Atom)
			}
			assert.Equal(t, tt.centers, got)
		})
	}
}

func TestCIP_DeepDifferenceIsFound(t *testing.T) {
	// The two chain arms differ only at their far ends.
	m := MustParseSMILES("O[C@@H](CCCCCCCl)CCCCCCBr")
	prio, ok := m.cipPriorities(1)
	require.True(t, ok)
	assert.Equal(t, []int{0, 9, 2, -1}, prio)
}

func TestRankBy_OrdersAndCountsClasses(t *testing.T) {
	nodes := []*cipNode{{z: 8}, {z: 1}, {z: 6}, {z: 8}}
	classes := rankBy(nodes, func(n *cipNode) []int { return []int{n.z} })
	assert.Equal(t, 3, classes)
	assert.Equal(t, []int{3, 1, 2, 3}, []int{nodes[0].rank, nodes[1].rank, nodes[2].rank, nodes[3].rank})

	nodes[0].children = []*cipNode{nodes[1]}
	assert.Equal(t, []int{3, 1}, refinedKey(nodes[0]))
	assert.Equal(t, []int{3}, refinedKey(nodes[3]))
	assert.Equal(t, 1, compareInts(refinedKey(nodes[0]), refinedKey(nodes[3])))
}
