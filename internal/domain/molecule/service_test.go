package molecule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerlab/m2pcalc/internal/testutil"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

func TestService_Summarize(t *testing.T) {
	svc := NewService(testutil.NewMockLogger())

	sum, err := svc.Summarize(context.Background(), "N[C@@H](C)C(=O)O")
	require.NoError(t, err)
	assert.Equal(t, "C[C@@H](C(=O)O)N", sum.CanonicalSMILES)
	assert.Equal(t, "C3H7NO2", sum.Formula)
	assert.Equal(t, 6, sum.NumAtoms)
	assert.Equal(t, 6, sum.NumHeavyAtoms)
	assert.Equal(t, 5, sum.NumBonds)
	assert.Equal(t, 1, sum.NumFragments)
	assert.Equal(t, []ChiralCenter{{Atom: 1, Label: "S"}}, sum.Centers)
}

func TestService_SummarizeInvalid(t *testing.T) {
	log := testutil.NewMockLogger()
	svc := NewService(log)

	_, err := svc.Summarize(context.Background(), "C1CC")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
	assert.True(t, log.HasMessage("debug", "rejected SMILES"))
}

func TestService_ParseCancelled(t *testing.T) {
	svc := NewService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Parse(ctx, "CCO")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}
