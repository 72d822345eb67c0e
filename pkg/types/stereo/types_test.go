package stereo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTargetSequence_JSON(t *testing.T) {
	var req AssignRequest
	require.NoError(t, json.Unmarshal([]byte(`{"smiles":"CC","targets":"RSR"}`), &req))
	assert.Equal(t, TargetSequence{"RSR"}, req.Targets)

	require.NoError(t, json.Unmarshal([]byte(`{"targets":["R","S"]}`), &req))
	assert.Equal(t, TargetSequence{"R", "S"}, req.Targets)

	require.NoError(t, json.Unmarshal([]byte(`{"targets":""}`), &req))
	assert.Nil(t, req.Targets)

	assert.Error(t, json.Unmarshal([]byte(`{"targets":3}`), &req))
}

func TestBatchJob_YAML(t *testing.T) {
	doc := `
id: demo
workers: 2
defaults:
  head_pattern: "[Xe]"
  tail_pattern: "[Pb]"
items:
  - name: iso
    smiles: "[Xe]CC(C)CC(C)[Pb]"
    targets: RR
  - name: vinyl
    variant: vinyl
    smiles: "[Xe]CC(C)CC(C)[Pb]"
    targets: [R, S]
    max_passes: 2
`
	var job BatchJob
	require.NoError(t, yaml.Unmarshal([]byte(doc), &job))
	assert.Equal(t, "demo", job.ID)
	assert.Equal(t, 2, job.Workers)
	assert.Equal(t, "[Xe]", job.Defaults.HeadPattern)
	require.Len(t, job.Items, 2)
	assert.Equal(t, "iso", job.Items[0].Name)
	assert.Equal(t, TargetSequence{"RR"}, job.Items[0].Targets)
	assert.Equal(t, VariantVinyl, job.Items[1].Variant)
	assert.Equal(t, TargetSequence{"R", "S"}, job.Items[1].Targets)
	require.NotNil(t, job.Items[1].MaxPasses)
	assert.Equal(t, 2, *job.Items[1].MaxPasses)
}

func TestBatchJob_JSONFlattensRequest(t *testing.T) {
	var job BatchJob
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"name":"a","smiles":"CC","targets":"R"}]}`), &job))
	require.Len(t, job.Items, 1)
	assert.Equal(t, "CC", job.Items[0].SMILES)
	assert.Equal(t, "a", job.Items[0].Name)
}

func TestVariant_IsValid(t *testing.T) {
	assert.True(t, Variant("").IsValid())
	assert.True(t, VariantVinyl.IsValid())
	assert.False(t, Variant("cyclic").IsValid())
}
