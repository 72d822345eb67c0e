package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/polymerlab/m2pcalc/pkg/errors"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

const testPolymer = "[Xe]CC(c1ccccc1)CC(c1ccccc1)CC(c1ccccc1)[Pb]"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "m2pcalc", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"assign", "centers", "tacticity", "batch", "version"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "m2pcalc "+Version)
	assert.Contains(t, out, "commit:")
}

func TestAssignCmd_Text(t *testing.T) {
	out, err := execute(t, "assign", "--smiles", testPolymer, "--targets", "RSR")
	require.NoError(t, err)
	assert.Contains(t, out, "ATOM")
	assert.Contains(t, out, "converged: 3 centers")
}

func TestAssignCmd_JSON(t *testing.T) {
	out, err := execute(t, "-o", "json", "assign", "--smiles", testPolymer, "--targets", "R,S,R")
	require.NoError(t, err)

	var resp stereotypes.AssignResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []int{2, 10, 18}, resp.Centers)
	assert.Equal(t, map[int]string{2: "R", 10: "S", 18: "R"}, resp.Specified)
	assert.True(t, resp.Converged)
}

func TestAssignCmd_VinylYAML(t *testing.T) {
	out, err := execute(t, "-o", "yaml", "assign", "--vinyl", "--smiles", testPolymer, "--targets", "RS")
	require.NoError(t, err)

	var resp stereotypes.AssignResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, stereotypes.VariantVinyl, resp.Variant)
	assert.Equal(t, 1, resp.LostCenters)
}

func TestAssignCmd_Errors(t *testing.T) {
	_, err := execute(t, "assign", "--targets", "R")
	assert.Error(t, err, "missing --smiles")

	_, err = execute(t, "assign", "--smiles", "CC(O)CC", "--head", "[Xe]", "--tail", "O")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEndpointNotFound))

	_, err = execute(t, "assign", "--vinyl", "--head", "N", "--smiles", testPolymer)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = execute(t, "-o", "xml", "assign", "--smiles", testPolymer)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestCentersCmd(t *testing.T) {
	out, err := execute(t, "centers", "--smiles", "N[C@@H](C)C(=O)O")
	require.NoError(t, err)
	assert.Contains(t, out, "C3H7NO2")
	assert.Contains(t, out, "S")

	out, err = execute(t, "centers", "--smiles", "CCO")
	require.NoError(t, err)
	assert.Contains(t, out, "no chiral centers")
}

func TestTacticityCmd(t *testing.T) {
	out, err := execute(t, "-o", "json", "tacticity", "--n", "3", "--pm", "1", "--dp", "5", "--seed", "9")
	require.NoError(t, err)

	var resp stereotypes.TacticityResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Sequences, 3)
	assert.Equal(t, int64(9), resp.Seed)
	for _, seq := range resp.Sequences {
		assert.Contains(t, []string{"RRRRR", "SSSSS"}, seq)
	}

	_, err = execute(t, "tacticity", "--pm", "2")
	assert.True(t, errors.IsCode(err, errors.ErrCodeTacticityInvalidInput))
}

func TestBatchCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: cli-job
items:
  - name: good
    smiles: "`+testPolymer+`"
    targets: RRR
  - name: broken
    smiles: "C1CC"
`), 0o644))

	out, err := execute(t, "batch", "--file", path, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "job cli-job: 1 succeeded, 1 failed")
	assert.Contains(t, out, "MOL_001")

	_, err = execute(t, "batch", "--file", filepath.Join(t.TempDir(), "none.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeBatchJobRead))
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m2pcalc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stereo:\n  head_pattern: N\n  tail_pattern: \"[CH3]\"\n"), 0o644))

	out, err := execute(t, "-c", path, "-o", "json", "assign", "--smiles", "NC(C)C(=O)O", "--targets", "R")
	require.NoError(t, err)
	var resp stereotypes.AssignResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []int{1}, resp.Centers)

	_, err = execute(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "assign", "--smiles", "CC")
	assert.Error(t, err)
}
