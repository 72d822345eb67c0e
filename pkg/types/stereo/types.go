// Package stereo defines the request and response structures of the stereo
// assignment API, shared by the application service, the HTTP handlers, the
// CLI and the Go client.  No domain logic lives here, only plain data types
// that are safe to import from any layer.
package stereo

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/polymerlab/m2pcalc/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Variant
// ─────────────────────────────────────────────────────────────────────────────

// Variant selects how the backbone is delimited.
type Variant string

const (
	// VariantGeneral locates the backbone with caller supplied head and tail
	// SMARTS and returns canonical SMILES.
	VariantGeneral Variant = "general"

	// VariantVinyl removes [Xe]/[Pb] caps with the termination reaction
	// before assigning.
	VariantVinyl Variant = "vinyl"
)

// IsValid reports whether v is a known variant.  The empty variant is
// treated as VariantGeneral by the service layer.
func (v Variant) IsValid() bool {
	switch v {
	case "", VariantGeneral, VariantVinyl:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Target sequences
// ─────────────────────────────────────────────────────────────────────────────

// TargetSequence is a list of CIP descriptor tokens.  In JSON and YAML it may
// be written either as a list (["R", "S"]) or as a single string ("RS" or
// "R,S"); a string decodes to a one-element list and is split by the
// service layer.
type TargetSequence []string

// UnmarshalJSON accepts a string or an array of strings.
func (t *TargetSequence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*t = nil
		} else {
			*t = TargetSequence{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("targets must be a string or a list of strings: %w", err)
	}
	*t = list
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (t *TargetSequence) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" {
			*t = nil
		} else {
			*t = TargetSequence{value.Value}
		}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	}
	return fmt.Errorf("targets must be a string or a list of strings (line %d)", value.Line)
}

// ─────────────────────────────────────────────────────────────────────────────
// Assignment
// ─────────────────────────────────────────────────────────────────────────────

// AssignRequest is the input of one stereo assignment.
type AssignRequest struct {
	// SMILES is the polymer to modify.
	SMILES string `json:"smiles" yaml:"smiles"`

	// Targets is the descriptor sequence, one per backbone center in
	// backbone order.  Surplus entries on either side are ignored.
	Targets TargetSequence `json:"targets" yaml:"targets"`

	// HeadPattern and TailPattern are SMARTS locating the backbone ends.
	// Empty values fall back to the configured defaults.  Ignored by the
	// vinyl variant.
	HeadPattern string `json:"head_pattern,omitempty" yaml:"head_pattern,omitempty"`
	TailPattern string `json:"tail_pattern,omitempty" yaml:"tail_pattern,omitempty"`

	// MaxPasses overrides the configured number of correction passes.
	MaxPasses *int `json:"max_passes,omitempty" yaml:"max_passes,omitempty"`

	// RestrictToTargets overrides whether untargeted centers may be flipped.
	RestrictToTargets *bool `json:"restrict_to_targets,omitempty" yaml:"restrict_to_targets,omitempty"`
}

// ChiralCenter is an atom index with its CIP label ("R", "S" or "?").
type ChiralCenter struct {
	Atom  int    `json:"atom" yaml:"atom"`
	Label string `json:"label" yaml:"label"`
}

// AssignResponse is the outcome of one stereo assignment.  Atom indices refer
// to the processed molecule (the terminated product for the vinyl variant),
// not to the canonical SMILES output order.
type AssignResponse struct {
	RunID   string  `json:"run_id" yaml:"run_id"`
	Variant Variant `json:"variant" yaml:"variant"`

	// SMILES is the canonical isomeric SMILES of the corrected molecule.
	SMILES string `json:"smiles" yaml:"smiles"`

	Backbone []int `json:"backbone" yaml:"backbone"`
	Centers  []int `json:"centers" yaml:"centers"`

	// Specified is the center to descriptor mapping the assigner enforced.
	Specified map[int]string `json:"specified" yaml:"specified"`

	// Labels holds the CIP label of every labelled center after correction.
	Labels []ChiralCenter `json:"labels" yaml:"labels"`

	FirstPassMismatches []int   `json:"first_pass_mismatches" yaml:"first_pass_mismatches"`
	Flipped             [][]int `json:"flipped" yaml:"flipped"`
	Residual            []int   `json:"residual" yaml:"residual"`
	Passes              int     `json:"passes" yaml:"passes"`

	// Converged is true when every targeted center carries its target.
	Converged bool `json:"converged" yaml:"converged"`

	IgnoredTargets    int `json:"ignored_targets" yaml:"ignored_targets"`
	UntargetedCenters int `json:"untargeted_centers" yaml:"untargeted_centers"`
	LostCenters       int `json:"lost_centers,omitempty" yaml:"lost_centers,omitempty"`

	DurationMS int64 `json:"duration_ms" yaml:"duration_ms"`

	// Cached is set when the result was served from the result cache.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule inspection
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeRequest carries a SMILES string for inspection endpoints.
type MoleculeRequest struct {
	SMILES            string `json:"smiles"`
	IncludeUnassigned bool   `json:"include_unassigned,omitempty"`
}

// MoleculeResponse describes a parsed molecule.
type MoleculeResponse struct {
	SMILES          string         `json:"smiles" yaml:"smiles"`
	CanonicalSMILES string         `json:"canonical_smiles" yaml:"canonical_smiles"`
	Formula         string         `json:"formula" yaml:"formula"`
	NumAtoms        int            `json:"num_atoms" yaml:"num_atoms"`
	NumHeavyAtoms   int            `json:"num_heavy_atoms" yaml:"num_heavy_atoms"`
	NumBonds        int            `json:"num_bonds" yaml:"num_bonds"`
	NumFragments    int            `json:"num_fragments" yaml:"num_fragments"`
	Centers         []ChiralCenter `json:"centers" yaml:"centers"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Tacticity
// ─────────────────────────────────────────────────────────────────────────────

// TacticityRequest asks for N descriptor sequences of length DP with meso
// diad fraction Pm.
type TacticityRequest struct {
	N  int     `json:"n" yaml:"n"`
	Pm float64 `json:"pm" yaml:"pm"`
	DP int     `json:"dp" yaml:"dp"`

	// Seed makes the draw reproducible.  When nil the configured seed is
	// used, or a time based one if none is configured.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// TacticityResponse carries the generated sequences, compactly written
// ("RRSR"), with the realised meso fraction of each.
type TacticityResponse struct {
	Sequences     []string  `json:"sequences" yaml:"sequences"`
	MesoFractions []float64 `json:"meso_fractions" yaml:"meso_fractions"`
	Seed          int64     `json:"seed" yaml:"seed"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch
// ─────────────────────────────────────────────────────────────────────────────

// BatchItem is one assignment of a batch job.
type BatchItem struct {
	AssignRequest `yaml:",inline"`

	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Variant Variant `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// BatchJob is a set of assignments run concurrently.  Jobs are usually read
// from YAML or JSON files.
type BatchJob struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Workers bounds concurrency; zero selects the configured default.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Defaults fills head/tail patterns and variant of items that omit them.
	Defaults BatchItem `json:"defaults" yaml:"defaults,omitempty"`

	Items []BatchItem `json:"items" yaml:"items"`
}

// BatchItemResult pairs an item with its response or error.
type BatchItemResult struct {
	Index    int                 `json:"index" yaml:"index"`
	Name     string              `json:"name,omitempty" yaml:"name,omitempty"`
	Response *AssignResponse     `json:"response,omitempty" yaml:"response,omitempty"`
	Error    *common.ErrorDetail `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchResult summarises a batch run.  Items keep the job's input order.
type BatchResult struct {
	JobID      string            `json:"job_id" yaml:"job_id"`
	Items      []BatchItemResult `json:"items" yaml:"items"`
	Succeeded  int               `json:"succeeded" yaml:"succeeded"`
	Failed     int               `json:"failed" yaml:"failed"`
	DurationMS int64             `json:"duration_ms" yaml:"duration_ms"`
}
