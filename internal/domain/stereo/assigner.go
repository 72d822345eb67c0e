package stereo

import (
	"sort"

	"github.com/polymerlab/m2pcalc/internal/domain/molecule"
	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// Fixed patterns of the vinyl variant.
const (
	VinylHeadPattern = "[Xe]"
	VinylTailPattern = "[Pb]"
	VinylTermination = "([Pb][C:1].[C:2][Xe])>>([C:1].[C:2])"
	defaultMaxPasses = 1
)

// Options tunes the correction loop.
type Options struct {
	// MaxPasses bounds the detect-and-flip passes.  One pass is the
	// reference behaviour; larger values repeat while a targeted center
	// is still mislabelled.
	MaxPasses int
	// RestrictToTargets keeps untargeted centers out of the flip set.
	RestrictToTargets bool
	// Termination overrides the vinyl termination reaction SMARTS.
	Termination string
}

// DefaultOptions returns single-pass options.
func DefaultOptions() Options {
	return Options{MaxPasses: defaultMaxPasses, Termination: VinylTermination}
}

// Report describes what one assignment did.  Atom indices refer to the
// returned molecule.
type Report struct {
	Backbone            []int              `json:"backbone"`
	Centers             []int              `json:"centers"`
	Specified           map[int]Descriptor `json:"specified"`
	IgnoredTargets      int                `json:"ignored_targets"`
	UntargetedCenters   int                `json:"untargeted_centers"`
	LostCenters         int                `json:"lost_centers,omitempty"`
	FirstPassMismatches []int              `json:"first_pass_mismatches"`
	Flipped             [][]int            `json:"flipped"`
	Residual            []int              `json:"residual"`
	Passes              int                `json:"passes"`
	Labels              map[int]string     `json:"labels"`
	SMILES              string             `json:"smiles"`
}

// Converged reports whether every targeted center carries its target label.
func (r *Report) Converged() bool {
	return !touchesTargets(r.Residual, r.Specified)
}

// FlipCount is the total number of tag flips across passes.
func (r *Report) FlipCount() int {
	n := 0
	for _, f := range r.Flipped {
		n += len(f)
	}
	return n
}

// Assigner sets backbone chirality tags so that the computed CIP labels
// reproduce a target descriptor sequence.  An Assigner holds no per-call
// state and may be shared.
type Assigner struct {
	opts        Options
	termination *molecule.Reaction
	logger      logging.Logger
}

// NewAssigner validates opts and builds an Assigner.
func NewAssigner(opts Options, logger logging.Logger) (*Assigner, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.MaxPasses == 0 {
		opts.MaxPasses = defaultMaxPasses
	}
	if opts.MaxPasses < 0 {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "max passes must be positive, got %d", opts.MaxPasses)
	}
	if opts.Termination == "" {
		opts.Termination = VinylTermination
	}
	rxn, err := molecule.ParseReaction(opts.Termination)
	if err != nil {
		return nil, err
	}
	return &Assigner{opts: opts, termination: rxn, logger: logger.Named("assigner")}, nil
}

// Options returns the effective options.
func (a *Assigner) Options() Options { return a.opts }

// Assign enforces targets on the backbone running from the first atom
// matching head to the first atom matching tail.  m is modified in place;
// the canonical SMILES of the result is returned.  Residual mismatches are
// reported, never raised.
func (a *Assigner) Assign(m *molecule.Mol, targets []Descriptor, head, tail string) (string, *Report, error) {
	backbone, centers, err := a.locateBackbone(m, head, tail)
	if err != nil {
		return "", nil, err
	}
	rep := &Report{Backbone: backbone, Centers: centers}
	a.enforce(m, a.specify(centers, targets, rep), rep)
	rep.SMILES = m.SMILES()
	return rep.SMILES, rep, nil
}

// AssignVinyl terminates a [Xe]/[Pb] capped vinyl polymer, then enforces
// targets on the backbone between the caps.  The returned molecule is the
// terminated product; m is not modified.
func (a *Assigner) AssignVinyl(m *molecule.Mol, targets []Descriptor) (*molecule.Mol, *Report, error) {
	product, err := a.terminate(m)
	if err != nil {
		return nil, nil, err
	}
	backbone, centers, err := a.locateBackbone(m, VinylHeadPattern, VinylTailPattern)
	if err != nil {
		return nil, nil, err
	}

	// Targets pair with the capped molecule's centers; the product is
	// addressed through provenance.
	rep := &Report{}
	specified := a.specify(centers, targets, rep)
	toProduct := make(map[int]int, product.NumAtoms())
	for i := 0; i < product.NumAtoms(); i++ {
		if pv, ok := product.Provenance(i); ok && pv.Reactant == 0 {
			toProduct[pv.Atom] = i
		}
	}
	for _, i := range backbone {
		if pi, ok := toProduct[i]; ok {
			rep.Backbone = append(rep.Backbone, pi)
		}
	}
	mapped := make(map[int]Descriptor, len(specified))
	for _, c := range centers {
		pi, ok := toProduct[c]
		if !ok || !product.IsStereoCenter(pi) {
			// the cap-side center turns into a CH2 on termination
			rep.LostCenters++
			continue
		}
		rep.Centers = append(rep.Centers, pi)
		if d, ok := specified[c]; ok {
			mapped[pi] = d
		}
	}
	a.enforce(product, mapped, rep)
	rep.SMILES = product.SMILES()
	return product, rep, nil
}

// terminate runs the termination reaction and keeps the first product that
// survives sanitization.
func (a *Assigner) terminate(m *molecule.Mol) (*molecule.Mol, error) {
	sets, err := a.termination.RunReactants(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTerminationFailed, "termination reaction failed")
	}
	for i, set := range sets {
		if len(set) == 0 {
			continue
		}
		p := set[0]
		if err := molecule.Sanitize(p); err != nil {
			a.logger.Warn("termination product failed sanitization",
				logging.Int("candidate", i), logging.Err(err))
			continue
		}
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeTerminationFailed, "termination produced no valid product").
		WithDetail(a.termination.String())
}

// locateBackbone returns the head-to-tail atom path and the chiral centers
// on it, assigned or not, in atom index order.
func (a *Assigner) locateBackbone(m *molecule.Mol, head, tail string) ([]int, []int, error) {
	first, err := a.endpoint(m, head, "head")
	if err != nil {
		return nil, nil, err
	}
	last, err := a.endpoint(m, tail, "tail")
	if err != nil {
		return nil, nil, err
	}
	path := m.ShortestPath(first, last)
	if path == nil {
		return nil, nil, errors.Newf(errors.ErrCodeBackboneUnavailable,
			"no path between head atom %d and tail atom %d", first, last)
	}
	onPath := make(map[int]bool, len(path))
	for _, i := range path {
		onPath[i] = true
	}
	var centers []int
	for _, c := range m.FindChiralCenters(molecule.ChiralCenterOptions{IncludeUnassigned: true}) {
		if onPath[c.Atom] {
			centers = append(centers, c.Atom)
		}
	}
	return path, centers, nil
}

func (a *Assigner) endpoint(m *molecule.Mol, pattern, which string) (int, error) {
	q, err := molecule.ParseSMARTS(pattern)
	if err != nil {
		return 0, err
	}
	match := m.SubstructMatch(q)
	if len(match) == 0 {
		return 0, errors.Newf(errors.ErrCodeEndpointNotFound, "%s pattern %s matches no atom", which, pattern)
	}
	return match[0], nil
}

// specify pairs centers with targets positionally.  Surplus on either side
// is dropped.
func (a *Assigner) specify(centers []int, targets []Descriptor, rep *Report) map[int]Descriptor {
	n := len(centers)
	if len(targets) < n {
		n = len(targets)
	}
	specified := make(map[int]Descriptor, n)
	for k := 0; k < n; k++ {
		specified[centers[k]] = targets[k]
	}
	rep.IgnoredTargets = len(targets) - n
	rep.UntargetedCenters = len(centers) - n
	if len(targets) != len(centers) {
		a.logger.Debug("target count differs from backbone center count",
			logging.Int("targets", len(targets)), logging.Int("centers", len(centers)))
	}
	return specified
}

// enforce runs the first pass and the correction passes on m.  With nothing
// specified the tags are left as they are.
func (a *Assigner) enforce(m *molecule.Mol, specified map[int]Descriptor, rep *Report) {
	rep.Specified = specified
	for _, i := range sortedKeys(specified) {
		_ = m.SetChiralTag(i, specified[i].Tag())
	}
	m.AssignCIPLabels()

	if len(specified) == 0 {
		rep.Labels = m.CIPLabels()
		return
	}

	mismatched := mismatches(m, specified)
	rep.FirstPassMismatches = mismatched
	for rep.Passes < a.opts.MaxPasses && len(mismatched) > 0 {
		var flipped []int
		for _, i := range mismatched {
			if _, targeted := specified[i]; a.opts.RestrictToTargets && !targeted {
				continue
			}
			atom := m.Atom(i)
			if atom.ChiralTag == molecule.ChiralUnspecified {
				continue
			}
			atom.ChiralTag = atom.ChiralTag.Invert()
			flipped = append(flipped, i)
		}
		m.AssignCIPLabels()
		rep.Flipped = append(rep.Flipped, flipped)
		rep.Passes++
		mismatched = mismatches(m, specified)
		if len(flipped) == 0 || !touchesTargets(mismatched, specified) {
			break
		}
	}
	rep.Residual = mismatched
	rep.Labels = m.CIPLabels()

	if len(rep.Residual) > 0 {
		a.logger.Debug("mismatches remain after correction",
			logging.Ints("atoms", rep.Residual), logging.Int("passes", rep.Passes))
	}
}

// mismatches returns the atoms of the symmetric difference between the
// specified (atom, descriptor) pairs and the computed (atom, label) pairs.
func mismatches(m *molecule.Mol, specified map[int]Descriptor) []int {
	computed := m.CIPLabels()
	set := map[int]bool{}
	for i, d := range specified {
		if computed[i] != string(d) {
			set[i] = true
		}
	}
	for i, label := range computed {
		if d, ok := specified[i]; !ok || string(d) != label {
			set[i] = true
		}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func touchesTargets(atoms []int, specified map[int]Descriptor) bool {
	for _, i := range atoms {
		if _, ok := specified[i]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int]Descriptor) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
