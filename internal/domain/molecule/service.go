package molecule

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/logging"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// Summary describes a parsed molecule for API callers.
type Summary struct {
	SMILES          string         `json:"smiles"`
	CanonicalSMILES string         `json:"canonical_smiles"`
	Formula         string         `json:"formula"`
	NumAtoms        int            `json:"num_atoms"`
	NumHeavyAtoms   int            `json:"num_heavy_atoms"`
	NumBonds        int            `json:"num_bonds"`
	NumFragments    int            `json:"num_fragments"`
	Centers         []ChiralCenter `json:"centers"`
}

// Service offers molecule-level operations that do not involve stereo
// assignment: canonicalisation, validation and chiral-center listing.
type Service struct {
	logger logging.Logger
}

// NewService constructs a molecule domain service.
func NewService(logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{logger: logger.Named("molecule")}
}

// Parse parses and sanitizes smiles.
func (s *Service) Parse(ctx context.Context, smiles string) (*Mol, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "parse cancelled")
	}
	m, err := ParseSMILES(smiles)
	if err != nil {
		s.logger.Debug("rejected SMILES", logging.String("smiles", smiles), logging.Err(err))
		return nil, err
	}
	return m, nil
}

// Summarize parses smiles and reports its canonical form, formula and
// chiral centers (unassigned ones included).
func (s *Service) Summarize(ctx context.Context, smiles string) (*Summary, error) {
	m, err := s.Parse(ctx, smiles)
	if err != nil {
		return nil, err
	}
	m.AssignCIPLabels()
	heavy := 0
	for _, a := range m.atoms {
		if a.AtomicNum != 1 {
			heavy++
		}
	}
	sum := &Summary{
		SMILES:          smiles,
		CanonicalSMILES: m.SMILES(),
		Formula:         m.Formula(),
		NumAtoms:        m.NumAtoms(),
		NumHeavyAtoms:   heavy,
		NumBonds:        m.NumBonds(),
		NumFragments:    len(m.Fragments()),
		Centers:         m.FindChiralCenters(ChiralCenterOptions{IncludeUnassigned: true}),
	}
	s.logger.Debug("summarized molecule",
		logging.String("canonical", sum.CanonicalSMILES),
		logging.Int("centers", len(sum.Centers)))
	return sum, nil
}

// Formula returns the molecular formula in Hill order: C, H, then the other
// elements alphabetically.  Wildcard atoms are written as '*'.
func (m *Mol) Formula() string {
	counts := map[string]int{}
	for _, a := range m.atoms {
		counts[a.Symbol]++
		if h := a.TotalHs(); h > 0 {
			counts["H"] += h
		}
	}
	var symbols []string
	for sym := range counts {
		if sym == "C" || sym == "H" {
			continue
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	if _, ok := counts["C"]; ok {
		head := []string{"C"}
		if _, ok := counts["H"]; ok {
			head = append(head, "H")
		}
		symbols = append(head, symbols...)
	} else if _, ok := counts["H"]; ok {
		symbols = append(symbols, "H")
		sort.Strings(symbols)
	}
	var sb strings.Builder
	for _, sym := range symbols {
		sb.WriteString(sym)
		if n := counts[sym]; n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}
