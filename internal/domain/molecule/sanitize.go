package molecule

import (
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// Sanitize validates m: per-element valence (charge aware), aromatic atoms
// must sit on a ring, aromatic bonds must join aromatic atoms, and map
// numbers are non-negative.  Implicit hydrogens are recomputed first.
func Sanitize(m *Mol) error {
	m.UpdateImplicitHs()
	for i, a := range m.atoms {
		if a.MapNum < 0 {
			return errors.Newf(errors.ErrCodeMoleculeSanitizeFailed, "atom %d has negative map number %d", i, a.MapNum)
		}
		if a.ExplicitHs < 0 {
			return errors.Newf(errors.ErrCodeMoleculeSanitizeFailed, "atom %d has negative hydrogen count", i)
		}
		allowed := allowedValences(a.AtomicNum, a.Charge)
		if allowed != nil {
			v := m.explicitValence(i) + a.TotalHs()
			if len(allowed) == 0 || v > allowed[len(allowed)-1] {
				return errors.Newf(errors.ErrCodeMoleculeSanitizeFailed,
					"explicit valence for atom #%d %s, %d, is greater than permitted", i, a.Symbol, v)
			}
		}
		if a.Aromatic && !m.IsInRing(i) {
			return errors.Newf(errors.ErrCodeMoleculeSanitizeFailed, "non-ring atom %d marked aromatic", i)
		}
	}
	for _, b := range m.bonds {
		if b.Order == BondAromatic && !(m.atoms[b.Begin].Aromatic && m.atoms[b.End].Aromatic) {
			return errors.Newf(errors.ErrCodeMoleculeSanitizeFailed,
				"aromatic bond %d-%d joins a non-aromatic atom", b.Begin, b.End)
		}
	}
	return nil
}
