// Package stereo enforces caller-chosen CIP descriptor sequences along a
// polymer backbone and generates tactic descriptor sequences.
package stereo

import (
	"strings"

	"github.com/polymerlab/m2pcalc/internal/domain/molecule"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// Descriptor is a CIP label, R or S.
type Descriptor string

const (
	DescriptorR Descriptor = "R"
	DescriptorS Descriptor = "S"
)

// descriptorTags is the fixed first-pass table.
var descriptorTags = map[Descriptor]molecule.ChiralTag{
	DescriptorR: molecule.ChiralCCW,
	DescriptorS: molecule.ChiralCW,
}

// Tag returns the chirality tag set for d in the first pass.
func (d Descriptor) Tag() molecule.ChiralTag {
	return descriptorTags[d]
}

// Valid reports whether d is R or S.
func (d Descriptor) Valid() bool {
	_, ok := descriptorTags[d]
	return ok
}

func (d Descriptor) String() string { return string(d) }

// ParseDescriptor accepts "R" or "S" in either case.
func ParseDescriptor(s string) (Descriptor, error) {
	d := Descriptor(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", invalidDescriptor(s, s)
	}
	return d, nil
}

func invalidDescriptor(token, input string) *errors.AppError {
	return errors.Newf(errors.ErrCodeInvalidDescriptor, "invalid CIP descriptor %q", token).WithDetail(input)
}

// ParseTargets reads a descriptor sequence written either compactly
// ("RSSR") or separated by commas or whitespace ("R, S, S, R").
func ParseTargets(s string) ([]Descriptor, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	var out []Descriptor
	for _, f := range fields {
		for _, c := range f {
			d, err := ParseDescriptor(string(c))
			if err != nil {
				return nil, invalidDescriptor(string(c), s)
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// JoinDescriptors renders ds compactly, e.g. "RSSR".
func JoinDescriptors(ds []Descriptor) string {
	var sb strings.Builder
	for _, d := range ds {
		sb.WriteString(string(d))
	}
	return sb.String()
}
