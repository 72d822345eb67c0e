package stereo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	domainStereo "github.com/polymerlab/m2pcalc/internal/domain/stereo"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

// ResultCache stores finished assignments keyed by request fingerprint.
// The redis ResultCache satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Option configures optional service collaborators.
type Option func(*serviceImpl)

// WithResultCache enables caching of assignment results.
func WithResultCache(c ResultCache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// fingerprint identifies an assignment by every input that can change its
// outcome.
func fingerprint(variant stereotypes.Variant, smiles string, targets []domainStereo.Descriptor, head, tail string, opts domainStereo.Options) string {
	fields := []string{
		string(variant),
		smiles,
		domainStereo.JoinDescriptors(targets),
		head,
		tail,
		strconv.Itoa(opts.MaxPasses),
		strconv.FormatBool(opts.RestrictToTargets),
		opts.Termination,
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x00")))
	return hex.EncodeToString(sum[:])
}
