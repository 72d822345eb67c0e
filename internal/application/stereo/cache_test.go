package stereo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainStereo "github.com/polymerlab/m2pcalc/internal/domain/stereo"
	mocks "github.com/polymerlab/m2pcalc/internal/testutil"
	stereotypes "github.com/polymerlab/m2pcalc/pkg/types/stereo"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	sets    int
	getErr  error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return false, c.getErr
	}
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func newCachedService(t *testing.T, cache ResultCache) (Service, *mocks.MockLogger) {
	t.Helper()
	logger := mocks.NewMockLogger()
	svc, err := NewService(DefaultConfig(), nil, logger, WithResultCache(cache))
	require.NoError(t, err)
	return svc, logger
}

func TestAssign_CacheHit(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := newCachedService(t, cache)
	req := &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"RSR"}}

	first, err := svc.Assign(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Assign(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.SMILES, second.SMILES)
	assert.Equal(t, first.Specified, second.Specified)
	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, 1, cache.sets)
}

func TestAssign_CacheKeyCoversInputs(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := newCachedService(t, cache)
	ctx := context.Background()

	_, err := svc.Assign(ctx, &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"RSR"}})
	require.NoError(t, err)
	resp, err := svc.Assign(ctx, &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"SSS"}})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	resp, err = svc.Assign(ctx, &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"RSR"}, MaxPasses: intPtr(3)})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	resp, err = svc.AssignVinyl(ctx, &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"RSR"}})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Len(t, cache.entries, 4)

	// Equivalent target spellings share an entry.
	resp, err = svc.Assign(ctx, &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"R", "S", "R"}})
	require.NoError(t, err)
	assert.True(t, resp.Cached)
}

func TestAssign_CacheErrorsFallThrough(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = fmt.Errorf("connection refused")
	cache.setErr = fmt.Errorf("read only")
	svc, logger := newCachedService(t, cache)

	resp, err := svc.Assign(context.Background(), &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"RSR"}})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.True(t, logger.HasMessage("warn", "result cache lookup failed"))
	assert.True(t, logger.HasMessage("warn", "result cache write failed"))
}

func TestAssign_FailuresAreNotCached(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := newCachedService(t, cache)
	_, err := svc.Assign(context.Background(), &stereotypes.AssignRequest{SMILES: "C1CC", Targets: stereotypes.TargetSequence{"R"}})
	require.Error(t, err)
	assert.Equal(t, 0, cache.sets)
}

func TestAssign_ConcurrentCallsGetDistinctRunIDs(t *testing.T) {
	cache := newMemoryCache()
	svc, _ := newCachedService(t, cache)
	req := &stereotypes.AssignRequest{SMILES: polystyrene, Targets: stereotypes.TargetSequence{"SRS"}}

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Assign(context.Background(), req)
			if assert.NoError(t, err) {
				ids[i] = resp.RunID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
}

func TestFingerprint(t *testing.T) {
	opts := domainStereo.Options{MaxPasses: 1, Termination: "[H]"}
	targets := []domainStereo.Descriptor{domainStereo.DescriptorR}
	base := fingerprint(stereotypes.VariantGeneral, "CC", targets, "[Xe]", "[Pb]", opts)
	assert.Len(t, base, 64)
	assert.Equal(t, base, fingerprint(stereotypes.VariantGeneral, "CC", targets, "[Xe]", "[Pb]", opts))

	restricted := opts
	restricted.RestrictToTargets = true
	for _, other := range []string{
		fingerprint(stereotypes.VariantVinyl, "CC", targets, "[Xe]", "[Pb]", opts),
		fingerprint(stereotypes.VariantGeneral, "CCC", targets, "[Xe]", "[Pb]", opts),
		fingerprint(stereotypes.VariantGeneral, "CC", nil, "[Xe]", "[Pb]", opts),
		fingerprint(stereotypes.VariantGeneral, "CC", targets, "[Pb]", "[Xe]", opts),
		fingerprint(stereotypes.VariantGeneral, "CC", targets, "[Xe]", "[Pb]", restricted),
	} {
		assert.NotEqual(t, base, other)
	}
}
