package stereo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polymerlab/m2pcalc/internal/domain/molecule"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

func TestDescriptorTag(t *testing.T) {
	assert.Equal(t, molecule.ChiralCCW, DescriptorR.Tag())
	assert.Equal(t, molecule.ChiralCW, DescriptorS.Tag())
	assert.Equal(t, molecule.ChiralUnspecified, Descriptor("X").Tag())
	assert.False(t, Descriptor("").Valid())
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RSSR", "RSSR"},
		{"R,S,S", "RSS"},
		{"r, s ,R", "RSR"},
		{"RS SR", "RSSR"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := ParseTargets(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, JoinDescriptors(got), tt.in)
	}

	_, err := ParseTargets("RXS")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidDescriptor))
}

func TestParseTargets_ListOfSingleLetters(t *testing.T) {
	got, err := ParseTargets(strings.Join([]string{"R", " s "}, ","))
	require.NoError(t, err)
	assert.Equal(t, []Descriptor{DescriptorR, DescriptorS}, got)
}
