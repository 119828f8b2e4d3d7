package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludoplex/intel-cmt-cat/pkg/pqos"
)

func TestParseCDPConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want pqos.CDPConfig
	}{
		{"any", pqos.CDPAny},
		{"off", pqos.CDPOff},
		{"on", pqos.CDPOn},
		{"ANY", pqos.CDPAny},
	}
	for _, tt := range tests {
		got, err := parseCDPConfig(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := parseCDPConfig("maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown CDP state")
}

func TestParseMBAMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want pqos.MBAMode
	}{
		{"any", pqos.MBAModeAny},
		{"default", pqos.MBAModeDefault},
		{"ctrl", pqos.MBAModeCtrl},
		{"Ctrl", pqos.MBAModeCtrl},
	}
	for _, tt := range tests {
		got, err := parseMBAMode(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := parseMBAMode("mbps")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown MBA mode")
}
