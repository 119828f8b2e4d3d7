package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsAddFlags(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--config=groups.yaml", "--listen=:9100", "-I", "os"}))
	assert.Equal(t, "groups.yaml", opts.ConfigFile)
	assert.Equal(t, ":9100", opts.Listen)
	assert.Equal(t, "os", opts.Interface)

	// klog flags ride along on the same flag set.
	assert.NotNil(t, fs.Lookup("v"))
	assert.NotNil(t, fs.Lookup("logtostderr"))
}

func TestOptionsConfigRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewOptions().Config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config is required")
}

func TestOptionsConfigListenOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exporter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9738"
groups:
  - name: web
    cores: 0-1
    events: [llc]
`), 0o644))

	opts := NewOptions()
	opts.ConfigFile = path
	opts.Listen = "127.0.0.1:9100"

	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Listen)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, "web", cfg.Groups[0].Name)
}

func TestOptionsConfigMissingFile(t *testing.T) {
	t.Parallel()

	opts := NewOptions()
	opts.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := opts.Config()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
