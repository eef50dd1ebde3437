package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksink/hooksink/pkg/config"
)

func TestStarterConfigIsValid(t *testing.T) {
	cfg, err := config.Parse([]byte(starterConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Endpoints, 2)
	assert.Equal(t, "/payment", cfg.Endpoints[0].Path)
	assert.Len(t, cfg.Endpoints[0].Sequence, 2)
	assert.Equal(t, "manual_calling", cfg.Endpoints[1].Type)
	assert.Equal(t, "http://localhost:9000", cfg.Settings["callback_server"])
}

func TestInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")

	rootCmd.SetArgs([]string{"init", path})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"init", path})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	rootCmd.SetArgs([]string{"init", path, "--force"})
	require.NoError(t, rootCmd.Execute())
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	rootCmd.SetArgs([]string{"init", path})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"validate", "-f", path})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"validate", "-f", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, rootCmd.Execute())
}

func TestServeFlagShorthands(t *testing.T) {
	cb := serveCmd.Flags().ShorthandLookup("c")
	require.NotNil(t, cb)
	assert.Equal(t, "callback-url", cb.Name)

	cfgFlag := serveCmd.Flags().ShorthandLookup("f")
	require.NotNil(t, cfgFlag)
	assert.Equal(t, "config", cfgFlag.Name)

	port := serveCmd.Flags().ShorthandLookup("p")
	require.NotNil(t, port)
	assert.Equal(t, "port", port.Name)
}
