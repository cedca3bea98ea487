package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/config"
)

func TestConfigInit_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := runCLI(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "docrag configuration")

	// The written template must load cleanly.
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := runCLI(t, "config", "init", "--config", path)
	require.NoError(t, err)

	_, err = runCLI(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	out, err := runCLI(t, "config", "show", "--json", "--config", path)
	require.NoError(t, err)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Contains(t, cfg, "retrieval")
	assert.Contains(t, cfg, "embeddings")
}

func TestConfigPath(t *testing.T) {
	out, err := runCLI(t, "config", "path", "--config", "/etc/docrag.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "/etc/docrag.yaml")
}
