package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"useretl/pkg/checkpoint"
	"useretl/pkg/config"
	"useretl/pkg/ui"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	ui.SetOutput(&buf)
	ui.SetColor(false)
	t.Cleanup(func() {
		ui.SetOutput(os.Stdout)
		configFile, checkpointPath = "", ""
		noBackup = false
	})

	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestConfigInitWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "useretl.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created")

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, 150, cfg.Ingest.BatchSize)
	assert.Equal(t, "skip", cfg.Ingest.OnFetchFailure)

	_, err = execute(t, "config", "init", "--config", path)
	assert.Error(t, err)

	out, err = execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestConfigValidateRejectsBadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest:\n  on_fetch_failure: retry\n"), 0644))

	_, err := execute(t, "config", "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest.onfetchfailure")
}

func TestCheckpointShowAndReset(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "useretl.yaml")
	cpPath := filepath.Join(dir, "last_successful_index.txt")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ingest:\n  checkpoint_file: "+cpPath+"\n"), 0644))

	out, err := execute(t, "checkpoint", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "none")

	require.NoError(t, checkpoint.NewManager(cpPath).Write(149))

	out, err = execute(t, "checkpoint", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "149")
	assert.Contains(t, out, "150")

	_, err = execute(t, "checkpoint", "reset", "--config", cfgPath)
	require.NoError(t, err)

	_, err = os.Stat(cpPath)
	assert.True(t, os.IsNotExist(err))

	backup, err := os.ReadFile(cpPath + ".backup")
	require.NoError(t, err)
	assert.Equal(t, "149", string(backup))
}
