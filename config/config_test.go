package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg.P2P)
	require.NotNil(t, cfg.Sync)
	require.NotNil(t, cfg.Instrumentation)
	require.NoError(t, cfg.ValidateBasic())
}

func TestSetRootResolvesPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetRoot("/foo")
	require.Equal(t, "/foo/config/config.toml", cfg.ConfigFilePath())
	require.Equal(t, "/foo/data", cfg.AbsDataDir())
}

func TestValidateBasicRejectsBadSyncMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyncMethod = "teleport"
	require.Error(t, cfg.ValidateBasic())
}

func TestValidateBasicRejectsZeroJustificationInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.JustificationInterval = 0
	require.Error(t, cfg.ValidateBasic())
}

func TestChainSpecPathForWellKnownChain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetRoot("/home/node")
	cfg.Chain = "kusama"
	require.Equal(t, "/home/node/config/kusama-chainspec.json", cfg.ChainSpecPath())
}

func TestChainSpecPathForCustomFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chain = "/tmp/my-chain.json"
	require.Equal(t, "/tmp/my-chain.json", cfg.ChainSpecPath())
}

func TestWriteAndLoadConfigFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureRoot(dir))

	cfg := DefaultConfig()
	cfg.Moniker = "my-node"
	require.NoError(t, WriteConfigFile(dir, cfg))

	loaded := DefaultConfig()
	loaded.Moniker = "placeholder"
	require.NoError(t, LoadConfigFile(dir, loaded))
	require.Equal(t, "my-node", loaded.Moniker)
}

func TestLoadFromViperValidatesResult(t *testing.T) {
	v := viper.New()
	v.Set("sync_method", "bogus")
	v.Set("db_backend", "bolt")
	v.Set("log_format", "plain")
	v.Set("sync.justification_interval", 100)

	cfg := DefaultConfig()
	_, err := LoadFromViper(v, cfg)
	require.Error(t, err)
}

func TestLoadConfigFileIgnoresMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0700))
	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(dir, cfg))
}
