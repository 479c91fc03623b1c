// Package config defines the top-level node configuration: the
// sync/chain/log/data-directory options of spec.md §6 plus the p2p
// listen and bootnode settings needed to actually run a node.
// Grounded on the teacher's own config/config.go (BaseConfig +
// per-service sub-config structs, DefaultConfig/TestConfig
// constructors, ValidateBasic) and cmd/tenderdash/commands/root.go's
// viper-backed loading (viper.Unmarshal into the struct, then
// SetRoot + ValidateBasic).
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
)

const (
	defaultConfigDir      = "config"
	defaultDataDir        = "data"
	defaultConfigFileName = "config.toml"
	defaultChainSpecName  = "chainspec.json"
)

// DefaultHomeDir is the default root directory for config and data,
// mirroring the teacher's own DefaultTendermintDir.
var DefaultHomeDir = ".synccore"

// BaseConfig holds the options spec.md §6 calls out explicitly as the
// CLI/environment surface: sync method, chain identity, peer-ID seed,
// data directory, and log filter.
type BaseConfig struct {
	// RootDir is set by SetRoot, not read from the config file
	// (mirrors the teacher's own RootDir/"home" handling).
	RootDir string `mapstructure:"home"`

	// Moniker is a human-readable name for this node.
	Moniker string `mapstructure:"moniker"`

	// SyncMethod selects the sync strategy (spec.md §6): "full",
	// "fast", "fast_without_state", "warp", or "auto".
	SyncMethod string `mapstructure:"sync_method"`

	// Chain names a well-known chain ("polkadot", "kusama", "rococo",
	// "westend") or a filesystem path to a chain-spec JSON document.
	Chain string `mapstructure:"chain"`

	// PeerIDSeed seeds this node's libp2p identity key, for
	// deterministic peer IDs in tests and scripted deployments.
	PeerIDSeed string `mapstructure:"peer_id_seed"`

	// DataDir is where the block store and trie database live,
	// relative to RootDir unless absolute.
	DataDir string `mapstructure:"data_dir"`

	// LogLevel names a zerolog level, e.g. "info" or "debug". The
	// logger built by the CLI does not filter by it.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is either "plain" or "json".
	LogFormat string `mapstructure:"log_format"`

	// DBBackend selects the blockstore backend: "bolt" or "badger".
	DBBackend string `mapstructure:"db_backend"`
}

// P2PConfig holds the libp2p transport settings.
type P2PConfig struct {
	ListenAddresses []string `mapstructure:"listen_addresses"`
	BootNodes       []string `mapstructure:"boot_nodes"`
}

// SyncConfig mirrors sync.Config, exposed for TOML/env overrides.
type SyncConfig struct {
	MinPreloadedBlockAmount         int           `mapstructure:"min_preloaded_block_amount"`
	MinPreloadedBlockAmountFastSync int           `mapstructure:"min_preloaded_block_amount_fast_sync"`
	JustificationInterval           uint64        `mapstructure:"justification_interval"`
	MaxJustificationLag             uint64        `mapstructure:"max_justification_lag"`
	MaxDistanceToBlockForSubscribe  uint64        `mapstructure:"max_distance_to_block_for_subscribe"`
	RecentnessDuration              time.Duration `mapstructure:"recentness_duration"`
}

// InstrumentationConfig controls the Prometheus metrics endpoint,
// mirroring the teacher's own InstrumentationConfig.
type InstrumentationConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	ListenAddress string `mapstructure:"listen_address"`
}

// Config is the top level node configuration.
type Config struct {
	BaseConfig      `mapstructure:",squash"`
	P2P             *P2PConfig             `mapstructure:"p2p"`
	Sync            *SyncConfig            `mapstructure:"sync"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a configuration with the same defaults spec.md
// §6 implies: full sync, no bootnodes, metrics off.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		P2P:             DefaultP2PConfig(),
		Sync:            DefaultSyncConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:    "anonymous-node",
		SyncMethod: "full",
		Chain:      "polkadot",
		DataDir:    defaultDataDir,
		LogLevel:   "info",
		LogFormat:  "plain",
		DBBackend:  "bolt",
	}
}

func DefaultP2PConfig() *P2PConfig {
	return &P2PConfig{
		ListenAddresses: []string{"/ip4/0.0.0.0/tcp/30333"},
	}
}

func DefaultSyncConfig() *SyncConfig {
	def := sync.DefaultConfig()
	return &SyncConfig{
		MinPreloadedBlockAmount:         def.MinPreloadedBlockAmount,
		MinPreloadedBlockAmountFastSync: def.MinPreloadedBlockAmountFastSync,
		JustificationInterval:           uint64(def.JustificationInterval),
		MaxJustificationLag:             uint64(def.MaxJustificationLag),
		MaxDistanceToBlockForSubscribe:  uint64(def.MaxDistanceToBlockForSubscribe),
		RecentnessDuration:              def.RecentnessDuration,
	}
}

// ToSyncConfig converts back to sync.Config for wiring into
// sync.NewSynchronizer.
func (s *SyncConfig) ToSyncConfig() sync.Config {
	return sync.Config{
		MinPreloadedBlockAmount:         s.MinPreloadedBlockAmount,
		MinPreloadedBlockAmountFastSync: s.MinPreloadedBlockAmountFastSync,
		JustificationInterval:           types.BlockNumber(s.JustificationInterval),
		MaxJustificationLag:             types.BlockNumber(s.MaxJustificationLag),
		MaxDistanceToBlockForSubscribe:  types.BlockNumber(s.MaxDistanceToBlockForSubscribe),
		RecentnessDuration:              s.RecentnessDuration,
	}
}

func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Enabled:       false,
		Namespace:     "synccore",
		ListenAddress: "127.0.0.1:26660",
	}
}

// SetRoot resolves RootDir across every sub-config that needs it.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.RootDir = root
	return cfg
}

// ConfigFilePath returns the config.toml path under RootDir.
func (cfg *Config) ConfigFilePath() string {
	return filepath.Join(cfg.RootDir, defaultConfigDir, defaultConfigFileName)
}

// ChainSpecPath resolves cfg.Chain to a chain-spec file path: either a
// well-known chain's bundled spec under RootDir/config, or cfg.Chain
// itself when it already looks like a path.
func (cfg *Config) ChainSpecPath() string {
	switch cfg.Chain {
	case "polkadot", "kusama", "rococo", "westend":
		return filepath.Join(cfg.RootDir, defaultConfigDir, cfg.Chain+"-"+defaultChainSpecName)
	default:
		return cfg.Chain
	}
}

// AbsDataDir resolves DataDir against RootDir when it isn't absolute.
func (cfg *Config) AbsDataDir() string {
	if filepath.IsAbs(cfg.DataDir) {
		return cfg.DataDir
	}
	return filepath.Join(cfg.RootDir, cfg.DataDir)
}

// ValidateBasic checks param bounds, mirroring the teacher's
// Config.ValidateBasic dispatching into each sub-config.
func (cfg *Config) ValidateBasic() error {
	switch cfg.SyncMethod {
	case "full", "fast", "fast_without_state", "warp", "auto":
	default:
		return fmt.Errorf("config: invalid sync_method %q", cfg.SyncMethod)
	}
	switch cfg.DBBackend {
	case "bolt", "badger":
	default:
		return fmt.Errorf("config: invalid db_backend %q", cfg.DBBackend)
	}
	switch cfg.LogFormat {
	case "plain", "json":
	default:
		return fmt.Errorf("config: invalid log_format %q", cfg.LogFormat)
	}
	if cfg.Sync.JustificationInterval == 0 {
		return fmt.Errorf("config: sync.justification_interval must be positive")
	}
	return nil
}
