package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// defaultDirPerm mirrors the teacher's own EnsureRoot permission bits.
const defaultDirPerm = 0700

// EnsureRoot creates the root, config, and data directories if they
// don't exist, mirroring the teacher's own config/toml.go EnsureRoot.
func EnsureRoot(rootDir string) error {
	if err := os.MkdirAll(rootDir, defaultDirPerm); err != nil {
		return fmt.Errorf("ensure root dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	return nil
}

// WriteConfigFile renders cfg as TOML and writes it to rootDir's
// config.toml, mirroring the teacher's WriteConfigFile/
// WriteToTemplate pair, but via BurntSushi/toml's encoder rather than
// a hand-maintained text/template (the teacher's own dep, used here
// as the sole (de)serialization mechanism instead of duplicating it
// with a template).
func WriteConfigFile(rootDir string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(rootDir, defaultConfigDir, defaultConfigFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadConfigFile decodes rootDir's config.toml over the given
// defaults, leaving any field absent from the file untouched.
func LoadConfigFile(rootDir string, cfg *Config) error {
	path := filepath.Join(rootDir, defaultConfigDir, defaultConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	return nil
}

// LoadFromViper unmarshals a viper instance (populated from flags,
// environment, and/or a config file already read into it) over cfg,
// mirroring cmd/tenderdash/commands/root.go's ParseConfig.
func LoadFromViper(v *viper.Viper, cfg *Config) (*Config, error) {
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SetRoot(cfg.RootDir)
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
