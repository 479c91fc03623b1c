// Package commands implements the synccore CLI, grounded on the
// teacher's cmd/tenderdash/commands package: one root cobra.Command,
// a shared *config.Config populated by BindFlagsLoadViper +
// config.LoadFromViper in PersistentPreRunE, and one subcommand per
// operation (init, start, version).
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	sccli "github.com/polkadot-go/synccore/cli"
	"github.com/polkadot-go/synccore/config"
	"github.com/polkadot-go/synccore/log"
)

const envPrefix = "SYNCCORE"

// cfg is populated by RootCommand's PersistentPreRunE before any
// subcommand's RunE runs.
var cfg = config.DefaultConfig()

// logger is replaced by a zerolog logger on stderr once the config is
// loaded; cfg.LogLevel and cfg.LogFormat are not applied to it.
var logger log.Logger = log.NopLogger()

// RootCommand constructs the synccore root command.
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synccore",
		Short: "block-import and chain-synchronization core for a Polkadot-compatible node",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}
			if err := sccli.BindFlagsLoadViper(cmd, args); err != nil {
				return err
			}
			loaded, err := config.LoadFromViper(viper.GetViper(), cfg)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			*cfg = *loaded
			if err := config.EnsureRoot(cfg.RootDir); err != nil {
				return fmt.Errorf("ensure root dir: %w", err)
			}
			logger = log.NewZerologLogger(os.Stderr)
			return nil
		},
	}

	defaultHome := os.ExpandEnv(filepath.Join("$HOME", config.DefaultHomeDir))
	cmd.PersistentFlags().StringP(sccli.HomeFlag, "", defaultHome, "directory for config and data")
	cmd.PersistentFlags().String("sync_method", cfg.SyncMethod, "sync strategy: full, fast, fast_without_state, warp, auto")
	cmd.PersistentFlags().String("chain", cfg.Chain, "well-known chain name or path to a chain-spec JSON file")
	cmd.PersistentFlags().String("peer_id_seed", cfg.PeerIDSeed, "seed this node's libp2p identity deterministically")
	cmd.PersistentFlags().String("data_dir", cfg.DataDir, "block store directory, relative to home unless absolute")
	cmd.PersistentFlags().String("log_level", cfg.LogLevel, "log level filter")
	cmd.PersistentFlags().String("db_backend", cfg.DBBackend, "block store backend: bolt or badger")

	cobra.OnInitialize(func() { sccli.InitEnv(envPrefix) })

	cmd.AddCommand(InitCmd, StartCmd, VersionCmd)
	return cmd
}
