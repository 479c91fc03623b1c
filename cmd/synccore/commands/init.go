package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polkadot-go/synccore/config"
)

// InitCmd writes a default config.toml into the resolved home
// directory, grounded on the teacher's InitFilesCmd.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "initialize a home directory with a default config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsureRoot(cfg.RootDir); err != nil {
			return fmt.Errorf("ensure root dir: %w", err)
		}
		if err := config.WriteConfigFile(cfg.RootDir, cfg); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized home %s\n", cfg.RootDir)
		return nil
	},
}
