package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build via -ldflags, mirroring the
// teacher's own version.TMCoreSemVer pattern.
var Version = "dev"

// VersionCmd prints the synccore build version. It runs before
// RootCommand's PersistentPreRunE loads any config, so it never
// touches the filesystem.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the synccore version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
		return nil
	},
}
