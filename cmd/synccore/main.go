// Command synccore runs the block-import and chain-synchronization
// core as a standalone node, grounded on the teacher's cmd/tenderdash
// entrypoint: a bare cobra Execute() call over commands.RootCommand.
package main

import (
	"fmt"
	"os"

	"github.com/polkadot-go/synccore/cmd/synccore/commands"
)

func main() {
	if err := commands.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
