package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polkadot-go/synccore/crypto"
	"github.com/polkadot-go/synccore/node"
)

// StartCmd brings up a node. The verifier it hands to node.New is a
// crypto.Verifier over an empty key registry; the executor, trie
// builder, and trie backend are the dev-mode stand-ins in
// devcollab.go: spec.md §1 places crypto verification, WASM
// execution, and trie storage out of scope as fixed external
// interfaces, and this corpus carries no production implementation of
// any of the three, so start wires the same honestly-labeled
// substitutes crypto.Verifier already uses for VRF (see DESIGN.md).
var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "start the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := crypto.NewKeyRegistry(map[uint32][]byte{})
		if err != nil {
			return fmt.Errorf("build key registry: %w", err)
		}
		verifier := crypto.NewVerifier(keys)

		n, err := node.New(
			cfg,
			logger,
			verifier,
			newDevExecutor(),
			newDevTrieBackend(),
			newDevTrieBuilder,
			nil,
		)
		if err != nil {
			return fmt.Errorf("build node: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			logger.Info("shutdown signal received")
			cancel()
		}()

		if err := n.Start(ctx); err != nil {
			return fmt.Errorf("start node: %w", err)
		}

		go func() {
			<-ctx.Done()
			_ = n.Stop()
		}()

		n.Wait()
		return nil
	},
}
