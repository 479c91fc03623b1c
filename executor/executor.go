// Package executor applies validated blocks to chain state, in the
// two modes spec.md §4.1 assigns 10% of the core's budget to: Full
// mode runs every extrinsic against the parent state via an injected
// WASM Executor, Fast mode only appends the header and defers
// execution to a later state-sync. Grounded on the teacher's
// internal/state.BlockExecutor.ApplyBlock, which this package keeps
// the exact method name of.
package executor

import (
	"context"
	"fmt"

	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// Executor is the injected WASM runtime collaborator (spec.md §1:
// "the WASM runtime executor" is a fixed external interface, out of
// scope for this core).
type Executor interface {
	// ApplyExtrinsics runs body against the state committed at
	// parentStateRoot and returns the resulting state root. The
	// implementation owns all trie mutation; this package never
	// touches trie nodes directly.
	ApplyExtrinsics(ctx context.Context, parentStateRoot types.Hash, header types.Header, body types.Body) (newStateRoot types.Hash, err error)
}

// ErrStateRootMismatch is returned when execution succeeds but
// produces a state root different from the one declared in the
// header — a validation failure discovered only after running the
// block, per spec.md's Full-mode "on failure cascade-discard
// descendants" branch.
var ErrStateRootMismatch = fmt.Errorf("executor: recomputed state root does not match header")

// BlockExecutor drives Full-mode application: run the body, check the
// resulting root, and report success/failure to the import loop. It
// keeps no state of its own beyond the injected Executor and a
// logger, mirroring the teacher's stateless
// BlockExecutor value.
type BlockExecutor struct {
	runtime Executor
	logger  log.Logger
}

func NewBlockExecutor(runtime Executor, logger log.Logger) *BlockExecutor {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &BlockExecutor{runtime: runtime, logger: logger}
}

// ApplyBlock executes body against parentStateRoot and verifies the
// header's declared StateRoot matches what execution produced,
// exactly as spec.md §4.1 describes for Full mode.
func (e *BlockExecutor) ApplyBlock(ctx context.Context, parentStateRoot types.Hash, header types.Header, body types.Body) error {
	got, err := e.runtime.ApplyExtrinsics(ctx, parentStateRoot, header, body)
	if err != nil {
		return fmt.Errorf("apply extrinsics: %w", err)
	}
	if got != header.StateRoot {
		e.logger.Error("state root mismatch", "block", header.Number, "expected", header.StateRoot, "got", got)
		return ErrStateRootMismatch
	}
	return nil
}

// HeaderAppender drives Fast-mode application: no execution, the
// header is trusted and appended, with state applied later by
// statesync.StateSyncFlow. It exists as its own type (rather than a
// BlockExecutor flag) because Fast mode's contract — never touch the
// trie — is a hard invariant a caller should be able to see in the
// type system.
type HeaderAppender struct {
	logger log.Logger
}

func NewHeaderAppender(logger log.Logger) *HeaderAppender {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &HeaderAppender{logger: logger}
}

// AppendHeader performs the (trivial, always-succeeding from this
// package's perspective) Fast-mode acceptance of a header. Structural
// and cryptographic validation has already happened in
// validation.BlockValidator by the time this is called.
func (a *HeaderAppender) AppendHeader(header types.Header) error {
	a.logger.Debug("appended header without execution (fast sync)", "block", header.Number)
	return nil
}
