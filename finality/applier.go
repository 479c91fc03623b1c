// Package finality applies GRANDPA justifications to advance the
// finalized cursor (spec.md §4.4 "apply_justification"), grounded on
// the teacher's internal/blocksync/verify.go commit-verification idiom
// and its light-client package's postponement-and-retry pattern for
// justifications that arrive before their target block is imported.
package finality

import (
	"errors"
	"fmt"
	"sync"

	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// Justification error category (spec.md §7): rejected, block kept.
var (
	ErrInsufficientWeight = errors.New("finality: pre-commits do not meet quorum weight")
	ErrBadSignature       = errors.New("finality: pre-commit signature invalid")
	ErrWrongAuthoritySet  = errors.New("finality: pre-commit references an unknown authority set")
	ErrNotDescendant      = errors.New("finality: justification target is not a descendant of the current finalized block")
)

// Verifier checks pre-commit signatures against an authority set. It
// is satisfied by validation.Verifier; declared separately here so
// this package does not import validation for a single method.
type Verifier interface {
	VerifyJustification(just types.Justification, set digest.AuthoritySet) bool
}

// Tree is the narrow BlockTree surface JustificationApplier needs.
type Tree interface {
	Finalize(hash types.Hash, just *types.Justification) error
	HasDirectChain(a, d types.Hash) bool
	GetLastFinalized() types.BlockInfo
}

// JustificationApplier validates and applies GRANDPA justifications,
// postponing ones whose target has not been imported yet and retrying
// them as later imports arrive (spec.md §4.4).
type JustificationApplier struct {
	mu sync.Mutex

	tree     Tree
	verifier Verifier
	configs  *digest.ConfigRepository
	logger   log.Logger

	// postponed holds justifications keyed by target block hash,
	// waiting for that exact block to be imported.
	postponed map[types.Hash]types.Justification
}

func NewJustificationApplier(tree Tree, verifier Verifier, configs *digest.ConfigRepository, logger log.Logger) *JustificationApplier {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &JustificationApplier{
		tree:      tree,
		verifier:  verifier,
		configs:   configs,
		logger:    logger,
		postponed: make(map[types.Hash]types.Justification),
	}
}

// ApplyJustification is spec.md §4.4's named operation. If target is
// not yet known to tree, the justification is postponed rather than
// rejected.
func (a *JustificationApplier) ApplyJustification(target types.BlockInfo, just types.Justification, imported bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !imported {
		a.postponed[target.Hash] = just
		a.logger.Debug("justification postponed, target not yet imported", "target", target)
		return nil
	}
	return a.apply(target, just)
}

func (a *JustificationApplier) apply(target types.BlockInfo, just types.Justification) error {
	set := a.configs.ConfigAt(target.Hash).Authorities
	if set.TotalWeight() == 0 {
		return ErrWrongAuthoritySet
	}
	if !a.verifier.VerifyJustification(just, set) {
		return ErrBadSignature
	}
	if !hasQuorum(just, set) {
		return ErrInsufficientWeight
	}

	lastFinalized := a.tree.GetLastFinalized()
	if !a.tree.HasDirectChain(lastFinalized.Hash, target.Hash) {
		return ErrNotDescendant
	}

	if err := a.tree.Finalize(target.Hash, &just); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	delete(a.postponed, target.Hash)
	return nil
}

// RetryPostponed is called by the import loop after every successful
// import, so a justification that arrived before its target can be
// applied as soon as the target lands. Only the justification keyed
// by imported.Hash is retried; imports of other blocks, including
// higher-numbered ones, do not retry any postponed justification.
func (a *JustificationApplier) RetryPostponed(imported types.BlockInfo) {
	a.mu.Lock()
	just, ok := a.postponed[imported.Hash]
	a.mu.Unlock()
	if !ok {
		return
	}
	if err := a.ApplyJustification(imported, just, true); err != nil {
		a.logger.Error("postponed justification rejected on retry", "target", imported, "err", err)
	}
}

// hasQuorum reports whether the pre-commits in just carry at least
// 2/3 of set's total weight (spec.md GLOSSARY "GRANDPA").
func hasQuorum(just types.Justification, set digest.AuthoritySet) bool {
	byIndex := make(map[uint32]uint64, len(set.Authorities))
	for _, a := range set.Authorities {
		byIndex[a.Index] = a.Weight
	}
	seen := make(map[uint32]bool, len(just.PreCommits))
	var voted uint64
	for _, pc := range just.PreCommits {
		if seen[pc.AuthorityIdx] {
			continue
		}
		seen[pc.AuthorityIdx] = true
		voted += byIndex[pc.AuthorityIdx]
	}
	total := set.TotalWeight()
	return 3*voted >= 2*total
}
