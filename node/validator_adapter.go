// Package node wires every collaborator package into a single
// runnable service, grounded on the teacher's own node/node.go: one
// constructor that builds the full dependency graph, embedding
// service.BaseService for the OnStart/OnStop lifecycle the CLI drives.
package node

import (
	"github.com/polkadot-go/synccore/sync"
	"github.com/polkadot-go/synccore/types"
	"github.com/polkadot-go/synccore/validation"
)

// syncValidator adapts *validation.BlockValidator to sync.Validator.
// Go requires identical method signatures for interface satisfaction,
// and ObserveDigestsAndValidateHeader's real return type is the
// concrete *validation.ConsistencyGuard rather than sync's
// ConsistencyScope interface, so this thin wrapper narrows the return
// type at the call site instead of widening the two packages' shared
// vocabulary into a single interface either would need to import.
type syncValidator struct {
	inner *validation.BlockValidator
}

func newSyncValidator(inner *validation.BlockValidator) *syncValidator {
	return &syncValidator{inner: inner}
}

func (v *syncValidator) ValidateStructure(expectedParent types.Hash, h types.Header) error {
	return v.inner.ValidateStructure(expectedParent, h)
}

func (v *syncValidator) ObserveDigestsAndValidateHeader(hash types.Hash, h types.Header) (sync.ConsistencyScope, error) {
	guard, err := v.inner.ObserveDigestsAndValidateHeader(hash, h)
	if err != nil {
		return nil, err
	}
	return guard, nil
}
