// Package blockstore implements the persistent, append-only key-value
// store described in spec.md §6: distinct namespaces for headers,
// bodies, justifications, the number→hash lookup index, trie nodes,
// changes-trie data, and metadata. It exposes Store as an interface
// with two concrete backends (bbolt, badger) so the block tree and
// synchronizer never depend on a specific storage engine.
package blockstore

import (
	"errors"

	"github.com/polkadot-go/synccore/types"
)

// ErrNotFound is returned by Get-style methods when a key is absent.
var ErrNotFound = errors.New("blockstore: not found")

// Space names a persistent key namespace (spec.md §6).
type Space byte

const (
	SpaceHeader Space = iota
	SpaceBody
	SpaceJustification
	SpaceLookupKey // BlockNumber -> Hash
	SpaceTrieNode
	SpaceChangesTrie
	SpaceMeta
)

// Meta keys within SpaceMeta.
const (
	MetaLastFinalized = "last_finalized"
	MetaGenesisHash   = "genesis_hash"
)

// Store is the persistent storage contract every BlockTree and
// Synchronizer instance is built against. All methods must be safe
// for concurrent use. I/O failures are returned as errors. The bolt
// and badger backends panic when a stored header, body or
// justification fails to decode, while MemStore returns the decode
// error; the import loop recovers such a panic once, at its top, and
// converts it into a fatal shutdown (spec.md §7 "Storage error").
type Store interface {
	PutHeader(hash types.Hash, h types.Header) error
	GetHeader(hash types.Hash) (types.Header, error)
	HasHeader(hash types.Hash) (bool, error)

	PutBody(hash types.Hash, b types.Body) error
	GetBody(hash types.Hash) (types.Body, error)
	HasBody(hash types.Hash) (bool, error)

	PutJustification(hash types.Hash, j types.Justification) error
	GetJustification(hash types.Hash) (types.Justification, error)

	PutLookup(number types.BlockNumber, hash types.Hash) error
	GetHashByNumber(number types.BlockNumber) (types.Hash, error)

	PutMeta(key string, value []byte) error
	GetMeta(key string) ([]byte, error)

	Close() error
}
