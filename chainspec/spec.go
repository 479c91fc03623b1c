// Package chainspec loads a chain specification JSON document (name,
// chain ID, bootnode list, and raw genesis key/value storage) and
// computes the genesis state root from it. Grounded on the teacher's
// own types.GenesisDoc JSON-loading idiom
// (types/genesis.go's GenesisDocFromJSON/GenesisDocFromFile/
// ValidateAndComplete), generalized from a validator-set genesis
// document to a raw-storage genesis matching
// original_source/core/injector/calculate_genesis_state.hpp's
// top-trie-plus-child-tries construction.
package chainspec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/polkadot-go/synccore/types"
)

// childStorageDefaultPrefix mirrors Substrate's own default child
// storage key prefix, under which a child trie's root is stored in
// the top trie.
const childStorageDefaultPrefix = ":child_storage:default:"

// rawGenesisJSON is the on-disk shape of the "genesis.raw" section:
// hex-encoded key/value pairs for the top trie, plus one such map per
// child trie, keyed by the child's storage suffix.
type rawGenesisJSON struct {
	Top             map[string]string            `json:"top"`
	ChildrenDefault map[string]map[string]string `json:"childrenDefault,omitempty"`
}

type genesisJSON struct {
	Raw rawGenesisJSON `json:"raw"`
}

// specJSON is the on-disk chain-spec document shape, matching
// Substrate's own chain-spec convention.
type specJSON struct {
	Name       string      `json:"name"`
	ID         string      `json:"id"`
	ProtocolID string      `json:"protocolId,omitempty"`
	BootNodes  []string    `json:"bootNodes,omitempty"`
	Genesis    genesisJSON `json:"genesis"`
}

// RawGenesis is the decoded genesis storage: a flat key/value top
// trie plus zero or more child tries.
type RawGenesis struct {
	Top             map[string][]byte
	ChildrenDefault map[string]map[string][]byte
}

// Spec is a parsed and validated chain specification.
type Spec struct {
	Name       string
	ID         string
	ProtocolID string
	BootNodes  []string
	Genesis    RawGenesis
}

// ErrEmptyChainID is returned when the chain spec's "id" field is
// missing, mirroring the teacher's own chain-ID validation.
var ErrEmptyChainID = fmt.Errorf("chainspec: chain id must not be empty")

// FromFile reads and parses a chain spec JSON file.
func FromFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain spec: %w", err)
	}
	return FromJSON(data)
}

// FromJSON parses and validates a chain spec JSON document.
func FromJSON(data []byte) (*Spec, error) {
	var doc specJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse chain spec: %w", err)
	}

	spec := &Spec{
		Name:       doc.Name,
		ID:         doc.ID,
		ProtocolID: doc.ProtocolID,
		BootNodes:  doc.BootNodes,
	}

	top, err := decodeHexMap(doc.Genesis.Raw.Top)
	if err != nil {
		return nil, fmt.Errorf("decode genesis top: %w", err)
	}
	spec.Genesis.Top = top

	if len(doc.Genesis.Raw.ChildrenDefault) > 0 {
		spec.Genesis.ChildrenDefault = make(map[string]map[string][]byte, len(doc.Genesis.Raw.ChildrenDefault))
		for child, kv := range doc.Genesis.Raw.ChildrenDefault {
			decoded, err := decodeHexMap(kv)
			if err != nil {
				return nil, fmt.Errorf("decode genesis child %q: %w", child, err)
			}
			spec.Genesis.ChildrenDefault[child] = decoded
		}
	}

	if err := spec.validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (s *Spec) validate() error {
	if s.ID == "" {
		return ErrEmptyChainID
	}
	return nil
}

func decodeHexMap(in map[string]string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(in))
	for k, v := range in {
		key, err := decodeHex(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		val, err := decodeHex(v)
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		out[string(key)] = val
	}
	return out, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// TrieBuilder is the injected trie-construction collaborator (spec.md
// §1 places the trie storage engine out of scope as a fixed external
// interface, mirroring statesync.TrieBackend's role for the download
// path).
type TrieBuilder interface {
	Put(key, value []byte) error
	Root() (types.Hash, error)
}

// NewTrieBuilder constructs an empty TrieBuilder, injected so the
// genesis-state computation stays independent of the concrete trie
// implementation backing it.
type NewTrieBuilder func() TrieBuilder

// ComputeStateRoot builds the genesis top trie (and any child tries),
// storing each child trie's root back into the top trie under
// childStorageDefaultPrefix+childID, per
// calculate_genesis_state.hpp's algorithm, and returns the resulting
// top-trie root as the block-zero state root.
func ComputeStateRoot(g RawGenesis, newTrie NewTrieBuilder) (types.Hash, error) {
	top := newTrie()
	for k, v := range g.Top {
		if err := top.Put([]byte(k), v); err != nil {
			return types.Hash{}, fmt.Errorf("insert top entry: %w", err)
		}
	}

	for child, kv := range g.ChildrenDefault {
		childTrie := newTrie()
		for k, v := range kv {
			if err := childTrie.Put([]byte(k), v); err != nil {
				return types.Hash{}, fmt.Errorf("insert child %q entry: %w", child, err)
			}
		}
		childRoot, err := childTrie.Root()
		if err != nil {
			return types.Hash{}, fmt.Errorf("compute child %q root: %w", child, err)
		}
		key := childStorageDefaultPrefix + child
		if err := top.Put([]byte(key), childRoot[:]); err != nil {
			return types.Hash{}, fmt.Errorf("insert child %q root: %w", child, err)
		}
	}

	return top.Root()
}
