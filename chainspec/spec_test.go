package chainspec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/types"
)

func TestFromJSONParsesRawGenesis(t *testing.T) {
	doc := []byte(`{
		"name": "Test Chain",
		"id": "test-chain",
		"protocolId": "tst",
		"bootNodes": ["/ip4/127.0.0.1/tcp/30333/p2p/12D3KooW..."],
		"genesis": {
			"raw": {
				"top": {"0x01": "0x02", "0x03": "0x04"},
				"childrenDefault": {
					"child1": {"0x0a": "0x0b"}
				}
			}
		}
	}`)

	spec, err := FromJSON(doc)
	require.NoError(t, err)
	require.Equal(t, "test-chain", spec.ID)
	require.Equal(t, "tst", spec.ProtocolID)
	require.Len(t, spec.BootNodes, 1)
	require.Equal(t, []byte{0x02}, spec.Genesis.Top[string([]byte{0x01})])
	require.Equal(t, []byte{0x0b}, spec.Genesis.ChildrenDefault["child1"][string([]byte{0x0a})])
}

func TestFromJSONRejectsEmptyChainID(t *testing.T) {
	_, err := FromJSON([]byte(`{"genesis": {"raw": {"top": {}}}}`))
	require.ErrorIs(t, err, ErrEmptyChainID)
}

func TestFromJSONRejectsMalformedHex(t *testing.T) {
	_, err := FromJSON([]byte(`{"id":"c","genesis":{"raw":{"top":{"zz":"0x01"}}}}`))
	require.Error(t, err)
}

type fakeTrie struct {
	entries map[string][]byte
	root    types.Hash
}

func newFakeTrie(root byte) *fakeTrie {
	return &fakeTrie{entries: make(map[string][]byte), root: types.Hash{root}}
}

func (t *fakeTrie) Put(key, value []byte) error {
	t.entries[string(key)] = value
	return nil
}

func (t *fakeTrie) Root() (types.Hash, error) { return t.root, nil }

func TestComputeStateRootStoresChildRootsInTop(t *testing.T) {
	g := RawGenesis{
		Top: map[string][]byte{"a": []byte("1")},
		ChildrenDefault: map[string]map[string][]byte{
			"c1": {"b": []byte("2")},
		},
	}

	var topTrie *fakeTrie
	seq := byte(0)
	newTrie := func() TrieBuilder {
		seq++
		trie := newFakeTrie(seq)
		if seq == 1 {
			topTrie = trie
		}
		return trie
	}

	root, err := ComputeStateRoot(g, newTrie)
	require.NoError(t, err)
	require.Equal(t, types.Hash{1}, root)
	require.Equal(t, []byte("1"), topTrie.entries["a"])
	childRoot := types.Hash{2}
	require.Equal(t, childRoot[:], topTrie.entries[childStorageDefaultPrefix+"c1"])
}
