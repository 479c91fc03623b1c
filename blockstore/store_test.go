package blockstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/types"
)

// backends exercises every Store implementation against the same
// contract, mirroring the teacher's own style of testing an interface
// once per concrete backend rather than duplicating assertions.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "bolt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	badger, err := NewBadgerStore(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = badger.Close() })

	return map[string]Store{
		"mem":    NewMemStore(),
		"bolt":   bolt,
		"badger": badger,
	}
}

func TestStorePutGetHeader(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			header := types.Header{Number: 5, StateRoot: types.Hash{0x1}}
			hash := header.ComputeHash()

			ok, err := store.HasHeader(hash)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, store.PutHeader(hash, header))

			got, err := store.GetHeader(hash)
			require.NoError(t, err)
			require.Equal(t, header, got)

			ok, err = store.HasHeader(hash)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestStoreGetHeaderMissingReturnsErrNotFound(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetHeader(types.Hash{0xff})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStorePutGetBody(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			hash := types.Hash{0x2}
			body := types.Body{Extrinsics: []types.Extrinsic{[]byte("a"), []byte("bb")}}

			require.NoError(t, store.PutBody(hash, body))
			got, err := store.GetBody(hash)
			require.NoError(t, err)
			require.Equal(t, body, got)

			ok, err := store.HasBody(hash)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestStorePutGetJustification(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			hash := types.Hash{0x3}
			just := types.Justification{
				Round:      7,
				TargetHash: hash,
				PreCommits: []types.PreCommit{{TargetHash: hash, AuthorityIdx: 1}},
			}

			require.NoError(t, store.PutJustification(hash, just))
			got, err := store.GetJustification(hash)
			require.NoError(t, err)
			require.Equal(t, just, got)
		})
	}
}

func TestStoreLookupByNumber(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			hash := types.Hash{0x4}
			require.NoError(t, store.PutLookup(42, hash))

			got, err := store.GetHashByNumber(42)
			require.NoError(t, err)
			require.Equal(t, hash, got)

			_, err = store.GetHashByNumber(43)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreMeta(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.PutMeta(MetaGenesisHash, []byte{0x9, 0x9}))
			got, err := store.GetMeta(MetaGenesisHash)
			require.NoError(t, err)
			require.Equal(t, []byte{0x9, 0x9}, got)
		})
	}
}
