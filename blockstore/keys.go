package blockstore

import (
	"github.com/google/orderedcode"
	"github.com/polkadot-go/synccore/types"
)

// hashKey builds a lexicographically-ordered key from a space tag and
// a hash, following the same orderedcode composite-key idiom the
// teacher's own internal/store package uses for its blockMetaKey.
func hashKey(space Space, hash types.Hash) []byte {
	key, err := orderedcode.Append(nil, int64(space), string(hash[:]))
	if err != nil {
		panic(err) // orderedcode only fails on unsupported types; can't happen here.
	}
	return key
}

// numberKey builds a key ordered by BlockNumber within SpaceLookupKey,
// so keys sort by ascending height — used by the store backends for
// the PutLookup/GetHashByNumber index.
func numberKey(number types.BlockNumber) []byte {
	key, err := orderedcode.Append(nil, int64(SpaceLookupKey), int64(number))
	if err != nil {
		panic(err)
	}
	return key
}

func metaKey(name string) []byte {
	key, err := orderedcode.Append(nil, int64(SpaceMeta), name)
	if err != nil {
		panic(err)
	}
	return key
}
