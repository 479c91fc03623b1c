package blocktree

import "github.com/polkadot-go/synccore/types"

// Weight is the pair (primary_votes_in_chain, number) spec.md §4.1
// uses for best-chain selection: higher primary-VRF count along the
// chain from root wins, ties broken by higher number, ties on that
// broken by hash (see Greater).
type Weight struct {
	PrimaryCount uint64
	Number       types.BlockNumber
}

// Child returns the weight of a block built on top of a node with
// this weight, given whether that block claims a primary BABE slot.
func (w Weight) Child(primary bool) Weight {
	next := Weight{PrimaryCount: w.PrimaryCount, Number: w.Number + 1}
	if primary {
		next.PrimaryCount++
	}
	return next
}

// Greater reports whether (w, hash) strictly outranks (other, otherHash)
// under the ordering spec.md §4.1 describes. The decision to break
// remaining ties by raw byte comparison of the hash is recorded as an
// Open Question resolution in DESIGN.md.
func (w Weight) Greater(hash types.Hash, other Weight, otherHash types.Hash) bool {
	if w.PrimaryCount != other.PrimaryCount {
		return w.PrimaryCount > other.PrimaryCount
	}
	if w.Number != other.Number {
		return w.Number > other.Number
	}
	return !hash.Less(otherHash) && hash != otherHash
}
