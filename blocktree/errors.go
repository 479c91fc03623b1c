package blocktree

import "errors"

// Block-tree error category (spec.md §7). Callers use errors.Is
// against these sentinels rather than string-matching.
var (
	ErrParentNotFound = errors.New("blocktree: parent not found")
	ErrBlockExists    = errors.New("blocktree: block already exists")
	ErrBlockNotFound  = errors.New("blocktree: block not found")
	ErrNotALeaf       = errors.New("blocktree: block is not a leaf")
	ErrNoSuchChain    = errors.New("blocktree: no chain between given blocks")
	ErrTargetIsPastMax = errors.New("blocktree: target exceeds max number")
	ErrNotDescendant  = errors.New("blocktree: target is not a descendant of the finalized block")
)
