// Package digest interprets the consensus digests carried on headers
// (spec.md §3, §4.4 "observe_digests_and_validate_header") and keeps
// the per-block consensus configuration — active BABE epoch and
// GRANDPA authority set — that BlockValidator and JustificationApplier
// consult. It plays the role the teacher's internal/state.State plays
// for per-height consensus params, but keyed per-block rather than
// per-chain-tip since forks can carry different pending digests.
package digest

import (
	"sync"

	"github.com/polkadot-go/synccore/log"
	"github.com/polkadot-go/synccore/types"
)

// Authority is one GRANDPA voter, identified by its index into the
// authority set and its weight.
type Authority struct {
	Index  uint32
	Weight uint64
}

// AuthoritySet is the finite voter set active for a finality epoch
// (spec.md GLOSSARY "Authority set").
type AuthoritySet struct {
	ID         uint64
	Authorities []Authority
}

// TotalWeight sums the voting weight of the set, used by
// JustificationApplier to check supermajority.
func (s AuthoritySet) TotalWeight() uint64 {
	var total uint64
	for _, a := range s.Authorities {
		total += a.Weight
	}
	return total
}

// Epoch is a BABE epoch: a slot range sharing one authority list and
// randomness (spec.md GLOSSARY "Epoch").
type Epoch struct {
	Index          uint64
	StartSlot      uint64
	SlotDuration   uint64
	Randomness     [32]byte
}

// Config is the consensus configuration effective at a given block:
// which BABE epoch it falls in and which GRANDPA authority set is
// entitled to finalize it.
type Config struct {
	Epoch        Epoch
	Authorities  AuthoritySet
}

// ConfigRepository resolves the Config effective at a block, and is
// the target DigestTracker mutates as new epoch/authority-change
// digests are observed. Reads happen far more often than writes
// (every validated header vs. only blocks that carry a change
// digest), hence the RWMutex.
type ConfigRepository struct {
	mu sync.RWMutex

	// byBlock maps the hash of each block whose committed import
	// changed the config to the Config effective from that block.
	// setAt writes it and current together.
	byBlock map[types.Hash]Config
	current Config
}

func NewConfigRepository(genesis Config) *ConfigRepository {
	return &ConfigRepository{
		byBlock: make(map[types.Hash]Config),
		current: genesis,
	}
}

// ConfigAt returns the Config recorded for hash; if hash itself never
// carried a committed change it returns the most recently committed
// Config, whichever block that was recorded at. The ancestors of hash
// are not consulted.
func (r *ConfigRepository) ConfigAt(hash types.Hash) Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byBlock[hash]; ok {
		return c
	}
	return r.current
}

// setAt records the Config effective as of hash, and updates the
// running "current" pointer, matching the single-writer, sequential
// import loop's ordering guarantee (spec.md §5).
func (r *ConfigRepository) setAt(hash types.Hash, c Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byBlock[hash] = c
	r.current = c
}

// forget drops a block's recorded config once BlockTree prunes it, so
// byBlock does not grow unboundedly across finalization.
func (r *ConfigRepository) forget(hash types.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byBlock, hash)
}

// PendingChange is a consensus-epoch mutation derived from a header's
// digests, held by an ObservationScope until commit or rollback
// (spec.md §4.4 "ObservationScope").
type PendingChange struct {
	hash   types.Hash
	config Config
}

// DigestTracker interprets a header's digest list and produces a
// scoped ObservationScope the import loop commits on successful
// validation/execution and rolls back on failure — mirroring the
// teacher's pattern of never letting partial consensus-state mutation
// survive a failed block application.
type DigestTracker struct {
	logger log.Logger
	repo   *ConfigRepository
}

func NewDigestTracker(repo *ConfigRepository, logger log.Logger) *DigestTracker {
	if logger == nil {
		logger = log.NopLogger()
	}
	return &DigestTracker{logger: logger, repo: repo}
}

// Observe interprets h's digests against the config active at
// h.ParentHash and returns an ObservationScope. It never mutates
// repo directly; callers must Commit or Rollback the returned scope
// exactly once (spec.md §4.4 invariant: "no partial digest
// application survives a failed import").
func (t *DigestTracker) Observe(hash types.Hash, h types.Header) *ObservationScope {
	parentConfig := t.repo.ConfigAt(h.ParentHash)
	next := parentConfig
	changed := false

	for _, d := range h.Digests {
		if d.IsScheduledAuthorityChange() {
			next.Authorities = decodeAuthoritySet(d.Payload)
			changed = true
			t.logger.Info("scheduled authority-set change observed", "block", hash, "authority_set_id", next.Authorities.ID)
		}
	}
	if crossesEpochBoundary(parentConfig.Epoch, h.Number) {
		next.Epoch.Index++
		next.Epoch.StartSlot = uint64(h.Number)
		changed = true
	}

	return &ObservationScope{
		tracker: t,
		change:  PendingChange{hash: hash, config: next},
		changed: changed,
	}
}

// ObservationScope is the RAII-style guard spec.md §4.4 describes,
// translated to Go's explicit Commit/Rollback since Go has no
// destructors: the import loop must call exactly one of the two.
type ObservationScope struct {
	tracker *DigestTracker
	change  PendingChange
	changed bool
	done    bool
}

// PreviewConfig returns the consensus config this scope will make
// effective on Commit, so a caller (validation.BlockValidator) can
// verify a header's VRF claim and signature against it before
// deciding whether to commit or roll the scope back.
func (s *ObservationScope) PreviewConfig() Config {
	return s.change.config
}

// Commit makes the observed consensus-config change durable. Safe to
// call even when nothing changed (a no-op in that case).
func (s *ObservationScope) Commit() {
	if s.done {
		return
	}
	s.done = true
	if s.changed {
		s.tracker.repo.setAt(s.change.hash, s.change.config)
	}
}

// Rollback discards the observed change. Called when validation or
// execution fails after digests were interpreted but before the block
// is accepted.
func (s *ObservationScope) Rollback() {
	s.done = true
}

// Forget releases a pruned block's recorded config (BlockTree's
// discard callback wires into this).
func (t *DigestTracker) Forget(hash types.Hash) {
	t.repo.forget(hash)
}

func crossesEpochBoundary(cur Epoch, number types.BlockNumber) bool {
	if cur.SlotDuration == 0 {
		return false
	}
	return uint64(number) > 0 && uint64(number)%cur.SlotDuration == 0
}

func decodeAuthoritySet(payload []byte) AuthoritySet {
	// payload[0] is the change-tag checked by IsScheduledAuthorityChange,
	// payload[1:9] the big-endian set ID, and the rest a sequence of
	// 12-byte records: big-endian u32 authority index, then big-endian
	// u64 weight. Trailing bytes short of a full record are ignored.
	if len(payload) < 9 {
		return AuthoritySet{}
	}
	id := beUint64(payload[1:9])
	count := int(len(payload)-9) / 12
	set := AuthoritySet{ID: id, Authorities: make([]Authority, 0, count)}
	off := 9
	for i := 0; i < count; i++ {
		idx := beUint32(payload[off : off+4])
		weight := beUint64(payload[off+4 : off+12])
		set.Authorities = append(set.Authorities, Authority{Index: idx, Weight: weight})
		off += 12
	}
	return set
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
