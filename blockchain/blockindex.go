// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/stratachain/stratad/kvstore"
)

// blockStatus is a bitfield describing what is known about a block index
// entry's data and validity, in Qitmeer's core/blockchain/blocknode.go
// style.
type blockStatus uint32

const (
	statusDataStored blockStatus = 1 << iota
	statusValid
	statusValidateFailed
	statusInvalidAncestor
	statusProofOfStake
)

func (s blockStatus) HaveData() bool          { return s&statusDataStored != 0 }
func (s blockStatus) KnownValid() bool        { return s&statusValid != 0 }
func (s blockStatus) KnownInvalid() bool      { return s&statusValidateFailed != 0 }
func (s blockStatus) IsProofOfStake() bool    { return s&statusProofOfStake != 0 }

// ArenaIx is an index into a BlockIndex's arena of entries: the block-index
// forest is represented as values in an append-only arena with back/forward
// links expressed as ArenaIx rather than raw pointers, so hashing or
// comparing an entry never depends on its address. nilIx is reserved to
// mean "no such link" (the genesis parent, or an unresolved nextHash).
type ArenaIx int32

const nilIx ArenaIx = -1

// IndexEntry is one node of the block-index forest: the on-disk block
// index entry record, plus the ArenaIx links substituted for raw
// prevHash/nextHash pointers once interned.
type IndexEntry struct {
	Hash   chainhash.Hash
	Prev   ArenaIx
	Next   ArenaIx
	Height uint32

	File     uint32
	DataPos  uint32
	UndoPos  uint32

	Version     int32
	MerkleRoot  chainhash.Hash
	Time        uint32
	Bits        uint32
	Nonce       uint32
	Status      blockStatus
	TxCount     uint32

	// Proof-of-stake fields, populated only when Status.IsProofOfStake().
	StakeModifier     uint64
	PrevoutStakeTxid  chainhash.Hash
	PrevoutStakeN     uint32
	StakeTime         uint32
	HashProofOfStake  chainhash.Hash

	// Money/mint accounting and lottery/treasury fields, opaque beyond
	// their storage shape at this layer.
	MoneySupply         int64
	LotteryWinners      [][]byte
	AccumulatorCheckpoint chainhash.Hash
}

// stakeOutpoint identifies a staked output for the process-wide
// stake-seen set populated during block-index load.
type stakeOutpoint struct {
	Txid chainhash.Hash
	N    uint32
}

// blockIndexMetrics are the non-contractual load-time counters reported
// via rcrowley/go-metrics, mirroring coinsViewMetrics.
type blockIndexMetrics struct {
	loadCount     metrics.Counter
	loadCancelled metrics.Counter
}

func newBlockIndexMetrics(r metrics.Registry) *blockIndexMetrics {
	m := &blockIndexMetrics{
		loadCount:     metrics.NewCounter(),
		loadCancelled: metrics.NewCounter(),
	}
	r.Register("blockindex.load.count", m.loadCount)
	r.Register("blockindex.load.cancelled", m.loadCancelled)
	return m
}

// BlockIndex owns the arena of IndexEntry values and the hash → ArenaIx
// interning map, plus the process-wide stake-seen set NodeContext folds
// in. Mutated only under the caller's chain-state lock; the mutex here
// guards against accidental concurrent use, it is not the primary
// synchronization mechanism.
type BlockIndex struct {
	db     kvstore.DB
	params LastPoWBlockProvider

	mu        sync.RWMutex
	arena     []IndexEntry
	byHash    map[chainhash.Hash]ArenaIx
	dirty     map[ArenaIx]struct{}
	stakeSeen map[stakeOutpoint]struct{}

	metrics *blockIndexMetrics
}

// LastPoWBlockProvider is the narrow slice of chaincfg.Params this
// package depends on, kept as an interface so tests can supply a bare
// struct instead of a full chaincfg.Params.
type LastPoWBlockProvider interface {
	LastPoWBlockHeight() uint32
}

// NewBlockIndex creates an empty forest backed by db. A nil registry
// gets its own private metrics.Registry, matching NewCoinsViewCache's
// convention.
func NewBlockIndex(db kvstore.DB, params LastPoWBlockProvider, registry metrics.Registry) *BlockIndex {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &BlockIndex{
		db:        db,
		params:    params,
		byHash:    make(map[chainhash.Hash]ArenaIx),
		dirty:     make(map[ArenaIx]struct{}),
		stakeSeen: make(map[stakeOutpoint]struct{}),
		metrics:   newBlockIndexMetrics(registry),
	}
}

// insertBlockIndex is the interning routine the load algorithm calls:
// look up hash, or append a fresh zero-valued entry and return its new
// index. Mirrors Qitmeer's AddNode/lookupNode pair in
// core/blockchain/blockindex.go, collapsed into one call the way the
// original C++'s InsertBlockIndex does.
func (bi *BlockIndex) insertBlockIndex(hash chainhash.Hash) ArenaIx {
	if ix, ok := bi.byHash[hash]; ok {
		return ix
	}
	ix := ArenaIx(len(bi.arena))
	bi.arena = append(bi.arena, IndexEntry{Hash: hash, Prev: nilIx, Next: nilIx})
	bi.byHash[hash] = ix
	return ix
}

// LookupNode returns the entry for hash, if interned.
func (bi *BlockIndex) LookupNode(hash chainhash.Hash) (*IndexEntry, bool) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	ix, ok := bi.byHash[hash]
	if !ok {
		return nil, false
	}
	return &bi.arena[ix], true
}

// HaveBlock reports whether hash has been interned at all (not
// necessarily with data stored).
func (bi *BlockIndex) HaveBlock(hash chainhash.Hash) bool {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	_, ok := bi.byHash[hash]
	return ok
}

// Ancestor walks Prev links from ix, returning the entry at the
// requested height, or nilIx if height is out of range. O(depth); a
// skip-list-style GetAncestor is not implemented here since this
// package's scope stops at persistence and reconstruction, not chain
// traversal performance (that belongs to the block validator).
func (bi *BlockIndex) Ancestor(ix ArenaIx, height uint32) ArenaIx {
	for ix != nilIx {
		e := &bi.arena[ix]
		if e.Height == height {
			return ix
		}
		if e.Height < height {
			return nilIx
		}
		ix = e.Prev
	}
	return nilIx
}

// Entry dereferences ix. Panics on nilIx; callers are expected to check
// against nilIx first, matching the null-pointer convention used for
// the genesis parent.
func (bi *BlockIndex) Entry(ix ArenaIx) *IndexEntry {
	return &bi.arena[ix]
}

// markDirty adds ix to the dirty set. WriteBlockIndex does not consult
// this set; it writes whichever entry it is given.
func (bi *BlockIndex) markDirty(ix ArenaIx) {
	bi.dirty[ix] = struct{}{}
}

// StakeSeen reports whether (txid, n) has already been recorded as a
// spent stake; it does not record anything (see RecordStakeSeen). The set
// is append-only during steady state and populated wholesale during load.
func (bi *BlockIndex) StakeSeen(txid chainhash.Hash, n uint32) bool {
	bi.mu.RLock()
	_, seen := bi.stakeSeen[stakeOutpoint{txid, n}]
	bi.mu.RUnlock()
	return seen
}

// RecordStakeSeen inserts (txid, n) into the stake-seen set.
func (bi *BlockIndex) RecordStakeSeen(txid chainhash.Hash, n uint32) {
	bi.mu.Lock()
	bi.stakeSeen[stakeOutpoint{txid, n}] = struct{}{}
	bi.mu.Unlock()
}

// ProofOfWorkChecker supplies the collaborator contract the block
// validator implements: CheckProofOfWork.
type ProofOfWorkChecker interface {
	CheckProofOfWork(hash chainhash.Hash, bits uint32) bool
}

// LoadBlockIndexGuts reconstructs the forest from every 'b'-keyed record
// in key order. It re-verifies proof-of-work for every
// entry at or below the configured LastPoWBlock height and, independently
// of height, adds every entry flagged proof-of-stake to the stake-seen set.
func (bi *BlockIndex) LoadBlockIndexGuts(ctx context.Context, pow ProofOfWorkChecker) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	log.Infof("loading block index")

	cur := bi.db.Iterator(ctx, []byte{byte(kvstore.TagBlockIndex)})
	defer cur.Close()

	lastPoW := bi.params.LastPoWBlockHeight()

	for cur.Valid() {
		key := cur.Key()
		if len(key) == 0 || key[0] != byte(kvstore.TagBlockIndex) {
			break
		}

		disk, err := deserializeDiskBlockIndex(cur.Value())
		if err != nil {
			return &LoadError{Severity: SeverityCorruption, Cause: err}
		}

		ix := bi.insertBlockIndex(disk.Hash)

		// Intern the links before taking a pointer into the arena: an
		// insert may grow (and so move) the arena.
		prevIx, nextIx := nilIx, nilIx
		if disk.PrevHash != (chainhash.Hash{}) {
			prevIx = bi.insertBlockIndex(disk.PrevHash)
		}
		if disk.NextHash != (chainhash.Hash{}) {
			nextIx = bi.insertBlockIndex(disk.NextHash)
		}

		entry := &bi.arena[ix]
		*entry = diskBlockIndexToEntry(disk)
		entry.Hash = disk.Hash
		entry.Prev = prevIx
		entry.Next = nextIx

		if entry.Height <= lastPoW {
			if pow != nil && !pow.CheckProofOfWork(entry.Hash, entry.Bits) {
				log.Errorf("block %s at height %d fails proof-of-work re-verification", entry.Hash, entry.Height)
				return &LoadError{
					Severity: SeverityConsensus,
					Cause:    errors.Errorf("block %s at height %d fails proof-of-work re-verification", entry.Hash, entry.Height),
				}
			}
		}
		if entry.Status.IsProofOfStake() {
			bi.stakeSeen[stakeOutpoint{entry.PrevoutStakeTxid, entry.PrevoutStakeN}] = struct{}{}
		}

		bi.metrics.loadCount.Inc(1)
		cur.Next()
	}
	if cur.Cancelled() {
		bi.metrics.loadCancelled.Inc(1)
		log.Warnf("load block index cancelled")
		return context.Canceled
	}
	log.Infof("loaded block index: %d entries", len(bi.arena))
	return nil
}

// WriteBlockIndex persists a single entry's current in-memory state.
func (bi *BlockIndex) WriteBlockIndex(ix ArenaIx) error {
	bi.mu.RLock()
	entry := bi.arena[ix]
	bi.mu.RUnlock()

	disk := entryToDiskBlockIndex(&entry, bi.hashOf(entry.Prev), bi.hashOf(entry.Next))
	data, err := serializeDiskBlockIndex(disk)
	if err != nil {
		return errors.Wrap(err, "WriteBlockIndex")
	}
	batch := kvstore.NewBatch()
	batch.Put(hashKey(kvstore.TagBlockIndex, entry.Hash), data)
	if err := bi.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteBlockIndex")
	}
	return nil
}

func (bi *BlockIndex) hashOf(ix ArenaIx) chainhash.Hash {
	if ix == nilIx {
		return chainhash.Hash{}
	}
	return bi.arena[ix].Hash
}
