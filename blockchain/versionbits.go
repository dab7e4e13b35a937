// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// The threshold-state engine is grounded primarily on
// original_source/src/versionbits.cpp's AbstractThresholdConditionChecker,
// since Qitmeer's core/blockchain/versionbits.go never carries a
// thresholdState cache implementation of its own (only the checker
// interface and CalcNextBlockVersion consume one); the checker-interface
// and per-deployment cache-map shape below follows Qitmeer's idiom.
package blockchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/stratachain/stratad/chaincfg"
)

// ThresholdState is the BIP9 per-deployment activation state.
type ThresholdState int

const (
	ThresholdDefined ThresholdState = iota
	ThresholdStarted
	ThresholdLockedIn
	ThresholdActive
	ThresholdFailed
)

func (s ThresholdState) String() string {
	switch s {
	case ThresholdDefined:
		return "defined"
	case ThresholdStarted:
		return "started"
	case ThresholdLockedIn:
		return "locked_in"
	case ThresholdActive:
		return "active"
	case ThresholdFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// versionBitsTopMask/versionBitsTopBits are the fixed high bits every
// signaling block version must carry for Condition to consider its
// low bits meaningful.
const (
	versionBitsTopMask uint32 = 0xe0000000
	versionBitsTopBits uint32 = 0x20000000
)

// ChainIndex is the narrow slice of a block-index entry the threshold
// engine needs: enough to align on periods and inspect signaling bits
// without depending on blockchain's own arena (ArenaIx) representation,
// so callers can supply a lightweight adapter over their actual chain.
type ChainIndex interface {
	Hash() chainhash.Hash
	Height() uint32
	MedianTimePast() int64
	Version() int32
	// Ancestor returns the ancestor at height, or nil if none (i.e. below
	// the genesis entry — the "null pointer" case).
	Ancestor(height uint32) ChainIndex
}

// Condition reports whether block b signals for deployment d: its
// version carries the fixed top bits and has d.Bit set, per the
// Condition(b) definition.
func Condition(b ChainIndex, d chaincfg.Deployment) bool {
	v := uint32(b.Version())
	return v&versionBitsTopMask == versionBitsTopBits && v&(1<<uint(d.Bit)) != 0
}

// alignedAncestor returns the last block of the period preceding the one
// containing indexPrev's successor (indexPrev itself when it ends a
// period), i.e. the canonical representative used as the
// deployment-state cache key. A nil indexPrev (the genesis parent) aligns
// to nil.
func alignedAncestor(indexPrev ChainIndex, period uint32) ChainIndex {
	if indexPrev == nil {
		return nil
	}
	// Computed in int64 rather than uint32 since, for a block within the
	// first period, h - ((h+1) % period) is negative: the aligned
	// ancestor is below genesis, i.e. the null pointer.
	h := int64(indexPrev.Height())
	aligned := h - ((h + 1) % int64(period))
	if aligned < 0 {
		return nil
	}
	return indexPrev.Ancestor(uint32(aligned))
}

// DeploymentCache memoizes ThresholdState per-deployment, keyed on block
// hash rather than a pointer: keying a map on index pointers is a
// memory-identity contract that breaks across reloads, so the cache
// instead keys on block hash to avoid address-identity assumptions. A
// nil aligned ancestor (the genesis parent) is represented by the zero
// hash, which can never collide with
// a real block hash's alignment since genesis itself is never an aligned
// ancestor of anything.
type DeploymentCache struct {
	cache map[chainhash.Hash]ThresholdState
}

// NewDeploymentCache returns an empty cache for one deployment.
func NewDeploymentCache() *DeploymentCache {
	return &DeploymentCache{cache: make(map[chainhash.Hash]ThresholdState)}
}

// Clear empties the cache, for use when a reorganization invalidates
// cached states: the cache is not safe to reuse across an arbitrary
// reorganization without this call.
func (c *DeploymentCache) Clear() {
	c.cache = make(map[chainhash.Hash]ThresholdState)
}

func hashOfIndex(idx ChainIndex) chainhash.Hash {
	if idx == nil {
		return chainhash.Hash{}
	}
	return idx.Hash()
}

// State computes state(indexPrev) for deployment d, following the
// cache-population algorithm: align, walk backward pushing uncached
// aligned ancestors until reaching a cached entry, null, or an ancestor
// whose MTP predates the deployment's start, then unwind applying the
// transition table.
func (c *DeploymentCache) State(indexPrev ChainIndex, d chaincfg.Deployment) ThresholdState {
	if d.StartTime == chaincfg.ALWAYS_ACTIVE {
		return ThresholdActive
	}

	aligned := alignedAncestor(indexPrev, d.Period)

	var stack []ChainIndex
	for aligned != nil {
		if _, ok := c.cache[hashOfIndex(aligned)]; ok {
			break
		}
		if aligned.MedianTimePast() < d.StartTime {
			c.cache[hashOfIndex(aligned)] = ThresholdDefined
			break
		}
		stack = append(stack, aligned)
		if aligned.Height() < d.Period {
			aligned = nil
		} else {
			aligned = aligned.Ancestor(aligned.Height() - d.Period)
		}
	}

	state := ThresholdDefined
	if aligned != nil {
		state = c.cache[hashOfIndex(aligned)]
	}

	for i := len(stack) - 1; i >= 0; i-- {
		idx := stack[i]
		next := nextState(state, idx, d)
		if next != state {
			log.Infof("deployment bit %d: %s -> %s at %s", d.Bit, state, next, idx.Hash())
		}
		state = next
		c.cache[hashOfIndex(idx)] = state
	}
	return state
}

// nextState applies the BIP9 transition table for aligned
// block idx given previous state s.
func nextState(s ThresholdState, idx ChainIndex, d chaincfg.Deployment) ThresholdState {
	mtp := idx.MedianTimePast()
	switch s {
	case ThresholdDefined:
		switch {
		case mtp >= d.Timeout:
			return ThresholdFailed
		case mtp >= d.StartTime:
			return ThresholdStarted
		default:
			return ThresholdDefined
		}
	case ThresholdStarted:
		if mtp >= d.Timeout {
			return ThresholdFailed
		}
		if countSignaling(idx, d) >= d.Threshold {
			return ThresholdLockedIn
		}
		return ThresholdStarted
	case ThresholdLockedIn:
		return ThresholdActive
	case ThresholdActive:
		return ThresholdActive
	case ThresholdFailed:
		return ThresholdFailed
	default:
		return s
	}
}

// countSignaling counts how many of the d.Period blocks ending at
// (and including) idx have Condition(b) true.
func countSignaling(idx ChainIndex, d chaincfg.Deployment) uint32 {
	var count uint32
	cur := idx
	for i := uint32(0); i < d.Period && cur != nil; i++ {
		if Condition(cur, d) {
			count++
		}
		if cur.Height() == 0 {
			break
		}
		cur = cur.Ancestor(cur.Height() - 1)
	}
	return count
}

// Statistics is the GetStateStatisticsFor result.
type Statistics struct {
	Period    uint32
	Threshold uint32
	Elapsed   uint32
	Count     uint32
	Possible  bool
}

// GetStateStatisticsFor computes Statistics for idx under deployment d:
// elapsed/count since the end of the previous period, and whether
// lock-in remains mathematically possible given blocks remaining.
func GetStateStatisticsFor(idx ChainIndex, d chaincfg.Deployment) Statistics {
	n := d.Period

	h := int64(idx.Height())
	endOfPrevHeight := h - ((h + 1) % int64(n))
	var endOfPrev ChainIndex
	if endOfPrevHeight >= 0 {
		endOfPrev = idx.Ancestor(uint32(endOfPrevHeight))
	}

	elapsed := uint32(h - endOfPrevHeight)
	var count uint32
	cur := idx
	for cur != nil && int64(cur.Height()) > endOfPrevHeight {
		if Condition(cur, d) {
			count++
		}
		if cur.Height() == 0 {
			break
		}
		cur = cur.Ancestor(cur.Height() - 1)
	}
	_ = endOfPrev

	possible := (n - d.Threshold) >= (elapsed - count)
	return Statistics{Period: n, Threshold: d.Threshold, Elapsed: elapsed, Count: count, Possible: possible}
}

// StartingHeightOfBlockIndexState returns the smallest height whose
// aligned ancestor has the same state as indexPrev currently does, per
// since-height algorithm.
func (c *DeploymentCache) StartingHeightOfBlockIndexState(indexPrev ChainIndex, d chaincfg.Deployment) uint32 {
	state := c.State(indexPrev, d)
	if state == ThresholdDefined {
		return 0
	}

	aligned := alignedAncestor(indexPrev, d.Period)
	for {
		var prevAligned ChainIndex
		if aligned.Height() >= d.Period {
			prevAligned = aligned.Ancestor(aligned.Height() - d.Period)
		}
		if prevAligned == nil {
			break
		}
		if c.cache[hashOfIndex(prevAligned)] != state {
			break
		}
		aligned = prevAligned
	}
	return aligned.Height() + 1
}
