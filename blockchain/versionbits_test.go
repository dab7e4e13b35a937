// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/stratachain/stratad/chaincfg"
)

// fakeIndex is a minimal in-memory ChainIndex chain for exercising the
// versionbits engine without going through the arena-backed BlockIndex.
type fakeIndex struct {
	height  uint32
	version int32
	mtp     int64
	prev    *fakeIndex
}

func (f *fakeIndex) Hash() chainhash.Hash {
	var h chainhash.Hash
	h[0] = byte(f.height)
	h[1] = byte(f.height >> 8)
	return h
}
func (f *fakeIndex) Height() uint32        { return f.height }
func (f *fakeIndex) MedianTimePast() int64 { return f.mtp }
func (f *fakeIndex) Version() int32        { return f.version }
func (f *fakeIndex) Ancestor(height uint32) ChainIndex {
	cur := f
	for cur != nil {
		if cur.height == height {
			return cur
		}
		if cur.height < height {
			return nil
		}
		cur = cur.prev
	}
	return nil
}

// buildChain constructs a chain of n blocks (heights 0..n-1), each with
// the given medianTimePast and version.
func buildChain(mtps []int64, versions []int32) *fakeIndex {
	var prev *fakeIndex
	var tip *fakeIndex
	for i := range mtps {
		tip = &fakeIndex{height: uint32(i), version: versions[i], mtp: mtps[i], prev: prev}
		prev = tip
	}
	return tip
}

const signalingVersion = int32(0x20000000) // top bits set, no extra signal bits

func withBit(bit uint8) int32 {
	return signalingVersion | (1 << bit)
}

// TestVersionbitsActivation walks a 40-block chain across four
// ten-block periods and checks the Defined/Started/LockedIn/Active
// progression.
func TestVersionbitsActivation(t *testing.T) {
	d := chaincfg.Deployment{Bit: 0, StartTime: 100, Timeout: 1000, Period: 10, Threshold: 8}

	var mtps []int64
	var versions []int32
	for i := 0; i < 10; i++ {
		mtps = append(mtps, 50)
		versions = append(versions, signalingVersion)
	}
	for i := 0; i < 10; i++ {
		mtps = append(mtps, 150)
		if i < 8 {
			versions = append(versions, withBit(d.Bit))
		} else {
			versions = append(versions, signalingVersion)
		}
	}
	for i := 0; i < 20; i++ {
		mtps = append(mtps, 200)
		versions = append(versions, withBit(d.Bit))
	}
	tip := buildChain(mtps, versions)

	cache := NewDeploymentCache()

	period1End := tip.Ancestor(9)
	require.Equal(t, ThresholdDefined, cache.State(period1End.Ancestor(period1End.Height()-1), d))

	period2End := tip.Ancestor(19)
	require.Equal(t, ThresholdStarted, cache.State(period2End, d))

	period3End := tip.Ancestor(29)
	require.Equal(t, ThresholdLockedIn, cache.State(period3End, d))

	require.Equal(t, ThresholdActive, cache.State(tip, d))
}

// TestVersionbitsAlwaysActive checks that an ALWAYS_ACTIVE deployment
// reports Active without ever touching the cache.
func TestVersionbitsAlwaysActive(t *testing.T) {
	d := chaincfg.Deployment{Bit: 0, StartTime: chaincfg.ALWAYS_ACTIVE, Timeout: 0, Period: 10, Threshold: 8}
	cache := NewDeploymentCache()

	tip := buildChain([]int64{1, 2, 3}, []int32{0, 0, 0})
	require.Equal(t, ThresholdActive, cache.State(tip, d))
	require.Empty(t, cache.cache)
}

// TestStatisticsAtMidPeriod checks GetStateStatisticsFor midway through
// a retarget period.
func TestStatisticsAtMidPeriod(t *testing.T) {
	d := chaincfg.Deployment{Bit: 0, StartTime: 0, Timeout: 999999999999, Period: 2016, Threshold: 1916}

	height := uint32(2015 + 1000)
	var mtps []int64
	var versions []int32
	for i := uint32(0); i <= height; i++ {
		mtps = append(mtps, int64(i))
		if i > 2015 && i <= 2015+900 {
			versions = append(versions, withBit(d.Bit))
		} else {
			versions = append(versions, signalingVersion)
		}
	}
	tip := buildChain(mtps, versions)

	stats := GetStateStatisticsFor(tip, d)
	require.EqualValues(t, 2016, stats.Period)
	require.EqualValues(t, 1916, stats.Threshold)
	require.EqualValues(t, 1000, stats.Elapsed)
	require.EqualValues(t, 900, stats.Count)
	require.True(t, stats.Possible)
}

func TestVersionbitsMonotonicity(t *testing.T) {
	d := chaincfg.Deployment{Bit: 1, StartTime: 100, Timeout: 300, Period: 5, Threshold: 3}

	var mtps []int64
	var versions []int32
	for i := 0; i < 100; i++ {
		mtps = append(mtps, int64(50+i*3))
		versions = append(versions, withBit(d.Bit))
	}
	tip := buildChain(mtps, versions)

	cache := NewDeploymentCache()
	prevState := ThresholdDefined
	seenActive, seenFailed := false, false
	for h := uint32(4); h < 100; h += d.Period {
		idx := tip.Ancestor(h)
		state := cache.State(idx, d)
		if seenActive {
			require.Equal(t, ThresholdActive, state, "Active must be absorbing")
		}
		if seenFailed {
			require.Equal(t, ThresholdFailed, state, "Failed must be absorbing")
		}
		require.GreaterOrEqualf(t, int(state), 0, "state must be valid")
		if prevState != ThresholdDefined {
			require.NotEqual(t, ThresholdDefined, state, "once left Defined, must never return")
		}
		if state == ThresholdActive {
			seenActive = true
		}
		if state == ThresholdFailed {
			seenFailed = true
		}
		prevState = state
	}
}
