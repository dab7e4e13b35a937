// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// arenaChainIndex adapts a (*BlockIndex, ArenaIx) pair to the
// blockchain.ChainIndex interface the versionbits engine consumes,
// keeping the arena's own representation out of C5 entirely (design
// note 9: ArenaIx is an implementation detail of C3, not something C5
// should import). MedianTimePast walks the same medianTimeBlocks window
// CalcPastMedianTime uses in Qitmeer's core/blockchain/blocknode.go.
type arenaChainIndex struct {
	bi *BlockIndex
	ix ArenaIx
}

// AsChainIndex wraps ix for use with the versionbits engine, or returns
// nil if ix is the null link.
func (bi *BlockIndex) AsChainIndex(ix ArenaIx) ChainIndex {
	if ix == nilIx {
		return nil
	}
	return arenaChainIndex{bi: bi, ix: ix}
}

func (a arenaChainIndex) Hash() chainhash.Hash { return a.bi.arena[a.ix].Hash }
func (a arenaChainIndex) Height() uint32       { return a.bi.arena[a.ix].Height }
func (a arenaChainIndex) Version() int32       { return a.bi.arena[a.ix].Version }

func (a arenaChainIndex) MedianTimePast() int64 {
	var times []uint32
	ix := a.ix
	for i := 0; i < medianTimeBlocks && ix != nilIx; i++ {
		times = append(times, a.bi.arena[ix].Time)
		ix = a.bi.arena[ix].Prev
	}
	if len(times) == 0 {
		return 0
	}
	sortUint32(times)
	return int64(times[len(times)/2])
}

func (a arenaChainIndex) Ancestor(height uint32) ChainIndex {
	ix := a.bi.Ancestor(a.ix, height)
	if ix == nilIx {
		return nil
	}
	return arenaChainIndex{bi: a.bi, ix: ix}
}

// sortUint32 is a small insertion sort: the window is at most
// medianTimeBlocks (11) elements, well below where a library sort would
// pay for itself.
func sortUint32(s []uint32) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
