// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/stratachain/stratad/kvstore"
)

type fixedLastPoWBlock uint32

func (f fixedLastPoWBlock) LastPoWBlockHeight() uint32 { return uint32(f) }

type stubProofOfWorkChecker struct {
	reject map[chainhash.Hash]bool
}

func (s stubProofOfWorkChecker) CheckProofOfWork(hash chainhash.Hash, bits uint32) bool {
	return !s.reject[hash]
}

// writeChain persists a three-block linear chain (genesis, h1, h2) with
// genesis/h1 below lastPoW and h2 a proof-of-stake block above it,
// spending stakeTxid:0.
func writeChain(t *testing.T, bi *BlockIndex, stakeTxid chainhash.Hash) (genesis, h1, h2 chainhash.Hash) {
	t.Helper()
	genesis = hashFromByte(0x01)
	h1 = hashFromByte(0x02)
	h2 = hashFromByte(0x03)

	write := func(disk *diskBlockIndex) {
		data, err := serializeDiskBlockIndex(disk)
		require.NoError(t, err)
		batch := kvstore.NewBatch()
		batch.Put(hashKey(kvstore.TagBlockIndex, disk.Hash), data)
		require.NoError(t, bi.db.WriteBatch(batch))
	}
	write(&diskBlockIndex{Hash: genesis, Height: 0, Bits: 0x1d00ffff})
	write(&diskBlockIndex{Hash: h1, PrevHash: genesis, Height: 1, Bits: 0x1d00ffff})
	write(&diskBlockIndex{
		Hash: h2, PrevHash: h1, Height: 2, Bits: 0x1d00ffff,
		Status:           statusProofOfStake,
		PrevoutStakeTxid: stakeTxid,
		PrevoutStakeN:    0,
	})
	return genesis, h1, h2
}

// TestLoadBlockIndexGutsRoundTrip reconstructs a three-block chain from
// disk and checks prev links and heights come back correctly.
func TestLoadBlockIndexGutsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	bi := NewBlockIndex(db, fixedLastPoWBlock(1), nil)

	stakeTxid := hashFromByte(0x09)
	genesis, h1, h2 := writeChain(t, bi, stakeTxid)

	err := bi.LoadBlockIndexGuts(context.Background(), stubProofOfWorkChecker{})
	require.NoError(t, err)

	e0, ok := bi.LookupNode(genesis)
	require.True(t, ok)
	require.EqualValues(t, 0, e0.Height)

	e1, ok := bi.LookupNode(h1)
	require.True(t, ok)
	require.EqualValues(t, 1, e1.Height)

	e2, ok := bi.LookupNode(h2)
	require.True(t, ok)
	require.EqualValues(t, 2, e2.Height)
	require.True(t, e2.Status.IsProofOfStake())

	require.Equal(t, nilIx, e0.Prev)
	require.Equal(t, genesis, bi.Entry(e1.Prev).Hash)
	require.Equal(t, h1, bi.Entry(e2.Prev).Hash)

	require.True(t, bi.StakeSeen(stakeTxid, 0))
	require.False(t, bi.StakeSeen(stakeTxid, 1))
}

// TestLoadBlockIndexGutsRejectsBadProofOfWork checks that a PoW-era entry
// failing re-verification aborts the load with a consensus-severity error.
func TestLoadBlockIndexGutsRejectsBadProofOfWork(t *testing.T) {
	db := openTestDB(t)
	bi := NewBlockIndex(db, fixedLastPoWBlock(1), nil)

	stakeTxid := hashFromByte(0x09)
	_, h1, _ := writeChain(t, bi, stakeTxid)

	err := bi.LoadBlockIndexGuts(context.Background(), stubProofOfWorkChecker{
		reject: map[chainhash.Hash]bool{h1: true},
	})
	require.Error(t, err)
	loadErr, ok := err.(*LoadError)
	require.True(t, ok)
	require.Equal(t, SeverityConsensus, loadErr.Severity)
}

// TestLoadBlockIndexGutsNilCheckerSkipsReverification confirms a nil
// ProofOfWorkChecker (the reindex-without-validator path cmd/coredbd takes)
// loads without attempting re-verification.
func TestLoadBlockIndexGutsNilCheckerSkipsReverification(t *testing.T) {
	db := openTestDB(t)
	bi := NewBlockIndex(db, fixedLastPoWBlock(1), nil)

	stakeTxid := hashFromByte(0x09)
	writeChain(t, bi, stakeTxid)

	err := bi.LoadBlockIndexGuts(context.Background(), nil)
	require.NoError(t, err)
}

func TestAncestorWalksPrevLinks(t *testing.T) {
	db := openTestDB(t)
	bi := NewBlockIndex(db, fixedLastPoWBlock(100), nil)

	stakeTxid := hashFromByte(0x09)
	genesis, h1, h2 := writeChain(t, bi, stakeTxid)
	require.NoError(t, bi.LoadBlockIndexGuts(context.Background(), stubProofOfWorkChecker{}))

	tip, ok := bi.byHash[h2]
	require.True(t, ok)

	anc1 := bi.Ancestor(tip, 1)
	require.NotEqual(t, nilIx, anc1)
	require.Equal(t, h1, bi.Entry(anc1).Hash)

	anc0 := bi.Ancestor(tip, 0)
	require.Equal(t, genesis, bi.Entry(anc0).Hash)

	require.Equal(t, nilIx, bi.Ancestor(tip, 5))
}
