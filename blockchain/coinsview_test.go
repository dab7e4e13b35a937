// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/stratachain/stratad/kvstore/bboltstore"
)

func openTestDB(t *testing.T) *bboltstore.DB {
	t.Helper()
	db, err := bboltstore.Open(filepath.Join(t.TempDir(), "chainstate.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

// TestCoinsFlushRoundTrip exercises insert, flush, reload, partial spend,
// and full prune across three flushes.
func TestCoinsFlushRoundTrip(t *testing.T) {
	db := openTestDB(t)
	view := NewCoinsViewDB(db)
	cache, err := NewCoinsViewCache(view, nil)
	require.NoError(t, err)

	txid := hashFromByte(0x01)
	h1 := hashFromByte(0xa1)
	h2 := hashFromByte(0xa2)
	h3 := hashFromByte(0xa3)

	coins, err := cache.ModifyCoins(txid)
	require.NoError(t, err)
	coins.Coinbase = false
	coins.Height = 10
	coins.Outputs = []*TxOut{
		{Value: 500, Script: []byte("S1")},
		{Value: 700, Script: []byte("S2")},
	}
	require.NoError(t, cache.Flush(h1))

	freshCache, err := NewCoinsViewCache(view, nil)
	require.NoError(t, err)
	got, err := freshCache.GetCoins(txid)
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(700), got.Outputs[1].Value)

	mutable, err := freshCache.ModifyCoins(txid)
	require.NoError(t, err)
	require.NoError(t, mutable.Spend(0))
	require.NoError(t, freshCache.Flush(h2))

	view2 := NewCoinsViewDB(db)
	stored, err := view2.GetCoins(txid)
	require.NoError(t, err)
	require.Nil(t, stored.Outputs[0])
	require.Equal(t, btcutil.Amount(700), stored.Outputs[1].Value)

	thirdCache, err := NewCoinsViewCache(view2, nil)
	require.NoError(t, err)
	mutable2, err := thirdCache.ModifyCoins(txid)
	require.NoError(t, err)
	require.NoError(t, mutable2.Spend(1))
	require.NoError(t, thirdCache.Flush(h3))

	have, err := view2.HaveCoins(txid)
	require.NoError(t, err)
	require.False(t, have)
}

// TestStatsHashOfEmptyChainstate checks that an otherwise-empty
// chainstate hashes to exactly SHA256d(bestBlock).
func TestStatsHashOfEmptyChainstate(t *testing.T) {
	db := openTestDB(t)
	view := NewCoinsViewDB(db)

	h3 := hashFromByte(0xa3)
	batch, changed, err := view.BatchWrite(nil, h3)
	require.NoError(t, err)
	require.Equal(t, 0, batch)
	require.Equal(t, 0, changed)

	stats, err := view.GetStats(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, h3, stats.BestBlock)
	require.EqualValues(t, 0, stats.TxCount)
	require.EqualValues(t, 0, stats.OutputCount)
	require.EqualValues(t, 0, stats.TotalAmount)

	want := chainhash.DoubleHashH(h3[:])
	require.Equal(t, want, stats.HashSerialized)
}

func TestCoinsPruneInvariant(t *testing.T) {
	c := &Coins{Outputs: []*TxOut{nil, nil}}
	require.True(t, c.IsPruned())

	_, err := serializeCoins(c)
	require.Error(t, err)
}
