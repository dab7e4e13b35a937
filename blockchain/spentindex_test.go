// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"
)

func TestSpentIndexUpsertAndLookup(t *testing.T) {
	db := openTestDB(t)
	idx := NewSpentIndex(db)

	key := SpentIndexKey{Txid: hashFromByte(0x30), Vout: 0}
	val := SpentIndexValue{
		SpendingTxid: hashFromByte(0x31),
		InputIndex:   2,
		Height:       100,
		Satoshis:     btcutil.Amount(123456),
		AddrType:     1,
	}
	val.AddrHash[0] = 0xff

	require.NoError(t, idx.UpdateSpentIndex(map[SpentIndexKey]SpentIndexValue{key: val}, nil))

	got, found, err := idx.ReadSpentIndex(key.Txid, key.Vout)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, val, got)
}

func TestSpentIndexDelete(t *testing.T) {
	db := openTestDB(t)
	idx := NewSpentIndex(db)

	key := SpentIndexKey{Txid: hashFromByte(0x40), Vout: 1}
	val := SpentIndexValue{SpendingTxid: hashFromByte(0x41), Satoshis: 500}
	require.NoError(t, idx.UpdateSpentIndex(map[SpentIndexKey]SpentIndexValue{key: val}, nil))

	require.NoError(t, idx.UpdateSpentIndex(nil, []SpentIndexKey{key}))

	_, found, err := idx.ReadSpentIndex(key.Txid, key.Vout)
	require.NoError(t, err)
	require.False(t, found)
}
