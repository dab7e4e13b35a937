// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxIndexWriteThenReadByEitherID(t *testing.T) {
	db := openTestDB(t)
	idx := NewTxIndex(db)

	full := hashFromByte(0x11)
	bare := hashFromByte(0x12)
	pos := DiskTxPos{File: 3, BlockOffset: 512, TxOffsetInBlock: 128}

	require.NoError(t, idx.WriteTxIndex(full, bare, pos))

	got, found, err := idx.ReadTxIndex(full)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pos, got)

	got2, found2, err := idx.ReadTxIndex(bare)
	require.NoError(t, err)
	require.True(t, found2)
	require.Equal(t, pos, got2)
}

func TestTxIndexDegenerateSameIdentifier(t *testing.T) {
	db := openTestDB(t)
	idx := NewTxIndex(db)

	txid := hashFromByte(0x21)
	pos := DiskTxPos{File: 1, BlockOffset: 2, TxOffsetInBlock: 3}
	require.NoError(t, idx.WriteTxIndex(txid, txid, pos))

	got, found, err := idx.ReadTxIndex(txid)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pos, got)
}

func TestTxIndexMiss(t *testing.T) {
	db := openTestDB(t)
	idx := NewTxIndex(db)

	_, found, err := idx.ReadTxIndex(hashFromByte(0x99))
	require.NoError(t, err)
	require.False(t, found)
}
