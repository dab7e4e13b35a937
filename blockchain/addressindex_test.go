// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/require"
)

func TestAddressIndexRangeScanBoundedByHeight(t *testing.T) {
	db := openTestDB(t)
	idx := NewAddressIndex(db, nil)

	var addr [20]byte
	addr[0] = 0xaa
	const addrType = 1

	entries := []AddressIndexEntry{
		{Type: addrType, AddrHash: addr, BlockHeight: 10, TxNumber: 0, Txid: hashFromByte(0x01), OutputIndex: 0, Satoshis: 100},
		{Type: addrType, AddrHash: addr, BlockHeight: 20, TxNumber: 0, Txid: hashFromByte(0x02), OutputIndex: 0, Satoshis: 200},
		{Type: addrType, AddrHash: addr, BlockHeight: 30, TxNumber: 0, Txid: hashFromByte(0x03), OutputIndex: 0, Satoshis: 300},
	}
	require.NoError(t, idx.WriteAddressIndex(entries))

	all, err := idx.ReadAddressIndex(context.Background(), addrType, addr, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	bounded, err := idx.ReadAddressIndex(context.Background(), addrType, addr, 15, 25)
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	require.Equal(t, btcutil.Amount(200), bounded[0].Satoshis)
	require.EqualValues(t, 20, bounded[0].BlockHeight)
}

func TestAddressIndexDifferentAddressesDoNotLeak(t *testing.T) {
	db := openTestDB(t)
	idx := NewAddressIndex(db, nil)

	var a, b [20]byte
	a[0], b[0] = 0x01, 0x02

	require.NoError(t, idx.WriteAddressIndex([]AddressIndexEntry{
		{Type: 1, AddrHash: a, BlockHeight: 5, Txid: hashFromByte(0x11), Satoshis: 10},
		{Type: 1, AddrHash: b, BlockHeight: 5, Txid: hashFromByte(0x12), Satoshis: 20},
	}))

	got, err := idx.ReadAddressIndex(context.Background(), 1, a, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, btcutil.Amount(10), got[0].Satoshis)
}

func TestAddressIndexErase(t *testing.T) {
	db := openTestDB(t)
	idx := NewAddressIndex(db, nil)

	var addr [20]byte
	addr[0] = 0x05
	entry := AddressIndexEntry{Type: 1, AddrHash: addr, BlockHeight: 1, Txid: hashFromByte(0x21), Satoshis: 50}
	require.NoError(t, idx.WriteAddressIndex([]AddressIndexEntry{entry}))
	require.NoError(t, idx.EraseAddressIndex([]AddressIndexEntry{entry}))

	got, err := idx.ReadAddressIndex(context.Background(), 1, addr, 0, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestAddressUnspentUpsertAndDelete(t *testing.T) {
	db := openTestDB(t)
	idx := NewAddressUnspentIndex(db)

	var addr [20]byte
	addr[0] = 0x07
	entry := AddressUnspentEntry{
		Type:        1,
		AddrHash:    addr,
		Txid:        hashFromByte(0x31),
		OutputIndex: 2,
		Satoshis:    999,
		Script:      []byte("script"),
		BlockHeight: 42,
	}
	require.NoError(t, idx.UpdateAddressUnspentIndex([]AddressUnspentEntry{entry}, nil))

	got, err := idx.ReadAddressUnspentIndex(context.Background(), 1, addr)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, entry.Satoshis, got[0].Satoshis)
	require.Equal(t, entry.Script, got[0].Script)
	require.Equal(t, entry.BlockHeight, got[0].BlockHeight)

	require.NoError(t, idx.UpdateAddressUnspentIndex(nil, []AddressUnspentEntry{entry}))

	got2, err := idx.ReadAddressUnspentIndex(context.Background(), 1, addr)
	require.NoError(t, err)
	require.Empty(t, got2)
}
