// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package kvstoretest is a conformance suite run against every
// kvstore.DB backend, so bboltstore and badgerstore are proven
// interchangeable behind the same interface.
package kvstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratachain/stratad/kvstore"
)

// RunConformanceSuite exercises newDB (freshly opened, empty) against
// the properties any kvstore.DB implementation must hold:
// miss-is-not-error, atomic batched writes, last-writer-wins, ordered
// iteration, and cooperative cancellation.
func RunConformanceSuite(t *testing.T, newDB func() kvstore.DB) {
	t.Run("miss", func(t *testing.T) {
		db := newDB()
		defer db.Close()
		_, found, err := db.Read([]byte("nope"))
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("atomic batch and last writer wins", func(t *testing.T) {
		db := newDB()
		defer db.Close()

		batch := kvstore.NewBatch()
		batch.Put([]byte("a"), []byte("1"))
		batch.Put([]byte("a"), []byte("2"))
		batch.Put([]byte("b"), []byte("x"))
		require.NoError(t, db.WriteBatch(batch))

		v, found, err := db.Read([]byte("a"))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("2"), v)

		v, found, err = db.Read([]byte("b"))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("x"), v)
	})

	t.Run("erase", func(t *testing.T) {
		db := newDB()
		defer db.Close()

		batch := kvstore.NewBatch()
		batch.Put([]byte("k"), []byte("v"))
		require.NoError(t, db.WriteBatch(batch))

		batch = kvstore.NewBatch()
		batch.Erase([]byte("k"))
		require.NoError(t, db.WriteBatch(batch))

		ok, err := db.Exists([]byte("k"))
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("ordered iteration", func(t *testing.T) {
		db := newDB()
		defer db.Close()

		batch := kvstore.NewBatch()
		batch.Put([]byte("c"), []byte("3"))
		batch.Put([]byte("a"), []byte("1"))
		batch.Put([]byte("b"), []byte("2"))
		require.NoError(t, db.WriteBatch(batch))

		cur := db.Iterator(context.Background(), []byte{})
		defer cur.Close()

		var keys []string
		for cur.Valid() {
			keys = append(keys, string(cur.Key()))
			cur.Next()
		}
		require.Equal(t, []string{"a", "b", "c"}, keys)
		require.False(t, cur.Cancelled())
	})

	t.Run("cancellable iteration", func(t *testing.T) {
		db := newDB()
		defer db.Close()

		batch := kvstore.NewBatch()
		for _, k := range []string{"a", "b", "c", "d"} {
			batch.Put([]byte(k), []byte("v"))
		}
		require.NoError(t, db.WriteBatch(batch))

		ctx, cancel := context.WithCancel(context.Background())
		cur := db.Iterator(ctx, []byte{})
		defer cur.Close()

		require.True(t, cur.Valid())
		cancel()
		cur.Next()
		require.False(t, cur.Valid())
		require.True(t, cur.Cancelled())
	})
}
