// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bboltstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratachain/stratad/kvstore"
	"github.com/stratachain/stratad/kvstore/bboltstore"
	"github.com/stratachain/stratad/kvstore/kvstoretest"
)

func TestConformance(t *testing.T) {
	dir := t.TempDir()
	n := 0
	kvstoretest.RunConformanceSuite(t, func() kvstore.DB {
		n++
		db, err := bboltstore.Open(filepath.Join(dir, "db"+string(rune('0'+n))+".bolt"))
		require.NoError(t, err)
		return db
	})
}
