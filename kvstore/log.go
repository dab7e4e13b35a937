// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package kvstore

import stratalog "github.com/stratachain/stratad/internal/log"

// log is this package's subsystem logger.
var log = stratalog.New("kvstore")
