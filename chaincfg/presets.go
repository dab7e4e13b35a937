// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Deployment IDs. Constants rather than a plain slice index so callers can
// name a deployment without depending on catalog order, matching Qitmeer's
// DeploymentTestDummy/DeploymentToken convention in params/params.go.
const (
	// DeploymentTestDummy exists purely for property testing.
	DeploymentTestDummy = iota

	// DeploymentCSV gates CHECKSEQUENCEVERIFY-style relative lock time
	// rules, the most common real-world BIP9 payload.
	DeploymentCSV

	// DefinedDeployments must come last; it is the width of the Deployments
	// catalog for whichever preset is active.
	DefinedDeployments
)

// MainNetParams is the production preset.
var MainNetParams = Params{
	Net:          Main,
	LastPoWBlock: 150,
	GenesisHash:  mainNetGenesisHash,
	Deployments: []Deployment{
		DeploymentTestDummy: {
			Bit:       28,
			StartTime: ALWAYS_ACTIVE,
			Timeout:   0,
			Period:    2016,
			Threshold: 1916,
		},
		DeploymentCSV: {
			Bit:       0,
			StartTime: 1462060800, // 2016-05-01
			Timeout:   1493596800, // 2017-05-01
			Period:    2016,
			Threshold: 1916,
		},
	},
}

// TestNetParams is the public test network preset: same deployment shape,
// much lower activation threshold so the network can exercise soft forks
// quickly.
var TestNetParams = Params{
	Net:          TestNet,
	LastPoWBlock: 150,
	GenesisHash:  testNetGenesisHash,
	Deployments: []Deployment{
		DeploymentTestDummy: {
			Bit:       28,
			StartTime: ALWAYS_ACTIVE,
			Timeout:   0,
			Period:    144,
			Threshold: 108,
		},
		DeploymentCSV: {
			Bit:       0,
			StartTime: 1456790400, // 2016-03-01
			Timeout:   1493596800, // 2017-05-01
			Period:    144,
			Threshold: 108,
		},
	},
}

// RegTestParams is the local regression-test preset: deployments start at
// time 0 with 144-block periods, so a locally mined chain can walk a
// deployment through every threshold state.
var RegTestParams = Params{
	Net:          RegTest,
	LastPoWBlock: 0,
	GenesisHash:  regTestGenesisHash,
	Deployments: []Deployment{
		DeploymentTestDummy: {
			Bit:       28,
			StartTime: 0,
			Timeout:   999999999999,
			Period:    144,
			Threshold: 108,
		},
		DeploymentCSV: {
			Bit:       0,
			StartTime: 0,
			Timeout:   999999999999,
			Period:    144,
			Threshold: 108,
		},
	},
}

// UnitTestParams is the preset reserved for this module's own tests. Its
// Deployments slice is the only one ever rewritten post-construction, via
// Params.MutateForUnitTest.
var UnitTestParams = Params{
	Net:          UnitTest,
	LastPoWBlock: 0,
	GenesisHash:  chainhash.Hash{},
	Deployments:  make([]Deployment, DefinedDeployments),
}

// BetaTestParams is a historical second preset: it must never be linked
// into the same binary as MainNetParams
// since the original C++ asserted both the same network magic and a
// different genesis hash, an unsatisfiable pair of invariants.
var BetaTestParams = Params{
	Net:          BetaTest,
	LastPoWBlock: 150,
	GenesisHash:  betaTestGenesisHash,
	Deployments: []Deployment{
		DeploymentTestDummy: {
			Bit:       28,
			StartTime: ALWAYS_ACTIVE,
			Timeout:   0,
			Period:    2016,
			Threshold: 1916,
		},
		DeploymentCSV: {
			Bit:       0,
			StartTime: 1462060800,
			Timeout:   1493596800,
			Period:    2016,
			Threshold: 1916,
		},
	},
}

var (
	mainNetGenesisHash  = chainhash.Hash{0x01}
	testNetGenesisHash  = chainhash.Hash{0x02}
	regTestGenesisHash  = chainhash.Hash{0x03}
	betaTestGenesisHash = chainhash.Hash{0x04}
)
