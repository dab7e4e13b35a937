// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the chain parameter presets consulted by the
// block validator and the versionbits automaton: the deployment catalog,
// the PoW/PoS boundary height, and the network tag.  It deliberately does
// not carry a full chain-parameter catalog (genesis block, subsidy curve,
// difficulty retarget knobs, peer bootstrap lists, ...) since those belong
// to the block validator and network stack, both external collaborators
// of this core.
package chaincfg

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Network identifies one of the closed set of presets a binary may be built
// against.
type Network uint32

const (
	// Main is the production network.
	Main Network = iota

	// TestNet is the public test network.
	TestNet

	// RegTest is the local, instantly-mineable regression test network.
	RegTest

	// UnitTest is used exclusively by this module's own test suite; it is
	// the only preset for which MutateForUnitTest is permitted to rewrite
	// parameters after construction.
	UnitTest

	// BetaTest is a historical artifact: the original C++ source defines
	// a CBetaParams that duplicates mainnet's network magic while
	// asserting a different genesis hash, which cannot both hold in a
	// single binary. It is kept here as its own
	// mutually-exclusive preset rather than faithfully reproducing the
	// contradictory asserts.
	BetaTest
)

func (n Network) String() string {
	switch n {
	case Main:
		return "main"
	case TestNet:
		return "testnet"
	case RegTest:
		return "regtest"
	case UnitTest:
		return "unittest"
	case BetaTest:
		return "betatest"
	default:
		return fmt.Sprintf("unknown-network-%d", uint32(n))
	}
}

// ALWAYS_ACTIVE is the sentinel nStartTime value that forces a deployment's
// threshold state to Active unconditionally, bypassing the cache entirely.
//
// The name deliberately keeps the BIP9Deployment field's C++ spelling
// convention since it is a wire/consensus constant, not an
// ordinary Go identifier.
const ALWAYS_ACTIVE int64 = -1

// Deployment describes one BIP9-style soft-fork rule change, keyed by the
// version bit it signals on. This mirrors the BIP9 deployment
// descriptor and the original C++ BIP9Deployment struct more closely
// than Qitmeer's ConsensusDeployment,
// which hangs nPeriod/threshold off the chain params instead of the
// deployment (see SPEC_FULL.md, supplemented feature 2).
type Deployment struct {
	// Bit is the version bit, 0..28, this deployment signals on.
	Bit uint8

	// StartTime is the median-time-past after which voting opens, or
	// ALWAYS_ACTIVE to force Active unconditionally.
	StartTime int64

	// Timeout is the median-time-past after which an un-locked-in
	// deployment is marked Failed.
	Timeout int64

	// Period is the number of blocks in one retarget window for this
	// deployment.
	Period uint32

	// Threshold is the minimum number of blocks within a Period whose
	// Condition must hold for the window to lock in.
	Threshold uint32
}

// Params is the narrowed chain-parameter preset this core consumes: the
// deployment catalog, the PoW/PoS boundary, and the network tag. Anything
// else (subsidy, genesis block, difficulty, peer bootstrap) belongs to the
// block validator / network stack, both out of scope for this core.
type Params struct {
	Net Network

	// LastPoWBlock is the height at and below which block-index entries
	// are re-verified for proof-of-work during LoadBlockIndexGuts.
	// Entries above it are not re-verified; which entries go into the
	// stake-seen set depends on their proof-of-stake status flag, not on
	// this height.
	LastPoWBlock uint32

	// Deployments is the versionbits deployment catalog, indexed by an
	// opaque deployment ID (not by bit number, since two deployments
	// never share a bit concurrently but a bit may be reused across
	// deployments over the life of the chain).
	Deployments []Deployment

	// GenesisHash anchors the block-index forest; the entry for this
	// hash has a zero PrevHash, and that missing parent is the "genesis
	// parent" (null pointer) that versionbits treats as state Defined.
	GenesisHash chainhash.Hash
}

// LastPoWBlockHeight implements blockchain.LastPoWBlockProvider.
func (p *Params) LastPoWBlockHeight() uint32 {
	return p.LastPoWBlock
}

// MutateForUnitTest is the one mutation hook this package provides:
// it allows the UnitTest preset's deployments to be rewritten in place
// by test code, without providing a general-purpose setter for the
// other four closed presets.
func (p *Params) MutateForUnitTest(deployments []Deployment) {
	if p.Net != UnitTest {
		panic("MutateForUnitTest: only the UnitTest preset may be mutated")
	}
	log.Debugf("MutateForUnitTest: replacing %d deployment(s)", len(deployments))
	p.Deployments = deployments
}
