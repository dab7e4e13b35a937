// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// Severity orders the error kinds this package distinguishes, highest
// first. The chain-state lock holder inspects this to decide whether to
// keep running, invalidate a block, or shut the node down.
type Severity int

const (
	// SeverityIO is a KV read/write failure: fatal, the node must stop
	// accepting new blocks.
	SeverityIO Severity = iota

	// SeverityCorruption is a deserialization failure on a stored record.
	// At startup this requires an operator-visible reindex.
	SeverityCorruption

	// SeverityConsensus is a stored PoW block failing CheckProofOfWork
	// during LoadBlockIndexGuts. Aborts load.
	SeverityConsensus
)

func (s Severity) String() string {
	switch s {
	case SeverityIO:
		return "io"
	case SeverityCorruption:
		return "corruption"
	case SeverityConsensus:
		return "consensus"
	default:
		return "unknown"
	}
}

// AssertError, HashError, and DeploymentError are typed sentinels in the
// style of Qitmeer's core/blockchain/error.go: distinct types a caller
// can type-switch on, rather than a single error with a string code.

// AssertError marks an invariant violation that indicates a programming
// error rather than bad input — e.g. the coins record all-null-outputs
// invariant. Never expected to fire against a correct implementation.
type AssertError string

func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// HashError reports a problem resolving or comparing a block/tx hash,
// such as a prevHash the block-index forest cannot resolve.
type HashError struct {
	Hash    fmt.Stringer
	Message string
}

func (e HashError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Hash)
}

// DeploymentError reports a problem evaluating or caching a versionbits
// deployment's threshold state.
type DeploymentError struct {
	DeploymentID int
	Message      string
}

func (e DeploymentError) Error() string {
	return fmt.Sprintf("deployment %d: %s", e.DeploymentID, e.Message)
}

// LoadError wraps a failure encountered while reconstructing the block
// index from disk (LoadBlockIndexGuts), carrying the Severity so the
// caller does not need to string-match the message to decide whether a
// reindex is required.
type LoadError struct {
	Severity Severity
	Cause    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load block index (%s): %v", e.Severity, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// errNotInMainChain and errDeserialize mirror Qitmeer's dbhelper.go
// predicate-error pattern: a small unexported error type plus an
// isXxxErr helper, instead of sentinel error values, so additional
// context (the offending hash) rides along with the error.

type errNotInMainChain string

func (e errNotInMainChain) Error() string {
	return string(e)
}

func isNotInMainChainErr(err error) bool {
	_, ok := err.(errNotInMainChain)
	return ok
}

type errDeserialize string

func (e errDeserialize) Error() string {
	return string(e)
}

func isDeserializeErr(err error) bool {
	_, ok := err.(errDeserialize)
	return ok
}
