// Copyright 2026 The chainhook-observer Authors
// This file is part of the chainhook-observer library.
//
// The chainhook-observer library is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The chainhook-observer library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the chainhook-observer library. If not, see
// <http://www.gnu.org/licenses/>.

// Package chaintypes defines the chain-agnostic data model shared by the
// indexer, the predicate evaluator and the dispatcher: block and
// transaction identifiers, normalized block/microblock records and the
// chain event union emitted by the indexer.
package chaintypes

import (
	"encoding/hex"
	"fmt"
)

// MarshalJSON renders Chain the way every outward-facing payload expects:
// the lowercase chain name, not its ordinal.
func (c Chain) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// MarshalJSON renders Network as its lowercase name.
func (n Network) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.String() + `"`), nil
}

// Chain distinguishes the two coupled chains this observer tracks.
type Chain int

const (
	BTC Chain = iota
	STX
)

func (c Chain) String() string {
	if c == BTC {
		return "bitcoin"
	}
	return "stacks"
}

// Network is the deployment network a predicate or block belongs to.
type Network int

const (
	Mainnet Network = iota
	Testnet
	Devnet
	Simnet
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Devnet:
		return "devnet"
	case Simnet:
		return "simnet"
	default:
		return "unknown"
	}
}

// Hash32 is a 32-byte block or transaction digest.
type Hash32 [32]byte

func (h Hash32) String() string { return "0x" + hex.EncodeToString(h[:]) }

// BlockId identifies a block by the hash and height its producing node
// reported. Two blocks are equal iff both fields match; the pool does not
// trust the hash and uses ParentId as the authoritative graph edge.
type BlockId struct {
	Hash  Hash32
	Index uint64
}

func (id BlockId) String() string {
	return fmt.Sprintf("%s@%d", id.Hash, id.Index)
}

// TxId identifies a transaction by hash and its position within its block.
type TxId struct {
	Hash  Hash32
	Index uint32
}

// ContractEvent is a single normalized STX event (print/ft/nft/stx) emitted
// by a transaction, already decoded by the external normalizer.
type ContractEvent struct {
	Kind       string // "print", "ft", "nft", "stx"
	ContractId string
	AssetId    string
	Action     string // mint, burn, transfer, lock (stx only)
	Topic      string
}

// Tx is a single normalized transaction carried inside a Block. The
// chain-specific fields below are populated by the external normalizer
// (out of this spec's scope, spec §1) from whatever the upstream node
// reports; matchers only ever read these already-normalized facts, never
// raw chain-specific wire formats.
type Tx struct {
	Id         TxId
	Sender     string
	Recipients []string
	Kind       string
	Payload    []byte

	// BTC-specific normalized facts.
	OpReturnData    []byte
	OutputAddresses []string
	LeaderBlockCommitRule string

	// STX-specific normalized facts.
	ContractId       string
	Method           string
	ImplementsTraits []string
	Events           []ContractEvent
}

// Block is the normalized record produced by the (out-of-scope) external
// normalizer and consumed by the block pool. Metadata is opaque chain-
// specific data the pool never inspects.
type Block struct {
	Id           BlockId
	ParentId     BlockId
	Timestamp    uint64
	Metadata     interface{}
	Transactions []Tx

	// arrival records insertion order for this block within its pool, used
	// to break height ties deterministically (spec §4.1 step 2). It is set
	// by the pool on Insert, not by the caller.
	arrival uint64
}

// Arrival returns the pool-assigned first-seen sequence number.
func (b *Block) Arrival() uint64 { return b.arrival }

// SetArrival is used only by blockpool.Pool.Insert.
func (b *Block) SetArrival(seq uint64) { b.arrival = seq }

// Microblock is an off-chain STX block produced between anchor blocks.
type Microblock struct {
	ParentAnchor BlockId
	Seq          uint32
	Id           Hash32
	Txs          []Tx
}

// ChainEvent is the tagged union of outcomes the indexer can produce for a
// single handled block or microblock batch.
type ChainEvent interface {
	isChainEvent()
}

// UpdatedWithBlocks is a fast-forward extension of the canonical chain.
type UpdatedWithBlocks struct {
	Applied []Block // fork point (exclusive) -> new tip, oldest first
}

func (UpdatedWithBlocks) isChainEvent() {}

// UpdatedWithReorg rolls the canonical chain back to a fork point and then
// applies a (possibly different) continuation.
type UpdatedWithReorg struct {
	RolledBack []Block // old tip -> fork point (exclusive), newest first
	Applied    []Block // fork point (exclusive) -> new tip, oldest first
}

func (UpdatedWithReorg) isChainEvent() {}

// UpdatedWithMicroblocks reports newly accepted STX microblocks trailing
// the current tip.
type UpdatedWithMicroblocks struct {
	Applied []Microblock
}

func (UpdatedWithMicroblocks) isChainEvent() {}
