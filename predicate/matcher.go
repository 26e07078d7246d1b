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

package predicate

import (
	"bytes"
	"strings"

	"github.com/klaytn/chainhook-observer/chaintypes"
)

// MatcherKind discriminates the Matcher variants, in the same spirit as
// this codebase's AccountKeyType/AccountKey split (blockchain/types/
// account_key.go): one interface, one concrete struct per variant.
type MatcherKind int

const (
	KindTxid MatcherKind = iota
	KindOpReturn
	KindAddress
	KindStacksBlockCommitted
	KindAllOf
	KindAnyOf
	KindScope
	KindTxidOrPrintEvent
	KindContractCall
	KindContractDeployment
	KindFtEvent
	KindNftEvent
	KindStxEvent
	KindPrintEvent
)

// Matcher is the common interface every predicate matcher variant
// implements. Matchers are pure and deterministic (spec §4.5): Match must
// not mutate tx or block and must return the same answer every time it is
// called with the same arguments.
type Matcher interface {
	Kind() MatcherKind
	// Match reports whether tx, found in block, satisfies this matcher.
	Match(tx chaintypes.Tx, block chaintypes.Block) bool
}

// --- BTC matchers ---

// TxidMatcher matches a transaction by exact id hash.
type TxidMatcher struct {
	Expected chaintypes.Hash32
}

func (TxidMatcher) Kind() MatcherKind { return KindTxid }
func (m TxidMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	return tx.Id.Hash == m.Expected
}

// OpReturnRule selects how OpReturnMatcher compares bytes.
type OpReturnRule int

const (
	OpReturnStartsWith OpReturnRule = iota
	OpReturnEndsWith
	OpReturnEquals
)

// OpReturnMatcher matches a BTC transaction's OP_RETURN payload.
type OpReturnMatcher struct {
	Rule  OpReturnRule
	Bytes []byte
}

func (OpReturnMatcher) Kind() MatcherKind { return KindOpReturn }
func (m OpReturnMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	switch m.Rule {
	case OpReturnStartsWith:
		return bytes.HasPrefix(tx.OpReturnData, m.Bytes)
	case OpReturnEndsWith:
		return bytes.HasSuffix(tx.OpReturnData, m.Bytes)
	case OpReturnEquals:
		return bytes.Equal(tx.OpReturnData, m.Bytes)
	default:
		return false
	}
}

// AddressKind enumerates the BTC output script types a predicate can
// target (spec §4.5: P2PKH|P2SH|P2WPKH|P2WSH).
type AddressKind int

const (
	AddressP2PKH AddressKind = iota
	AddressP2SH
	AddressP2WPKH
	AddressP2WSH
)

// AddressMatcher matches a transaction that pays out to Address, encoded
// as the given script kind. The script kind only affects which address
// encodings the normalizer is expected to have surfaced in
// tx.OutputAddresses; matching itself is a membership test.
type AddressMatcher struct {
	ScriptKind AddressKind
	Address    string
}

func (AddressMatcher) Kind() MatcherKind { return KindAddress }
func (m AddressMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	for _, a := range tx.OutputAddresses {
		if a == m.Address {
			return true
		}
	}
	return false
}

// StacksBlockCommittedMatcher matches BTC leader-block-commit transactions
// whose normalized rule tag equals Rule.
type StacksBlockCommittedMatcher struct {
	Rule string
}

func (StacksBlockCommittedMatcher) Kind() MatcherKind { return KindStacksBlockCommitted }
func (m StacksBlockCommittedMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	return tx.Kind == "leader_block_commit" && tx.LeaderBlockCommitRule == m.Rule
}

// --- composite matchers ---

// AllOfMatcher matches when every nested matcher matches.
type AllOfMatcher struct {
	Matchers []Matcher
}

func (AllOfMatcher) Kind() MatcherKind { return KindAllOf }
func (m AllOfMatcher) Match(tx chaintypes.Tx, block chaintypes.Block) bool {
	for _, sub := range m.Matchers {
		if !sub.Match(tx, block) {
			return false
		}
	}
	return len(m.Matchers) > 0
}

// AnyOfMatcher matches when at least one nested matcher matches.
type AnyOfMatcher struct {
	Matchers []Matcher
}

func (AnyOfMatcher) Kind() MatcherKind { return KindAnyOf }
func (m AnyOfMatcher) Match(tx chaintypes.Tx, block chaintypes.Block) bool {
	for _, sub := range m.Matchers {
		if sub.Match(tx, block) {
			return true
		}
	}
	return false
}

// ScopeMatcher wraps another matcher with a block-range restriction. A tx
// only matches if block.Id.Index falls within [StartBlock, EndBlock] (an
// unset EndBlock means unbounded above). ExpireAfterOccurrence is carried
// here but not read: Match ignores it, and the occurrence tracker is
// driven by Predicate.ExpireAfterOccurrence only.
type ScopeMatcher struct {
	Inner                 Matcher
	StartBlock            uint64
	EndBlock              *uint64
	ExpireAfterOccurrence *uint64
}

func (ScopeMatcher) Kind() MatcherKind { return KindScope }
func (m ScopeMatcher) Match(tx chaintypes.Tx, block chaintypes.Block) bool {
	if block.Id.Index < m.StartBlock {
		return false
	}
	if m.EndBlock != nil && block.Id.Index > *m.EndBlock {
		return false
	}
	return m.Inner.Match(tx, block)
}

// InRange reports whether eventRangeStart..eventRangeEnd (inclusive)
// intersects this scope's block range, used by the evaluator to skip
// non-intersecting scoped predicates without scanning every transaction
// (spec §4.5 "Predicates scoped by block range that do not intersect the
// event's range yield no trigger").
func (m ScopeMatcher) InRange(eventRangeStart, eventRangeEnd uint64) bool {
	if eventRangeEnd < m.StartBlock {
		return false
	}
	if m.EndBlock != nil && eventRangeStart > *m.EndBlock {
		return false
	}
	return true
}

// --- STX matchers ---

// TxidOrPrintEventMatcher matches a STX transaction either by id or by one
// of its print events carrying the expected hash as a topic.
type TxidOrPrintEventMatcher struct {
	Expected chaintypes.Hash32
}

func (TxidOrPrintEventMatcher) Kind() MatcherKind { return KindTxidOrPrintEvent }
func (m TxidOrPrintEventMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	if tx.Id.Hash == m.Expected {
		return true
	}
	needle := m.Expected.String()
	for _, e := range tx.Events {
		if e.Kind == "print" && e.Topic == needle {
			return true
		}
	}
	return false
}

// ContractCallMatcher matches a STX contract-call transaction targeting a
// specific contract and (optionally) a specific method.
type ContractCallMatcher struct {
	ContractId string
	Method     string // empty matches any method on the contract
}

func (ContractCallMatcher) Kind() MatcherKind { return KindContractCall }
func (m ContractCallMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	if tx.Kind != "contract_call" || tx.ContractId != m.ContractId {
		return false
	}
	return m.Method == "" || tx.Method == m.Method
}

// ContractDeploymentMatcher matches a STX contract-deployment transaction,
// either by exact contract id or by an implemented trait.
type ContractDeploymentMatcher struct {
	ContractId      string // empty to match by trait instead
	ImplementsTrait string // empty to match by contract id instead
}

func (ContractDeploymentMatcher) Kind() MatcherKind { return KindContractDeployment }
func (m ContractDeploymentMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	if tx.Kind != "smart_contract_deploy" {
		return false
	}
	if m.ContractId != "" {
		return tx.ContractId == m.ContractId
	}
	for _, t := range tx.ImplementsTraits {
		if t == m.ImplementsTrait {
			return true
		}
	}
	return false
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// FtEventMatcher matches a fungible-token event for AssetId whose action
// is one of Actions (mint, burn, transfer).
type FtEventMatcher struct {
	AssetId string
	Actions []string
}

func (FtEventMatcher) Kind() MatcherKind { return KindFtEvent }
func (m FtEventMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	for _, e := range tx.Events {
		if e.Kind == "ft" && e.AssetId == m.AssetId && containsAction(m.Actions, e.Action) {
			return true
		}
	}
	return false
}

// NftEventMatcher matches a non-fungible-token event for AssetId whose
// action is one of Actions (mint, burn, transfer).
type NftEventMatcher struct {
	AssetId string
	Actions []string
}

func (NftEventMatcher) Kind() MatcherKind { return KindNftEvent }
func (m NftEventMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	for _, e := range tx.Events {
		if e.Kind == "nft" && e.AssetId == m.AssetId && containsAction(m.Actions, e.Action) {
			return true
		}
	}
	return false
}

// StxEventMatcher matches a STX token event whose action is one of
// Actions (mint, burn, transfer, lock).
type StxEventMatcher struct {
	Actions []string
}

func (StxEventMatcher) Kind() MatcherKind { return KindStxEvent }
func (m StxEventMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	for _, e := range tx.Events {
		if e.Kind == "stx" && containsAction(m.Actions, e.Action) {
			return true
		}
	}
	return false
}

// PrintEventMatcher matches a contract print event with the given topic.
type PrintEventMatcher struct {
	ContractId string
	Topic      string
}

func (PrintEventMatcher) Kind() MatcherKind { return KindPrintEvent }
func (m PrintEventMatcher) Match(tx chaintypes.Tx, _ chaintypes.Block) bool {
	for _, e := range tx.Events {
		if e.Kind == "print" && e.ContractId == m.ContractId && e.Topic == m.Topic {
			return true
		}
	}
	return false
}

// normalizeAddressLabel upper-cases and trims an address-kind label. It
// currently has no callers.
func normalizeAddressLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
