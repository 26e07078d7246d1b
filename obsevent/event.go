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

// Package obsevent defines the outbox vocabulary the orchestrator and
// dispatcher post for the embedding application to consume (spec §6
// "Outbox event vocabulary"). It is a standalone leaf package so both
// dispatcher and observer can depend on it without a cycle.
package obsevent

import "github.com/klaytn/chainhook-observer/chaintypes"

// Event is the tagged union of everything posted onto the outbox.
type Event interface {
	isObserverEvent()
}

// Error is a recoverable problem worth surfacing to the embedder.
type Error struct{ Msg string }

func (Error) isObserverEvent() {}

// Fatal precedes the process aborting (mirrors log.Crit call sites).
type Fatal struct{ Msg string }

func (Fatal) isObserverEvent() {}

// Info is a routine informational notice.
type Info struct{ Msg string }

func (Info) isObserverEvent() {}

// BtcChainEvent reports a raw indexer outcome for the BTC chain.
type BtcChainEvent struct{ Event chaintypes.ChainEvent }

func (BtcChainEvent) isObserverEvent() {}

// StxChainEvent reports a raw indexer outcome for the STX chain.
type StxChainEvent struct{ Event chaintypes.ChainEvent }

func (StxChainEvent) isObserverEvent() {}

// StxMempoolEvent reports a batch of newly observed mempool transactions.
type StxMempoolEvent struct{ RawTxs []string }

func (StxMempoolEvent) isObserverEvent() {}

// NotifyBtcTxProxied reports that a sendrawtransaction call was proxied to
// the upstream BTC node.
type NotifyBtcTxProxied struct{}

func (NotifyBtcTxProxied) isObserverEvent() {}

// HookRegistered reports a successful predicate registration.
type HookRegistered struct {
	UUID  string
	Chain chaintypes.Chain
}

func (HookRegistered) isObserverEvent() {}

// HookDeregistered reports a predicate removal, whether operator-requested
// or occurrence-limit driven.
type HookDeregistered struct {
	UUID  string
	Chain chaintypes.Chain
}

func (HookDeregistered) isObserverEvent() {}

// HooksTriggered reports how many predicates matched a single chain event.
type HooksTriggered struct{ Count int }

func (HooksTriggered) isObserverEvent() {}

// BtcChainhookTriggered carries a rendered BTC chainhook payload for
// InProcess-action predicates.
type BtcChainhookTriggered struct{ Payload []byte }

func (BtcChainhookTriggered) isObserverEvent() {}

// StxChainhookTriggered carries a rendered STX chainhook payload for
// InProcess-action predicates.
type StxChainhookTriggered struct{ Payload []byte }

func (StxChainhookTriggered) isObserverEvent() {}

// Terminate is the final event posted before the orchestrator loop exits.
type Terminate struct{}

func (Terminate) isObserverEvent() {}
