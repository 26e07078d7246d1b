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

// Package observer implements the single-writer command loop that owns the
// indexer, predicate store and occurrence tracker (C8, spec §4.8).
package observer

import (
	"github.com/klaytn/chainhook-observer/predicate"
)

// CommandKind discriminates the Command variants named in spec §4.8.
type CommandKind int

const (
	CmdPropagateBtcEvent CommandKind = iota
	CmdPropagateStxEvent
	CmdPropagateStxMicroblocks
	CmdNotifyBtcTxProxied
	CmdRegister
	CmdDeregisterBtc
	CmdDeregisterStx
	CmdTerminate
)

// Command is the single message type accepted by the orchestrator's inbox.
// Only the fields relevant to Kind are populated by the sender; reply is
// always set by Submit and used to hand the result back.
type Command struct {
	Kind CommandKind

	Raw []byte // PropagateBtcEvent / PropagateStxEvent / PropagateStxMicroblocks

	Predicate predicate.Predicate // Register
	Owner     predicate.ApiKey    // Register / DeregisterBtc / DeregisterStx
	UUID      string              // DeregisterBtc / DeregisterStx

	reply chan Result
}

// Result is what Submit returns once the orchestrator has processed a
// command.
type Result struct {
	Err error
}
