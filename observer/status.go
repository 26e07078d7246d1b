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

package observer

import "sync/atomic"

// Status is the read-only snapshot served by the control API's
// GET /v1/status (SPEC_FULL.md §12.2), mirroring
// datasync/chaindatafetcher's PublicChainDataFetcherAPI.Status.
type Status struct {
	CommandsProcessed uint64  `json:"commands_processed"`
	BTCTip            *string `json:"btc_tip,omitempty"`
	STXTip            *string `json:"stx_tip,omitempty"`
	OutboxBacklog     int     `json:"outbox_backlog"` // not computed; Status always reports 0
}

// Status reports a best-effort, lock-free snapshot. It is safe to call
// from any goroutine; it does not go through the command loop, matching
// spec §5's carve-out that status reads need not serialize with mutations.
func (o *Orchestrator) Status() Status {
	s := Status{CommandsProcessed: atomic.LoadUint64(&o.commandsProcessed)}
	if tip, ok := o.ix.BTC.Tip(); ok {
		str := tip.String()
		s.BTCTip = &str
	}
	if tip, ok := o.ix.STX.Tip(); ok {
		str := tip.String()
		s.STXTip = &str
	}
	return s
}
