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

// Package occurrence implements the per-predicate trigger counter and
// expiry decision (C7, spec §4.7).
package occurrence

// Tracker counts how many times each predicate uuid has triggered.
// Not safe for concurrent use; owned exclusively by the orchestrator, like
// the indexer and predicate store it runs alongside (spec §4.8 step 1).
type Tracker struct {
	count map[string]uint64
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{count: make(map[string]uint64)}
}

// RecordAndCheckExpiry increments uuid's occurrence count and reports
// whether it has now reached limit, meaning the caller should deregister
// the predicate and emit HookDeregistered (spec §4.7). A nil limit never
// expires.
func (t *Tracker) RecordAndCheckExpiry(uuid string, limit *uint64) (count uint64, expired bool) {
	t.count[uuid]++
	count = t.count[uuid]
	expired = limit != nil && count >= *limit
	return count, expired
}

// Forget drops uuid's counter, called on deregistration so a future
// re-registration under the same uuid starts from zero.
func (t *Tracker) Forget(uuid string) {
	delete(t.count, uuid)
}

// Count returns uuid's current occurrence count.
func (t *Tracker) Count(uuid string) uint64 {
	return t.count[uuid]
}
