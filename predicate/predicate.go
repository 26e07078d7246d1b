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

// Package predicate implements the chainhook registry (spec §4.4) and the
// predicate matcher/evaluator (spec §4.5): storing per-tenant predicates,
// and producing triggers from chain events.
package predicate

import (
	"github.com/klaytn/chainhook-observer/chaintypes"
)

// ApiKey is an opaque token partitioning the predicate namespace. The zero
// value represents the single anonymous tenant used when no operators are
// configured (spec §3 GLOSSARY).
type ApiKey string

// AnonymousTenant is the ApiKey used when no operators are configured.
const AnonymousTenant ApiKey = ""

// Predicate is a user-registered chainhook.
type Predicate struct {
	UUID                  string
	Chain                 chaintypes.Chain
	Network               chaintypes.Network
	Matcher               Matcher
	Action                Action
	ExpireAfterOccurrence *uint64
	IncludeProof          bool // BTC only: request an SPV inclusion proof
}
