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
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/log"
)

var logger = log.NewModuleLogger(log.Predicate)

// ErrAlreadyRegistered is returned by Register when uuid is already
// registered, on either chain and under any tenant.
var ErrAlreadyRegistered = errors.New("predicate: uuid already registered")

// ErrUnknownTenant names the unknown-api-key failure. Authorize reports an
// unknown token through its boolean result and does not return this error.
var ErrUnknownTenant = errors.New("predicate: unknown api key")

// tenantSet is the per-tenant predicate namespace (spec §3).
type tenantSet struct {
	btc map[string]Predicate
	stx map[string]Predicate
}

func newTenantSet() *tenantSet {
	return &tenantSet{btc: make(map[string]Predicate), stx: make(map[string]Predicate)}
}

func (t *tenantSet) byChain(chain chaintypes.Chain) map[string]Predicate {
	if chain == chaintypes.BTC {
		return t.btc
	}
	return t.stx
}

// Store is the multi-tenant predicate registry (spec §4.4).
type Store struct {
	operators map[ApiKey]struct{} // fixed at startup; empty means single anonymous tenant
	tenants   map[ApiKey]*tenantSet
	ownerOf   map[string]ApiKey
}

// NewStore creates a store configured with the given fixed set of
// operators. An empty set means a single anonymous tenant holds all
// predicates (spec §3 "Lifecycle").
func NewStore(operators []ApiKey) *Store {
	s := &Store{
		operators: make(map[ApiKey]struct{}, len(operators)),
		tenants:   make(map[ApiKey]*tenantSet),
		ownerOf:   make(map[string]ApiKey),
	}
	for _, op := range operators {
		s.operators[op] = struct{}{}
		s.tenants[op] = newTenantSet()
	}
	if len(operators) == 0 {
		s.tenants[AnonymousTenant] = newTenantSet()
	}
	return s
}

// Authorize resolves an optional bearer token to a tenant ApiKey. When no
// operators are configured, any token (including none) resolves to the
// anonymous tenant.
func (s *Store) Authorize(token *string) (ApiKey, bool) {
	if len(s.operators) == 0 {
		return AnonymousTenant, true
	}
	if token == nil {
		return "", false
	}
	key := ApiKey(*token)
	if _, ok := s.operators[key]; ok {
		return key, true
	}
	return "", false
}

// Register inserts p into the tenant's namespace for p.Chain, rejecting
// uuids already present in the store-wide uuid index (spec §4.4).
func (s *Store) Register(owner ApiKey, p Predicate) error {
	if _, exists := s.ownerOf[p.UUID]; exists {
		return ErrAlreadyRegistered
	}
	ts, ok := s.tenants[owner]
	if !ok {
		ts = newTenantSet()
		s.tenants[owner] = ts
	}
	bucket := ts.byChain(p.Chain)
	bucket[p.UUID] = p
	s.ownerOf[p.UUID] = owner
	logger.Info("predicate registered", "uuid", p.UUID, "chain", p.Chain, "owner", string(owner))
	return nil
}

// DeregisterBTC removes and returns the BTC predicate with the given uuid,
// regardless of which tenant owns it (the caller checks ownership where
// that matters: the orchestrator does so for control API deregistrations,
// internal expiry does not).
func (s *Store) DeregisterBTC(id string) (Predicate, bool) {
	return s.deregister(chaintypes.BTC, id)
}

// DeregisterSTX removes and returns the STX predicate with the given uuid.
func (s *Store) DeregisterSTX(id string) (Predicate, bool) {
	return s.deregister(chaintypes.STX, id)
}

func (s *Store) deregister(chain chaintypes.Chain, id string) (Predicate, bool) {
	owner, ok := s.ownerOf[id]
	if !ok {
		return Predicate{}, false
	}
	ts := s.tenants[owner]
	bucket := ts.byChain(chain)
	p, ok := bucket[id]
	if !ok {
		return Predicate{}, false
	}
	delete(bucket, id)
	delete(s.ownerOf, id)
	logger.Info("predicate deregistered", "uuid", id, "chain", chain, "owner", string(owner))
	return p, true
}

// OwnerOf returns the tenant owning uuid, if registered.
func (s *Store) OwnerOf(id string) (ApiKey, bool) {
	owner, ok := s.ownerOf[id]
	return owner, ok
}

// ListForTenant returns the predicates registered by owner, for the
// control API's GET /v1/chainhooks (spec §6).
func (s *Store) ListForTenant(owner ApiKey) ([]Predicate, bool) {
	ts, ok := s.tenants[owner]
	if !ok {
		return nil, false
	}
	out := make([]Predicate, 0, len(ts.btc)+len(ts.stx))
	for _, p := range ts.btc {
		out = append(out, p)
	}
	for _, p := range ts.stx {
		out = append(out, p)
	}
	return out, true
}

// SnapshotForChain returns a flattened, read-only view of every predicate
// registered for chain across all tenants, for the evaluator (spec §4.4).
func (s *Store) SnapshotForChain(chain chaintypes.Chain) []Predicate {
	var out []Predicate
	for _, ts := range s.tenants {
		for _, p := range ts.byChain(chain) {
			out = append(out, p)
		}
	}
	return out
}

// NewUUID generates a fresh predicate identifier.
func NewUUID() string {
	return uuid.New().String()
}
