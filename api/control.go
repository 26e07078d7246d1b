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

package api

import (
	"context"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/observer"
	"github.com/klaytn/chainhook-observer/predicate"
)

// apiKeyHeader is the operator-facing auth header (spec §6).
const apiKeyHeader = "x-api-key"

// ControlConfig configures the operator-facing control server (spec §6,
// default port 20446).
type ControlConfig struct {
	Orchestrator *observer.Orchestrator
	Store        *predicate.Store
}

type authedHandle func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, owner predicate.ApiKey)

func authed(store *predicate.Store, h authedHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var tokenPtr *string
		if tok := r.Header.Get(apiKeyHeader); tok != "" {
			tokenPtr = &tok
		}
		owner, ok := store.Authorize(tokenPtr)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or missing api key"})
			return
		}
		h(w, r, ps, owner)
	}
}

// NewControlRouter builds the control server's handler tree, CORS-wrapped
// for browser-based operator consoles (SPEC_FULL §11).
func NewControlRouter(cfg ControlConfig) http.Handler {
	r := httprouter.New()

	r.GET("/v1/chainhooks", authed(cfg.Store, listChainhooksHandler(cfg)))
	r.POST("/v1/chainhooks", authed(cfg.Store, registerChainhookHandler(cfg)))
	r.DELETE("/v1/chainhooks/stacks/:uuid", authed(cfg.Store, deregisterHandler(cfg, chaintypes.STX)))
	r.DELETE("/v1/chainhooks/bitcoin/:uuid", authed(cfg.Store, deregisterHandler(cfg, chaintypes.BTC)))
	r.GET("/v1/status", statusHandler(cfg))

	return cors.Default().Handler(r)
}

type chainhookListEntry struct {
	Chain     chaintypes.Chain     `json:"chain"`
	UUID      string               `json:"uuid"`
	Network   chaintypes.Network   `json:"network"`
	Predicate predicate.Predicate `json:"predicate"`
}

func listChainhooksHandler(cfg ControlConfig) authedHandle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params, owner predicate.ApiKey) {
		preds, ok := cfg.Store.ListForTenant(owner)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tenant"})
			return
		}
		out := make([]chainhookListEntry, 0, len(preds))
		for _, p := range preds {
			out = append(out, chainhookListEntry{Chain: p.Chain, UUID: p.UUID, Network: p.Network, Predicate: p})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func registerChainhookHandler(cfg ControlConfig) authedHandle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, owner predicate.ApiKey) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeServerError(w, err)
			return
		}
		spec, err := DecodeChainhookSpecification(body)
		if err != nil {
			writeValidationError(w, []fieldError{{Path: "$", Message: err.Error()}})
			return
		}
		p, errs := spec.ToPredicate()
		if len(errs) > 0 {
			writeValidationError(w, errs)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
		defer cancel()
		submitErr := cfg.Orchestrator.Submit(ctx, observer.Command{Kind: observer.CmdRegister, Predicate: p, Owner: owner})
		if isSubmissionFailure(submitErr) {
			writeServerError(w, submitErr)
			return
		}
		if submitErr != nil {
			writeValidationError(w, []fieldError{{Path: "uuid", Message: submitErr.Error()}})
			return
		}
		writeOK(w)
	}
}

func deregisterHandler(cfg ControlConfig, chain chaintypes.Chain) authedHandle {
	kind := observer.CmdDeregisterStx
	if chain == chaintypes.BTC {
		kind = observer.CmdDeregisterBtc
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, owner predicate.ApiKey) {
		uuid := ps.ByName("uuid")
		ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
		defer cancel()
		submitErr := cfg.Orchestrator.Submit(ctx, observer.Command{Kind: kind, UUID: uuid, Owner: owner})
		if isSubmissionFailure(submitErr) {
			writeServerError(w, submitErr)
			return
		}
		writeOK(w)
	}
}

func statusHandler(cfg ControlConfig) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, cfg.Orchestrator.Status())
	}
}
