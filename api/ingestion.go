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
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/klaytn/chainhook-observer/log"
	"github.com/klaytn/chainhook-observer/observer"
)

var apiLogger = log.NewModuleLogger(log.API)

// submitTimeout bounds how long an ingestion handler waits for the
// orchestrator to accept and finish processing a command before reporting
// 500 ("lock contention", spec §6).
const submitTimeout = 2 * time.Second

// IngestionConfig configures the node-facing ingestion server (spec §6,
// default port 20445).
type IngestionConfig struct {
	Orchestrator       *observer.Orchestrator
	BtcRpcProxyEnabled bool
	BtcNodeUsername    string
	BtcNodePassword    string
	BtcNodeRpcURL      string
	HTTPClient         *http.Client
}

// NewIngestionRouter builds the ingestion server's handler tree.
func NewIngestionRouter(cfg IngestionConfig) http.Handler {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	r := httprouter.New()

	r.POST("/new_burn_block", propagateHandler(cfg.Orchestrator, observer.CmdPropagateBtcEvent))
	r.POST("/new_block", propagateHandler(cfg.Orchestrator, observer.CmdPropagateStxEvent))
	r.POST("/new_microblocks", propagateHandler(cfg.Orchestrator, observer.CmdPropagateStxMicroblocks))

	r.POST("/new_mempool_tx", noopHandler("new_mempool_tx"))
	r.POST("/drop_mempool_tx", noopHandler("drop_mempool_tx"))
	r.POST("/attachments/new", noopHandler("attachments/new"))
	r.POST("/mined_block", noopHandler("mined_block"))
	r.POST("/mined_microblock", noopHandler("mined_microblock"))

	r.GET("/ping", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeOK(w)
	})

	if cfg.BtcRpcProxyEnabled {
		r.POST("/", btcRPCProxyHandler(cfg))
	}

	return r
}

func propagateHandler(orch *observer.Orchestrator, kind observer.CommandKind) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeServerError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
		defer cancel()
		submitErr := orch.Submit(ctx, observer.Command{Kind: kind, Raw: body})
		if isSubmissionFailure(submitErr) {
			writeServerError(w, submitErr)
			return
		}
		// Validation failures (malformed block payloads) are already logged
		// by the indexer; the ingestion contract only promises an enqueue
		// acknowledgement, not a processing result (spec §6).
		writeOK(w)
	}
}

func noopHandler(route string) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		apiLogger.Info("accepted no-op route", "route", route)
		writeOK(w)
	}
}

func isSubmissionFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, observer.ErrClosed) || errors.Is(err, context.DeadlineExceeded)
}

func btcRPCProxyHandler(cfg IngestionConfig) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeServerError(w, err)
			return
		}

		method, _ := jsonRPCMethod(body)
		if method == "sendrawtransaction" {
			ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
			defer cancel()
			if err := cfg.Orchestrator.Submit(ctx, observer.Command{Kind: observer.CmdNotifyBtcTxProxied}); err != nil {
				apiLogger.Warn("failed to enqueue NotifyBtcTxProxied", "err", err)
			}
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, cfg.BtcNodeRpcURL, bytes.NewReader(body))
		if err != nil {
			writeServerError(w, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(cfg.BtcNodeUsername, cfg.BtcNodePassword)

		resp, err := cfg.HTTPClient.Do(req)
		if err != nil {
			writeServerError(w, err)
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}
