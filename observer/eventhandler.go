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

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/log"
)

// rawEventHandlerTimeout bounds a single forward-delivery call. Forwarding
// is best-effort and must never stall command processing (spec §4.8 step
// 2's "forward-deliver to any registered raw event handlers").
const rawEventHandlerTimeout = 5 * time.Second

// EventHandler forwards a raw, un-normalized block or microblock payload to
// an external webhook before the indexer sees it (spec §6 config's
// `event_handlers: [{kind:"HTTP", url}]`).
type EventHandler interface {
	Forward(ctx context.Context, chain chaintypes.Chain, raw []byte)
}

// HTTPEventHandler posts the raw payload, unmodified, to URL.
type HTTPEventHandler struct {
	URL    string
	Client *http.Client
}

// NewHTTPEventHandler builds a handler using a client with the package's
// default timeout when client is nil.
func NewHTTPEventHandler(url string, client *http.Client) *HTTPEventHandler {
	if client == nil {
		client = &http.Client{Timeout: rawEventHandlerTimeout}
	}
	return &HTTPEventHandler{URL: url, Client: client}
}

func (h *HTTPEventHandler) Forward(ctx context.Context, chain chaintypes.Chain, raw []byte) {
	ctx, cancel := context.WithTimeout(ctx, rawEventHandlerTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(raw))
	if err != nil {
		logger.Warn("event handler request build failed", "url", h.URL, "chain", chain, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		logger.Warn("event handler forward failed", "url", h.URL, "chain", chain, "err", err)
		return
	}
	defer resp.Body.Close()
}
