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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/klaytn/chainhook-observer/config"
)

// btcRPCProofClient calls the upstream Bitcoin node's gettxoutproof RPC
// (spec §4.6 step 1's "call the external BTC RPC get_tx_out_proof(txid,
// block_hash)"), the one dispatcher collaborator this codebase owns a
// concrete implementation of rather than treating as out of scope.
type btcRPCProofClient struct {
	url        string
	username   string
	password   string
	httpClient *http.Client
}

func newBtcRPCProofClient(node config.BtcNodeConfig, client *http.Client) *btcRPCProofClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &btcRPCProofClient{url: node.RpcURL, username: node.Username, password: node.Password, httpClient: client}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GetTxOutProof implements dispatcher.ProofClient.
func (c *btcRPCProofClient) GetTxOutProof(ctx context.Context, txid, blockHash string) (string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      "chainhook-observer",
		Method:  "gettxoutproof",
		Params:  []interface{}{[]string{txid}, blockHash},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", err
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("gettxoutproof: %s", rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
