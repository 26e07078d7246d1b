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

import "encoding/json"

type jsonRPCRequest struct {
	Method string `json:"method"`
}

// jsonRPCMethod extracts the "method" field from a JSON-RPC request body
// without fully decoding params, which the proxy never inspects.
func jsonRPCMethod(body []byte) (string, error) {
	var req jsonRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", err
	}
	return req.Method, nil
}
