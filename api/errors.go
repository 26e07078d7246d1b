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
	"encoding/json"
	"net/http"
)

// fieldError is one entry of a 422 validation failure (SPEC_FULL §12.4,
// adopted from original_source's ChainhookSpecification validator).
type fieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type validationErrorBody struct {
	Errors []fieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": 200, "result": "Ok"})
}

func writeValidationError(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, validationErrorBody{Errors: errs})
}

func writeServerError(w http.ResponseWriter, err error) {
	apiLogger.Error("request handling failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"status": 500, "error": err.Error()})
}
