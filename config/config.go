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

// Package config loads the observer's startup configuration from a TOML
// file, with CLI flags overriding file values (spec.md §6's configuration
// struct).
package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"

	"github.com/klaytn/chainhook-observer/api"
	"github.com/klaytn/chainhook-observer/log"
	"github.com/klaytn/chainhook-observer/predicate"
)

var logger = log.NewModuleLogger(log.Config)

// tomlSettings requires keys in the file to match each field's `toml` tag
// (or, for an untagged field, its Go name verbatim); an unknown key is a
// hard error rather than being silently ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// DefaultIngestionPort and DefaultControlPort match spec.md §6's stated
// defaults.
const (
	DefaultIngestionPort = 20445
	DefaultControlPort   = 20446
)

// EventHandlerConfig describes one raw-event forwarding webhook
// (spec.md §6's `event_handlers: [{kind:"HTTP", url}]`).
type EventHandlerConfig struct {
	Kind string `toml:"kind"`
	URL  string `toml:"url"`
}

// BtcNodeConfig holds the upstream Bitcoin node's RPC credentials, used
// both for the optional JSON-RPC proxy and for SPV proof fetches.
type BtcNodeConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	RpcURL   string `toml:"rpc_url"`
}

// Config is the full startup configuration struct (spec.md §6), loaded
// from TOML and overridable by CLI flags in cmd/chainhook-observer.
type Config struct {
	NormalizationEnabled bool `toml:"normalization_enabled"`
	GrpcServerEnabled    bool `toml:"grpc_server_enabled"`
	HooksEnabled         bool `toml:"hooks_enabled"`

	// InitialPredicatesFile points at a JSON file holding an array of wire-
	// format ChainhookSpecifications (the same shape POST /v1/chainhooks
	// accepts) to pre-register under the anonymous tenant at startup
	// (SPEC_FULL §12.1). Resolved into InitialPredicates by Load.
	InitialPredicatesFile string `toml:"initial_predicates"`
	InitialPredicates     []predicate.Predicate `toml:"-"`

	BtcRpcProxyEnabled bool                 `toml:"btc_rpc_proxy_enabled"`
	EventHandlers      []EventHandlerConfig `toml:"event_handlers"`

	IngestionPort int `toml:"ingestion_port"`
	ControlPort   int `toml:"control_port"`

	BtcNode       BtcNodeConfig `toml:"btc_node"`
	StxNodeRPCURL string        `toml:"stx_node_rpc_url"`

	Operators []predicate.ApiKey `toml:"operators"`

	DisplayLogs bool `toml:"display_logs"`
}

// Default returns a Config with spec.md's stated port defaults and every
// optional feature disabled, matching an operator who supplies no file at
// all beyond the two chain endpoints.
func Default() Config {
	return Config{
		IngestionPort: DefaultIngestionPort,
		ControlPort:   DefaultControlPort,
		DisplayLogs:   true,
	}
}

// Load reads and parses a TOML configuration file. A missing or malformed
// file is a startup configuration error (spec.md §7): callers are expected
// to treat a non-nil error as fatal via logger.Crit, not to retry or
// degrade.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			err = errors.New(path + ", " + err.Error())
		}
		return cfg, err
	}

	if cfg.InitialPredicatesFile != "" {
		preds, err := loadInitialPredicates(cfg.InitialPredicatesFile)
		if err != nil {
			return cfg, err
		}
		cfg.InitialPredicates = preds
	}
	return cfg, nil
}

// loadInitialPredicates decodes a JSON array of wire-format
// ChainhookSpecifications, reusing the same validating decoder the control
// server uses for POST /v1/chainhooks.
func loadInitialPredicates(path string) ([]predicate.Predicate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []json.RawMessage
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("initial predicates file %s: %w", path, err)
	}
	preds := make([]predicate.Predicate, 0, len(specs))
	for i, s := range specs {
		spec, err := api.DecodeChainhookSpecification(s)
		if err != nil {
			return nil, fmt.Errorf("initial predicate %d: %w", i, err)
		}
		p, fieldErrs := spec.ToPredicate()
		if len(fieldErrs) > 0 {
			return nil, fmt.Errorf("initial predicate %d: %v", i, fieldErrs)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// MustLoad loads path and aborts the process via log.Crit on any failure,
// matching spec.md §7's "Configuration errors at startup: abort with
// Fatal and propagate to the embedder."
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		logger.Crit("failed to load configuration", "path", path, "err", err)
	}
	return cfg
}
