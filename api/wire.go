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

// Package api implements the two HTTP servers named in spec §6: the
// ingestion server (node-facing webhooks) and the control server
// (operator-facing chainhook CRUD).
package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/predicate"
)

// matcherWire is the JSON shape of a predicate.Matcher, discriminated by
// Kind. Only the fields relevant to Kind are populated by the client.
type matcherWire struct {
	Kind string `json:"kind"`

	Expected string `json:"expected,omitempty"` // txid / txid_or_print_event: 0x-hex hash

	Rule  string `json:"rule,omitempty"`  // op_return: starts_with|ends_with|equals
	Bytes string `json:"bytes,omitempty"` // op_return: 0x-hex

	ScriptKind string `json:"script_kind,omitempty"` // address: p2pkh|p2sh|p2wpkh|p2wsh
	Address    string `json:"address,omitempty"`

	CommitRule string `json:"commit_rule,omitempty"` // stacks_block_committed

	Matchers []matcherWire `json:"matchers,omitempty"` // all_of / any_of

	Inner                 *matcherWire `json:"inner,omitempty"` // scope
	StartBlock            uint64       `json:"start_block,omitempty"`
	EndBlock              *uint64      `json:"end_block,omitempty"`
	ExpireAfterOccurrence *uint64      `json:"expire_after_occurrence,omitempty"`

	ContractId      string   `json:"contract_id,omitempty"`
	Method          string   `json:"method,omitempty"`
	ImplementsTrait string   `json:"implements_trait,omitempty"`
	AssetId         string   `json:"asset_id,omitempty"`
	Actions         []string `json:"actions,omitempty"`
	Topic           string   `json:"topic,omitempty"`
}

func decodeHash(s string) (chaintypes.Hash32, error) {
	var h chaintypes.Hash32
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return h, err
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("expected %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func addressKindFromWire(s string) (predicate.AddressKind, error) {
	switch s {
	case "p2pkh":
		return predicate.AddressP2PKH, nil
	case "p2sh":
		return predicate.AddressP2SH, nil
	case "p2wpkh":
		return predicate.AddressP2WPKH, nil
	case "p2wsh":
		return predicate.AddressP2WSH, nil
	default:
		return 0, fmt.Errorf("unknown address script_kind %q", s)
	}
}

func opReturnRuleFromWire(s string) (predicate.OpReturnRule, error) {
	switch s {
	case "starts_with":
		return predicate.OpReturnStartsWith, nil
	case "ends_with":
		return predicate.OpReturnEndsWith, nil
	case "equals":
		return predicate.OpReturnEquals, nil
	default:
		return 0, fmt.Errorf("unknown op_return rule %q", s)
	}
}

// toMatcher builds the concrete predicate.Matcher this wire value
// describes, validating every field it needs along the way.
func (w matcherWire) toMatcher() (predicate.Matcher, error) {
	switch w.Kind {
	case "txid":
		h, err := decodeHash(w.Expected)
		if err != nil {
			return nil, fmt.Errorf("txid: %w", err)
		}
		return predicate.TxidMatcher{Expected: h}, nil

	case "op_return":
		rule, err := opReturnRuleFromWire(w.Rule)
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(trimHexPrefix(w.Bytes))
		if err != nil {
			return nil, fmt.Errorf("op_return: bytes: %w", err)
		}
		return predicate.OpReturnMatcher{Rule: rule, Bytes: raw}, nil

	case "address":
		kind, err := addressKindFromWire(w.ScriptKind)
		if err != nil {
			return nil, err
		}
		if w.Address == "" {
			return nil, fmt.Errorf("address: address must not be empty")
		}
		return predicate.AddressMatcher{ScriptKind: kind, Address: w.Address}, nil

	case "stacks_block_committed":
		return predicate.StacksBlockCommittedMatcher{Rule: w.CommitRule}, nil

	case "all_of", "any_of":
		if len(w.Matchers) == 0 {
			return nil, fmt.Errorf("%s: must list at least one matcher", w.Kind)
		}
		subs := make([]predicate.Matcher, 0, len(w.Matchers))
		for i, sub := range w.Matchers {
			m, err := sub.toMatcher()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", w.Kind, i, err)
			}
			subs = append(subs, m)
		}
		if w.Kind == "all_of" {
			return predicate.AllOfMatcher{Matchers: subs}, nil
		}
		return predicate.AnyOfMatcher{Matchers: subs}, nil

	case "scope":
		if w.Inner == nil {
			return nil, fmt.Errorf("scope: inner matcher required")
		}
		inner, err := w.Inner.toMatcher()
		if err != nil {
			return nil, fmt.Errorf("scope: %w", err)
		}
		return predicate.ScopeMatcher{
			Inner:                 inner,
			StartBlock:            w.StartBlock,
			EndBlock:              w.EndBlock,
			ExpireAfterOccurrence: w.ExpireAfterOccurrence,
		}, nil

	case "txid_or_print_event":
		h, err := decodeHash(w.Expected)
		if err != nil {
			return nil, fmt.Errorf("txid_or_print_event: %w", err)
		}
		return predicate.TxidOrPrintEventMatcher{Expected: h}, nil

	case "contract_call":
		if w.ContractId == "" {
			return nil, fmt.Errorf("contract_call: contract_id required")
		}
		return predicate.ContractCallMatcher{ContractId: w.ContractId, Method: w.Method}, nil

	case "contract_deployment":
		if w.ContractId == "" && w.ImplementsTrait == "" {
			return nil, fmt.Errorf("contract_deployment: contract_id or implements_trait required")
		}
		return predicate.ContractDeploymentMatcher{ContractId: w.ContractId, ImplementsTrait: w.ImplementsTrait}, nil

	case "ft_event":
		if w.AssetId == "" {
			return nil, fmt.Errorf("ft_event: asset_id required")
		}
		return predicate.FtEventMatcher{AssetId: w.AssetId, Actions: w.Actions}, nil

	case "nft_event":
		if w.AssetId == "" {
			return nil, fmt.Errorf("nft_event: asset_id required")
		}
		return predicate.NftEventMatcher{AssetId: w.AssetId, Actions: w.Actions}, nil

	case "stx_event":
		return predicate.StxEventMatcher{Actions: w.Actions}, nil

	case "print_event":
		return predicate.PrintEventMatcher{ContractId: w.ContractId, Topic: w.Topic}, nil

	default:
		return nil, fmt.Errorf("unknown matcher kind %q", w.Kind)
	}
}

// actionWire is the JSON shape of a predicate.Action, discriminated by Kind.
type actionWire struct {
	Kind string `json:"kind"`

	URL        string            `json:"url,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	AuthHeader string            `json:"auth_header,omitempty"`

	Path string `json:"path,omitempty"`

	Brokers []string `json:"brokers,omitempty"`
	Topic   string   `json:"topic,omitempty"`
}

func (w actionWire) toAction() (predicate.Action, error) {
	switch w.Kind {
	case "http":
		if w.URL == "" {
			return nil, fmt.Errorf("http: url required")
		}
		return predicate.HTTPAction{URL: w.URL, Headers: w.Headers, AuthHeader: w.AuthHeader}, nil
	case "file":
		if w.Path == "" {
			return nil, fmt.Errorf("file: path required")
		}
		return predicate.FileAction{Path: w.Path}, nil
	case "in_process":
		return predicate.InProcessAction{}, nil
	case "kafka":
		if w.Topic == "" || len(w.Brokers) == 0 {
			return nil, fmt.Errorf("kafka: brokers and topic required")
		}
		return predicate.KafkaAction{Brokers: w.Brokers, Topic: w.Topic}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", w.Kind)
	}
}

// ChainhookSpecification is the POST /v1/chainhooks request body (spec §6).
type ChainhookSpecification struct {
	UUID                  string      `json:"uuid"`
	Chain                 string      `json:"chain"`   // "bitcoin" | "stacks"
	Network               string      `json:"network"` // "mainnet" | "testnet" | "devnet" | "simnet"
	Matcher               matcherWire `json:"matcher"`
	Action                actionWire  `json:"action"`
	ExpireAfterOccurrence *uint64     `json:"expire_after_occurrence,omitempty"`
	IncludeProof          bool        `json:"include_proof,omitempty"`
}

func chainFromWire(s string) (chaintypes.Chain, error) {
	switch s {
	case "bitcoin":
		return chaintypes.BTC, nil
	case "stacks":
		return chaintypes.STX, nil
	default:
		return 0, fmt.Errorf("unknown chain %q", s)
	}
}

func networkFromWire(s string) (chaintypes.Network, error) {
	switch s {
	case "mainnet":
		return chaintypes.Mainnet, nil
	case "testnet":
		return chaintypes.Testnet, nil
	case "devnet":
		return chaintypes.Devnet, nil
	case "simnet":
		return chaintypes.Simnet, nil
	default:
		return 0, fmt.Errorf("unknown network %q", s)
	}
}

// ToPredicate validates and converts the wire specification into a
// predicate.Predicate, or returns the field-level errors describing why it
// could not (spec §6 "422 on validation failure", shape per SPEC_FULL §12.4).
// Exported so config/cmd can reuse it to decode initial_predicates entries.
func (spec ChainhookSpecification) ToPredicate() (predicate.Predicate, []fieldError) {
	var errs []fieldError
	var p predicate.Predicate

	if spec.UUID == "" {
		errs = append(errs, fieldError{Path: "uuid", Message: "must not be empty"})
	}
	p.UUID = spec.UUID

	chain, err := chainFromWire(spec.Chain)
	if err != nil {
		errs = append(errs, fieldError{Path: "chain", Message: err.Error()})
	}
	p.Chain = chain

	network, err := networkFromWire(spec.Network)
	if err != nil {
		errs = append(errs, fieldError{Path: "network", Message: err.Error()})
	}
	p.Network = network

	matcher, err := spec.Matcher.toMatcher()
	if err != nil {
		errs = append(errs, fieldError{Path: "matcher", Message: err.Error()})
	}
	p.Matcher = matcher

	action, err := spec.Action.toAction()
	if err != nil {
		errs = append(errs, fieldError{Path: "action", Message: err.Error()})
	}
	p.Action = action

	p.ExpireAfterOccurrence = spec.ExpireAfterOccurrence
	p.IncludeProof = spec.IncludeProof

	return p, errs
}

// DecodeChainhookSpecification is a thin wrapper so handlers get a single
// json.Unmarshal error path distinct from field-level validation errors.
func DecodeChainhookSpecification(body []byte) (ChainhookSpecification, error) {
	var spec ChainhookSpecification
	if err := json.Unmarshal(body, &spec); err != nil {
		return ChainhookSpecification{}, err
	}
	return spec, nil
}
