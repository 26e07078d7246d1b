package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaytn/chainhook-observer/blockpool"
	"github.com/klaytn/chainhook-observer/dispatcher"
	"github.com/klaytn/chainhook-observer/event"
	"github.com/klaytn/chainhook-observer/indexer"
	"github.com/klaytn/chainhook-observer/observer"
	"github.com/klaytn/chainhook-observer/occurrence"
	"github.com/klaytn/chainhook-observer/predicate"
)

func newTestControlServer(t *testing.T, operators []predicate.ApiKey) (*httptest.Server, *predicate.Store) {
	t.Helper()
	ix := indexer.New(fakeNormalizer{}, blockpool.DefaultConfirmedDepth, blockpool.DefaultConfirmedDepth)
	store := predicate.NewStore(operators)
	tracker := occurrence.New()
	disp := dispatcher.New(nil, nil, nil, false, nil)
	o := observer.New(ix, store, tracker, disp, &event.Feed{}, true, nil)
	o.Start()
	t.Cleanup(o.Stop)

	r := NewControlRouter(ControlConfig{Orchestrator: o, Store: store})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRegisterChainhookValidSpecReturns200(t *testing.T) {
	srv, store := newTestControlServer(t, nil)

	spec := map[string]interface{}{
		"uuid":    "p1",
		"chain":   "bitcoin",
		"network": "mainnet",
		"matcher": map[string]interface{}{
			"kind":     "txid",
			"expected": "0x" + "11" + repeatHex("00", 31),
		},
		"action": map[string]interface{}{"kind": "in_process"},
	}
	body, _ := json.Marshal(spec)

	resp, err := http.Post(srv.URL+"/v1/chainhooks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, ok := store.OwnerOf("p1")
	assert.True(t, ok)
}

func repeatHex(pair string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += pair
	}
	return out
}

func TestRegisterChainhookInvalidMatcherReturns422(t *testing.T) {
	srv, _ := newTestControlServer(t, nil)

	spec := map[string]interface{}{
		"uuid":    "p1",
		"chain":   "bitcoin",
		"network": "mainnet",
		"matcher": map[string]interface{}{"kind": "not_a_real_kind"},
		"action":  map[string]interface{}{"kind": "in_process"},
	}
	body, _ := json.Marshal(spec)

	resp, err := http.Post(srv.URL+"/v1/chainhooks", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body2 validationErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body2))
	assert.NotEmpty(t, body2.Errors)
}

func TestControlServerRejectsUnknownApiKey(t *testing.T) {
	srv, _ := newTestControlServer(t, []predicate.ApiKey{"good-key"})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/chainhooks", nil)
	req.Header.Set(apiKeyHeader, "bad-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListChainhooksForKnownTenant(t *testing.T) {
	srv, store := newTestControlServer(t, []predicate.ApiKey{"good-key"})
	require.NoError(t, store.Register("good-key", predicate.Predicate{
		UUID: "p1", Matcher: predicate.TxidMatcher{}, Action: predicate.InProcessAction{},
	}))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/chainhooks", nil)
	req.Header.Set(apiKeyHeader, "good-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []chainhookListEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Len(t, entries, 1)
}

func TestDeregisterBitcoinChainhook(t *testing.T) {
	srv, store := newTestControlServer(t, nil)
	require.NoError(t, store.Register(predicate.AnonymousTenant, predicate.Predicate{
		UUID: "p1", Matcher: predicate.TxidMatcher{}, Action: predicate.InProcessAction{},
	}))

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/chainhooks/bitcoin/p1", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, ok := store.OwnerOf("p1")
	assert.False(t, ok)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestControlServer(t, nil)
	resp, err := http.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var s observer.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
}
