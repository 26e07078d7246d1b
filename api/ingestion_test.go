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
	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/dispatcher"
	"github.com/klaytn/chainhook-observer/event"
	"github.com/klaytn/chainhook-observer/indexer"
	"github.com/klaytn/chainhook-observer/observer"
	"github.com/klaytn/chainhook-observer/occurrence"
	"github.com/klaytn/chainhook-observer/predicate"
)

type wireBlock struct {
	Hash       string `json:"hash"`
	Index      uint64 `json:"index"`
	ParentHash string `json:"parent_hash"`
	ParentIdx  uint64 `json:"parent_index"`
}

type fakeNormalizer struct{}

func toBlock(w wireBlock) chaintypes.Block {
	var h, ph chaintypes.Hash32
	copy(h[:], w.Hash)
	copy(ph[:], w.ParentHash)
	return chaintypes.Block{Id: chaintypes.BlockId{Hash: h, Index: w.Index}, ParentId: chaintypes.BlockId{Hash: ph, Index: w.ParentIdx}}
}

func (fakeNormalizer) NormalizeBTCBlock(raw []byte) (chaintypes.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return chaintypes.Block{}, err
	}
	return toBlock(w), nil
}

func (fakeNormalizer) NormalizeSTXBlock(raw []byte) (chaintypes.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return chaintypes.Block{}, err
	}
	return toBlock(w), nil
}

func (fakeNormalizer) NormalizeSTXMicroblocks(raw []byte) ([]chaintypes.Microblock, error) {
	return nil, nil
}

func newTestOrchestrator(t *testing.T) *observer.Orchestrator {
	t.Helper()
	ix := indexer.New(fakeNormalizer{}, blockpool.DefaultConfirmedDepth, blockpool.DefaultConfirmedDepth)
	store := predicate.NewStore(nil)
	tracker := occurrence.New()
	disp := dispatcher.New(nil, nil, nil, false, nil)
	o := observer.New(ix, store, tracker, disp, &event.Feed{}, true, nil)
	o.Start()
	t.Cleanup(o.Stop)
	return o
}

func TestPingReturnsOk(t *testing.T) {
	orch := newTestOrchestrator(t)
	r := NewIngestionRouter(IngestionConfig{Orchestrator: orch})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewBurnBlockEnqueuesAndAcks(t *testing.T) {
	orch := newTestOrchestrator(t)
	r := NewIngestionRouter(IngestionConfig{Orchestrator: orch})
	srv := httptest.NewServer(r)
	defer srv.Close()

	body := []byte(`{"hash":"A1","index":1,"parent_hash":"genesis","parent_index":0}`)
	resp, err := http.Post(srv.URL+"/new_burn_block", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, orch.Status().BTCTip)
}

func TestNoopRoutesAck(t *testing.T) {
	orch := newTestOrchestrator(t)
	r := NewIngestionRouter(IngestionConfig{Orchestrator: orch})
	srv := httptest.NewServer(r)
	defer srv.Close()

	for _, route := range []string{"/new_mempool_tx", "/drop_mempool_tx", "/attachments/new", "/mined_block", "/mined_microblock"} {
		resp, err := http.Post(srv.URL+route, "application/json", bytes.NewReader([]byte(`{}`)))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, route)
		resp.Body.Close()
	}
}
