// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/pipelined/internal/cache"
	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/parser"
	"github.com/ManuGH/pipelined/internal/tree"
	"github.com/ManuGH/pipelined/internal/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireEnvelope struct {
	Code        int             `json:"code"`
	Description string          `json:"description"`
	Response    json.RawMessage `json:"response"`
}

// slowEngine delays pipeline construction so requests can be held
// in-flight deterministically.
type slowEngine struct {
	engine.Engine
	delay time.Duration
}

func (s *slowEngine) BuildPipeline(ctx context.Context, description string) (engine.Handle, error) {
	time.Sleep(s.delay)
	return s.Engine.BuildPipeline(ctx, description)
}

func newTestServer(t *testing.T, eng engine.Engine, workers int) *httptest.Server {
	t.Helper()
	s := tree.Acquire(eng)
	t.Cleanup(func() { tree.ReleaseSession(s) })

	pool := workerpool.New(workers, workers)
	srv, err := New(s, parser.NewDispatcher(s, nil), Options{StatusCache: cache.Noop()}, pool)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop(context.Background())
	})
	return ts
}

func decodeEnvelope(t *testing.T, resp *http.Response) wireEnvelope {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var env wireEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestHealthFastPath(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, env.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, string(env.Response))
}

func TestCreateViaJSONBody(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Post(ts.URL+"/pipelines", "application/json",
		strings.NewReader(`{"name":"p0","description":"fakesrc ! fakesink"}`))
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, env.Code)

	// read after create renders the new child.
	resp, err = http.Get(ts.URL + "/pipelines")
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	require.Equal(t, 0, env.Code)
	assert.Contains(t, string(env.Response), `"p0"`)
}

func TestCreateViaQueryParams(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Post(ts.URL+"/pipelines?name=p1&description=fakesrc+%21+fakesink", "", nil)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, env.Code)
}

func TestCreateMissingNameIs204(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Post(ts.URL+"/pipelines", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// No pipeline was created.
	resp, err = http.Get(ts.URL + "/pipelines")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, `{"name":"pipelines","children":[]}`, string(env.Response))
}

func TestConflictingCreate(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 4)

	post := func() int {
		resp, err := http.Post(ts.URL+"/pipelines", "application/json",
			strings.NewReader(`{"name":"p0","description":"fakesrc ! fakesink"}`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	first, second := post(), post()
	require.Equal(t, http.StatusOK, first)
	require.Equal(t, http.StatusConflict, second)
}

func TestDeleteAndUpdateVerbs(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)
	client := &http.Client{}

	resp, err := http.Post(ts.URL+"/pipelines", "application/json",
		strings.NewReader(`{"name":"p0","description":"fakesrc ! fakesink"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/pipelines/p0/state?name=playing", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, 0, env.Code)

	req, err = http.NewRequest(http.MethodPut, ts.URL+"/pipelines/p0/state?name=null", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/pipelines?name=p0", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	env = decodeEnvelope(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, env.Code)
}

func TestUnknownPathIs404(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Get(ts.URL + "/nowhere")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotZero(t, env.Code)
}

func TestOptionsReturnsCORSHeaders(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)
	client := &http.Client{}

	var previous http.Header
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/pipelines", nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "origin,range,content-type", resp.Header.Get("Access-Control-Allow-Headers"))
		require.Equal(t, "PUT, GET, POST, DELETE", resp.Header.Get("Access-Control-Allow-Methods"))
		if previous != nil {
			require.Equal(t, previous.Get("Access-Control-Allow-Origin"), resp.Header.Get("Access-Control-Allow-Origin"))
		}
		previous = resp.Header
	}
}

func TestCORSHeadersOnEveryResponse(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Get(ts.URL + "/pipelines")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPipelinesStatusFastPath(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Post(ts.URL+"/pipelines", "application/json",
		strings.NewReader(`{"name":"p0","description":"fakesrc ! fakesink"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/pipelines/status")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, env.Code)

	var status struct {
		Pipelines []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"pipelines"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Response, &status))
	require.Equal(t, 1, status.Count)
	require.Equal(t, "p0", status.Pipelines[0].Name)
	require.Equal(t, "null", status.Pipelines[0].State)
}

func TestPoolOverflowReturns503(t *testing.T) {
	const capacity = 2
	eng := &slowEngine{Engine: engine.NewFake(), delay: 500 * time.Millisecond}
	ts := newTestServer(t, eng, capacity)

	// 2*capacity requests saturate workers and queue; extras get 503.
	const total = capacity*2 + 2
	statuses := make([]int, total)
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func(i int) {
			defer wg.Done()
			body := strings.NewReader(`{"name":"p` + string(rune('0'+i)) + `","description":"fakesrc ! fakesink"}`)
			resp, err := http.Post(ts.URL+"/pipelines", "application/json", body)
			if err != nil {
				statuses[i] = -1
				return
			}
			_ = resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}

	// While the slow requests are in flight, /health stays responsive.
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Less(t, time.Since(start), 200*time.Millisecond)

	wg.Wait()
	var ok, unavailable int
	for _, s := range statuses {
		switch s {
		case http.StatusOK:
			ok++
		case http.StatusServiceUnavailable:
			unavailable++
		default:
			t.Fatalf("unexpected status %d", s)
		}
	}
	require.Positive(t, unavailable)
	require.Equal(t, total, ok+unavailable)
}

func TestOpenAPIDocumentServed(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Get(ts.URL + "/openapi.json")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Equal(t, "3.0.3", doc["openapi"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogsRecentServed(t *testing.T) {
	ts := newTestServer(t, engine.NewFake(), 2)

	resp, err := http.Get(ts.URL + "/logs/recent")
	require.NoError(t, err)
	env := decodeEnvelope(t, resp)
	require.Equal(t, 0, env.Code)
}

func TestMalformedOriginRejected(t *testing.T) {
	s := tree.Acquire(engine.NewFake())
	t.Cleanup(func() { tree.ReleaseSession(s) })
	pool := workerpool.New(1, 1)
	srv, err := New(s, parser.NewDispatcher(s, nil), Options{StatusCache: cache.Noop()}, pool)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Stop(context.Background()) })

	// The stock client refuses to send an invalid header value, so the
	// handler is driven directly.
	req := httptest.NewRequest(http.MethodGet, "/pipelines", nil)
	req.Header.Set("Origin", "evil\x7forigin")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
