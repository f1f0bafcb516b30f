package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/engine"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"
)

func newTestServer(t *testing.T, ticks uint64) (*Server, *engine.Simulation, *httptest.Server) {
	t.Helper()
	sim, err := engine.New(scenario.Default(), 4)
	if err != nil {
		t.Fatalf("new sim: %v", err)
	}
	hub := NewHub(64)
	if err := sim.Run(context.Background(), ticks, hub); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := &Server{Hub: hub, Eng: engine.NewEngine(sim, hub), AdminKey: "secret"}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, sim, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	_, sim, ts := newTestServer(t, 10)
	var status map[string]any
	if code := getJSON(t, ts.URL+"/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("status code %d", code)
	}
	if status["tick"].(float64) != 10 {
		t.Fatalf("tick = %v", status["tick"])
	}
	if status["digest"] != sim.StateDigest() {
		t.Fatalf("digest mismatch")
	}
	if int(status["agents"].(float64)) != len(sim.Agents) {
		t.Fatalf("agents = %v", status["agents"])
	}
}

func TestAgents(t *testing.T) {
	_, sim, ts := newTestServer(t, 5)
	var list []engine.AgentSnapshot
	if code := getJSON(t, ts.URL+"/api/v1/agents", &list); code != http.StatusOK || len(list) != len(sim.Agents) {
		t.Fatalf("agents: code %d, %d entries", code, len(list))
	}

	var detail struct {
		Agent engine.AgentSnapshot `json:"agent"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/agent/3", &detail); code != http.StatusOK || detail.Agent.ID != 3 {
		t.Fatalf("agent 3: code %d, %+v", code, detail.Agent)
	}
	if detail.Agent.Pos != sim.Agents[3].Pos {
		t.Fatalf("agent 3 pos %v, want %v", detail.Agent.Pos, sim.Agents[3].Pos)
	}
	if code := getJSON(t, ts.URL+"/api/v1/agent/9999", nil); code != http.StatusNotFound {
		t.Fatalf("missing agent code %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/v1/agent/abc", nil); code != http.StatusBadRequest {
		t.Fatalf("bad id code %d", code)
	}
}

func TestTradesLimit(t *testing.T) {
	_, _, ts := newTestServer(t, 40)
	var trades []engine.TradeRecord
	if code := getJSON(t, ts.URL+"/api/v1/trades?limit=3", &trades); code != http.StatusOK || len(trades) > 3 {
		t.Fatalf("trades: code %d, %d entries", code, len(trades))
	}
	for i := 1; i < len(trades); i++ {
		if trades[i].Tick > trades[i-1].Tick {
			t.Fatalf("trades not newest first: %+v", trades)
		}
	}
	if code := getJSON(t, ts.URL+"/api/v1/trades?limit=0", nil); code != http.StatusBadRequest {
		t.Fatalf("limit=0 code %d", code)
	}
}

func TestSpeedRequiresAdmin(t *testing.T) {
	s, _, ts := newTestServer(t, 1)

	resp, err := http.Post(ts.URL+"/api/v1/speed", "application/json", strings.NewReader(`{"speed": 2}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated code %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/speed", strings.NewReader(`{"speed": 2}`))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || s.Eng.Speed() != 2 {
		t.Fatalf("code %d, speed %v", resp.StatusCode, s.Eng.Speed())
	}
}

func TestRunsWithoutDB(t *testing.T) {
	_, _, ts := newTestServer(t, 1)
	if code := getJSON(t, ts.URL+"/api/v1/runs", nil); code != http.StatusNotFound {
		t.Fatalf("runs code %d", code)
	}
}

func TestStreamPushesReports(t *testing.T) {
	s, sim, ts := newTestServer(t, 2)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Catch-up message is the latest report.
	var rep engine.TickReport
	if err := conn.ReadJSON(&rep); err != nil {
		t.Fatalf("read catch-up: %v", err)
	}
	if rep.Tick != 2 {
		t.Fatalf("catch-up tick = %d", rep.Tick)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	r, err := sim.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	s.Hub.Record(r)
	if err := conn.ReadJSON(&rep); err != nil {
		t.Fatalf("read live: %v", err)
	}
	if rep.Tick != 3 || rep.Digest != r.Digest {
		t.Fatalf("live report tick %d", rep.Tick)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("other client should pass")
	}
	if got := rl.RetryAfter("a"); got < 59 || got > 61 {
		t.Fatalf("retry after = %d", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("window should reset")
	}
}

func TestHubTradeRing(t *testing.T) {
	h := NewHub(3)
	for tick := uint64(1); tick <= 5; tick++ {
		h.Record(&engine.TickReport{Tick: tick, Trades: []engine.TradeRecord{{Tick: tick}}})
	}
	got := h.RecentTrades(10)
	if len(got) != 3 || got[0].Tick != 5 || got[2].Tick != 3 {
		t.Fatalf("ring = %+v", got)
	}
	if h.TotalTrades() != 5 {
		t.Fatalf("total = %d", h.TotalTrades())
	}
}
