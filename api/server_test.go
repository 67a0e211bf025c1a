package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"

	"github.com/fracarlesi/piano-excel-sub003/internal/config"
	"github.com/fracarlesi/piano-excel-sub003/internal/portfolio"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func testServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.SetConfigPath(filepath.Join(t.TempDir(), "config.yaml"))

	stop := make(chan struct{})
	go srv.wsHub.Run(stop)
	t.Cleanup(func() { close(stop) })
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// decodeData re-decodes the envelope's data into v.
func decodeData(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	b, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

var testGlobals = product.Globals{ReferenceRate: 3, FixedReferenceRate: 2.5, CostOfFunds: 4}

func sampleRequest(runID string) ProjectionRequest {
	return ProjectionRequest{
		RunID: runID,
		Products: []product.Input{
			{ID: "sme", Division: "corporate", Volumes: []float64{100, 120}, Guarantee: &product.GuaranteeInput{Type: "mcc"}},
			{ID: "mortgage", Division: "retail", LTV: product.Float(70), Volumes: []float64{300}},
		},
		Globals: &testGlobals,
	}
}

func createProjection(t *testing.T, srv *Server, runID string) portfolio.Result {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/v1/projections", sampleRequest(runID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create projection: status %d, body %s", rec.Code, rec.Body.String())
	}
	var res portfolio.Result
	decodeData(t, decodeResponse(t, rec), &res)
	return res
}

// ════════════════════════════════════════════════════════════════════
// Health / rates / products
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		resp := decodeResponse(t, rec)
		data, _ := resp.Data.(map[string]interface{})
		if !resp.Success || data["status"] != "ok" {
			t.Errorf("%s: got %+v", path, resp)
		}
	}
}

func TestHandleRates(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/rates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got struct {
		Source  string          `json:"source"`
		Globals product.Globals `json:"globals"`
	}
	decodeData(t, decodeResponse(t, rec), &got)
	if got.Source != "static" || got.Globals != config.Default().Rates.Globals() {
		t.Errorf("rates: got %+v", got)
	}
}

func TestHandleProductDefaults(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/products/defaults", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got product.DefaultTable
	decodeData(t, decodeResponse(t, rec), &got)
	if got.DangerRate != product.Defaults().DangerRate {
		t.Errorf("danger rate: got %v", got.DangerRate)
	}
}

func TestHandleResolveProducts(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/products/resolve", []product.Input{{ID: "sme", Volumes: []float64{10}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var views []map[string]interface{}
	decodeData(t, decodeResponse(t, rec), &views)
	if len(views) != 1 || views[0]["id"] != "sme" {
		t.Errorf("views: got %v", views)
	}

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing id", []product.Input{{Volumes: []float64{10}}}},
		{"bad amortization", []product.Input{{ID: "x", AmortizationType: "balloon"}}},
		{"not a list", map[string]string{"id": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/v1/products/resolve", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
				t.Errorf("response: %+v", resp)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Projections
// ════════════════════════════════════════════════════════════════════

func TestCreateAndFetchProjection(t *testing.T) {
	srv := testServer(t)
	res := createProjection(t, srv, "run-1")

	if res.RunID != "run-1" || len(res.Products) != 2 || len(res.Divisions) != 2 {
		t.Fatalf("result: run %q, %d products, %d divisions", res.RunID, len(res.Products), len(res.Divisions))
	}
	if len(res.Products[0].Vintages) != 0 {
		t.Error("vintages should be omitted by default")
	}
	if res.Globals != testGlobals {
		t.Errorf("globals: got %+v", res.Globals)
	}

	rec := do(t, srv, http.MethodGet, "/api/v1/projections/run-1?vintages=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var full portfolio.Result
	decodeData(t, decodeResponse(t, rec), &full)
	if len(full.Products[0].Vintages) == 0 {
		t.Error("vintages=true should include vintage detail")
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/projections", nil)
	var infos []ProjectionInfo
	decodeData(t, decodeResponse(t, rec), &infos)
	if len(infos) != 1 || infos[0].RunID != "run-1" || infos[0].Products != 2 {
		t.Errorf("list: got %+v", infos)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/projections/run-1/products/mortgage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("product: status %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/v1/projections/run-1/products/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown product: status %d", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/projections/run-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: status %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/v1/projections/run-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("after delete: status %d", rec.Code)
	}
}

func TestCreateProjectionUsesConfiguredRates(t *testing.T) {
	srv := testServer(t)
	req := sampleRequest("")
	req.Globals = nil
	rec := do(t, srv, http.MethodPost, "/api/v1/projections", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var res portfolio.Result
	decodeData(t, decodeResponse(t, rec), &res)
	if res.RunID == "" {
		t.Error("a run ID should be generated")
	}
	if res.Globals != config.Default().Rates.Globals() {
		t.Errorf("globals: got %+v", res.Globals)
	}
}

func TestCreateProjectionBadRequests(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"products": [`},
		{"no products", `{"products": []}`},
		{"invalid product", `{"products": [{"id": "x", "danger_rate": 150}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/projections", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateProjectionRateLimited(t *testing.T) {
	srv := testServer(t, func(c *config.Config) { c.API.RateLimit = 1 })
	createProjection(t, srv, "a")
	rec := do(t, srv, http.MethodPost, "/api/v1/projections", sampleRequest("b"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want 429", rec.Code)
	}
}

func TestProjectionReport(t *testing.T) {
	srv := testServer(t)
	createProjection(t, srv, "run-r")

	rec := do(t, srv, http.MethodGet, "/api/v1/projections/run-r/report?format=html&products=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("html: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type: %q", ct)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	// consolidated + 2 divisions + 2 products
	if n := doc.Find("section.statement").Length(); n != 5 {
		t.Errorf("statements: got %d, want 5", n)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/projections/run-r/report?format=csv", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "scope,table,line") {
		t.Errorf("csv: status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "run-r.csv") {
		t.Errorf("content disposition: %q", cd)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/projections/run-r/report?format=pdf", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("pdf: status %d, want 400", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/api/v1/projections/missing/report", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status %d, want 404", rec.Code)
	}
}

func TestWithoutVintagesKeepsOriginal(t *testing.T) {
	srv := testServer(t)
	createProjection(t, srv, "run-v")
	res, _ := srv.results.Get("run-v")
	_ = res.WithoutVintages()
	if len(res.Products[0].Vintages) == 0 {
		t.Error("serving a projection must not modify the cached result")
	}
}

// ════════════════════════════════════════════════════════════════════
// Configuration
// ════════════════════════════════════════════════════════════════════

func TestConfigGetAndUpdate(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPut, "/api/v1/config", map[string]interface{}{
		"rates": map[string]interface{}{"cost_of_funds": 5.25},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status %d: %s", rec.Code, rec.Body.String())
	}
	cfg := srv.config()
	if cfg.Rates.CostOfFunds != 5.25 {
		t.Errorf("cost of funds: got %v", cfg.Rates.CostOfFunds)
	}
	if cfg.Rates.ReferenceRate != config.Default().Rates.ReferenceRate || cfg.API.Port != 8080 {
		t.Error("fields absent from the body must keep their value")
	}
	g, _ := srv.rateSource().Rates(t.Context())
	if g.CostOfFunds != 5.25 {
		t.Errorf("rate source not rebuilt: %+v", g)
	}

	saved, err := config.LoadFromFile(srv.configPath)
	if err != nil {
		t.Fatalf("saved config: %v", err)
	}
	if saved.Rates.CostOfFunds != 5.25 {
		t.Errorf("saved cost of funds: got %v", saved.Rates.CostOfFunds)
	}
}

func TestConfigUpdateInvalid(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodPut, "/api/v1/config", map[string]interface{}{
		"rates": map[string]interface{}{"source": "feed"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
	if srv.config().Rates.Source != "static" {
		t.Error("a rejected update must not change the running config")
	}
	if _, err := os.Stat(srv.configPath); !os.IsNotExist(err) {
		t.Error("a rejected update must not be persisted")
	}
}

func TestConfigSettings(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/config/settings", nil)
	var statuses []config.SettingStatus
	decodeData(t, decodeResponse(t, rec), &statuses)
	if len(statuses) == 0 || statuses[0].Key != "rates.source" {
		t.Errorf("settings: got %+v", statuses)
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func TestWebSocketProjectionEvents(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.Hub().ClientCount() != 1 {
		t.Fatalf("clients: got %d, want 1", srv.Hub().ClientCount())
	}

	createProjection(t, srv, "run-ws")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	seen := map[string]int{}
	for seen["projection_complete"] == 0 {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		seen[msg.Type]++
	}
	if seen["projection_started"] != 1 || seen["product_projected"] != 2 {
		t.Errorf("events: got %v", seen)
	}

	if err := conn.WriteJSON(WSMessage{Type: "status", Data: "run-ws"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var status WSMessage
	if err := conn.ReadJSON(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status.Type != "status" {
		t.Errorf("status reply: got %+v", status)
	}

	if err := conn.WriteJSON(WSMessage{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var pong WSMessage
	if err := conn.ReadJSON(&pong); err != nil || pong.Type != "pong" {
		t.Errorf("ping: got %+v %v", pong, err)
	}
}

func TestWSHubBroadcastCount(t *testing.T) {
	hub := NewWSHub()
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	client := NewWSClient(hub, 1)
	if !hub.Register(client) {
		t.Fatal("register on a running hub should succeed")
	}
	hub.Broadcast(WSMessage{Type: "x"})
	select {
	case msg := <-client.send:
		if msg.Type != "x" {
			t.Errorf("message: got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}
	hub.Unregister(client)
	select {
	case <-client.quit:
	case <-time.After(time.Second):
		t.Fatal("quit should be closed on unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients after unregister: %d", hub.ClientCount())
	}
	if trySend(client, WSMessage{Type: "late"}) {
		t.Error("sending to a dropped client should report false")
	}
}

func TestWSHubStopped(t *testing.T) {
	hub := NewWSHub()
	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		hub.Run(stop)
		close(finished)
	}()

	client := NewWSClient(hub, 1)
	hub.Register(client)
	close(stop)
	<-finished

	select {
	case <-client.quit:
	default:
		t.Error("stopping the hub should drop its clients")
	}

	returned := make(chan bool, 1)
	go func() {
		hub.Unregister(client)
		returned <- hub.Register(NewWSClient(hub, 1))
	}()
	select {
	case ok := <-returned:
		if ok {
			t.Error("register on a stopped hub should report false")
		}
	case <-time.After(time.Second):
		t.Fatal("Register/Unregister blocked after the hub stopped")
	}
}
