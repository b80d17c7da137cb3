package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"groovy/internal/api"
	"groovy/internal/config"
	"groovy/internal/daemon"
	"groovy/internal/engine"
	"groovy/internal/logging"
	"groovy/internal/scanner"
	"groovy/internal/testsupport"
	"groovy/internal/tracking"
)

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *tracking.Store, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	scans := scanner.New(cfg, store, logging.NewNop(), nil)
	eng := engine.New(store, scans, logging.NewNop(), nil)

	d, err := daemon.New(cfg, store, eng, scans, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})
	return d, store, cfg
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestDaemonStatusEndpoint(t *testing.T) {
	d, _, _ := startDaemon(t)

	resp, err := http.Get("http://" + d.APIAddr() + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}
	status := decodeJSON[api.DaemonStatus](t, resp)
	if !status.Running {
		t.Error("daemon should report running")
	}
	if status.PID == 0 {
		t.Error("pid missing from status")
	}
}

func TestDaemonItemLifecycleOverHTTP(t *testing.T) {
	d, store, _ := startDaemon(t)
	testsupport.SeedWorkflow(t, store, nil)
	base := "http://" + d.APIAddr()

	resp := postJSON(t, base+"/api/items", api.CreateItemRequest{
		WorkflowID: "garment-basic",
		ItemID:     "JKT-1",
		UserID:     "maria",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decodeJSON[api.ItemResponse](t, resp)
	if created.Item.CurrentStageID != "cut" {
		t.Fatalf("created item = %+v", created.Item)
	}

	// Off-graph advance is rejected as a conflict.
	resp = postJSON(t, base+"/api/items/JKT-1/advance", api.AdvanceRequest{ToStageID: "finish"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("off-graph advance status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, base+"/api/items/JKT-1/scan", api.CompleteScanRequest{
		StageID: "cut",
		QRData:  "item:JKT-1",
		UserID:  "maria",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan completion status = %d, want 200", resp.StatusCode)
	}
	transition := decodeJSON[api.TransitionResponse](t, resp)
	if transition.Status != "advanced" || transition.NextStageID != "sew" {
		t.Fatalf("transition = %+v", transition)
	}

	// Scanning against the stage the item already left is a conflict and the
	// attempt lands in the audit trail.
	resp = postJSON(t, base+"/api/items/JKT-1/scan", api.CompleteScanRequest{
		StageID: "cut",
		QRData:  "item:JKT-1",
		UserID:  "maria",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("wrong-stage scan status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	scansResp, err := http.Get(base + "/api/scans/item/JKT-1")
	if err != nil {
		t.Fatalf("GET scans: %v", err)
	}
	scans := decodeJSON[api.ScanListResponse](t, scansResp)
	if len(scans.Scans) != 2 {
		t.Fatalf("scan count = %d, want 2", len(scans.Scans))
	}

	histResp, err := http.Get(base + "/api/items/JKT-1/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	history := decodeJSON[api.HistoryResponse](t, histResp)
	if len(history.Entries) != 3 {
		t.Fatalf("history length = %d, want 3", len(history.Entries))
	}

	missing, err := http.Get(base + "/api/items/ghost")
	if err != nil {
		t.Fatalf("GET missing item: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing item status = %d, want 404", missing.StatusCode)
	}
}

func TestDaemonWorkflowEndpoints(t *testing.T) {
	d, _, _ := startDaemon(t)
	base := "http://" + d.APIAddr()

	def := testsupport.GarmentWorkflow()
	body, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal definition: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, base+"/api/workflows", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/workflows: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("define status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := http.Get(base + "/api/workflows/garment-basic")
	if err != nil {
		t.Fatalf("GET workflow: %v", err)
	}
	stored := decodeJSON[api.Workflow](t, getResp)
	if stored.ID != "garment-basic" || len(stored.Stages) != 3 {
		t.Fatalf("stored workflow = %+v", stored)
	}
}

func TestDaemonAPIAuth(t *testing.T) {
	d, _, _ := startDaemon(t, testsupport.WithAPIToken("secret"))
	base := "http://" + d.APIAddr()

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET without token: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unauthorized content type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode unauthorized body: %v", err)
	}
	resp.Body.Close()
	if body["error"] != "unauthorized" {
		t.Fatalf("unauthorized body = %v", body)
	}

	wrong, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	wrong.Header.Set("Authorization", "Bearer secreX")
	resp, err = http.DefaultClient.Do(wrong)
	if err != nil {
		t.Fatalf("GET with wrong token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", resp.StatusCode)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	first, store, cfg := startDaemon(t)
	if !first.Status(context.Background()).Running {
		t.Fatal("first daemon not running")
	}

	scans := scanner.New(cfg, store, logging.NewNop(), nil)
	eng := engine.New(store, scans, logging.NewNop(), nil)
	second, err := daemon.New(cfg, store, eng, scans, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon acquired the lock")
	}
}
