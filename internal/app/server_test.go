package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"go.uber.org/zap"
)

const yamlFixtures = `
- id: 10
  time: "2024-05-01T10:00:00Z"
  user: {username: alice}
  action: {value: create}
  changed_object_type: dcim.site
  changed_object_id: 1
  object_repr: HQ
- id: 11
  time: "2024-05-01T11:00:00Z"
  user: {username: bob}
  action: {value: update}
  changed_object_type: dcim.site
  changed_object_id: 1
  object_repr: HQ
`

func newTestMockServer(t *testing.T, fixtures string) *http.Server {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "changes.yaml")
	if err := os.WriteFile(path, []byte(fixtures), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}

	server, closer, err := NewMockServer(context.Background(), MockConfig{
		Addr:     "127.0.0.1:0",
		DBPath:   filepath.Join(dir, "mock.sqlite"),
		Fixtures: path,
		Token:    testToken,
	}, nil)
	if err != nil {
		t.Fatalf("new mock server: %v", err)
	}
	t.Cleanup(func() { _ = closer.Close() })
	return server
}

func TestMockServerServesFixtures(t *testing.T) {
	server := newTestMockServer(t, yamlFixtures)

	req := httptest.NewRequest(http.MethodGet, domain.ObjectChangesPath+"?user__username=bob", nil)
	req.Header.Set("Authorization", "Token "+testToken)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Count   int `json:"count"`
		Results []struct {
			ID int `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 1 || len(payload.Results) != 1 || payload.Results[0].ID != 11 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestMockServerRestartReplacesStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mock.sqlite")

	start := func(body string) *http.Server {
		path := filepath.Join(dir, "changes.json")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write fixtures: %v", err)
		}
		server, closer, err := NewMockServer(context.Background(), MockConfig{
			Addr: "127.0.0.1:0", DBPath: dbPath, Fixtures: path, Token: testToken,
		}, nil)
		if err != nil {
			t.Fatalf("new mock server: %v", err)
		}
		t.Cleanup(func() { _ = closer.Close() })
		return server
	}

	start(`[{"time": "2024-05-01T10:00:00Z"}, {"time": "2024-05-02T10:00:00Z"}]`)
	server := start(`[{"time": "2024-06-01T10:00:00Z"}]`)

	req := httptest.NewRequest(http.MethodGet, domain.ObjectChangesPath, nil)
	req.Header.Set("Authorization", "Token "+testToken)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 1 {
		t.Fatalf("expected fixtures to replace the store, got count %d", payload.Count)
	}
}

func TestMockServerRejectsBadFixtures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "changes.json")
	if err := os.WriteFile(path, []byte(`[{"time": "last tuesday"}]`), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	_, _, err := NewMockServer(context.Background(), MockConfig{
		Addr: "127.0.0.1:0", DBPath: filepath.Join(dir, "mock.sqlite"), Fixtures: path, Token: testToken,
	}, nil)
	if err == nil {
		t.Fatal("expected fixture time error")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	server := newTestMockServer(t, yamlFixtures)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
