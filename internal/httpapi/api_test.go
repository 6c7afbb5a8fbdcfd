package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/yuqie6/MiNomina/internal/bootstrap"
	"github.com/yuqie6/MiNomina/internal/pkg/config"
)

func newTestCore(t *testing.T) *bootstrap.Core {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "minomina.sqlite")
	cfg.Migration.RetryDelayMs = 1
	cfg.Migration.FailureDelayMs = 0
	core, err := bootstrap.NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewCoreWithConfig error: %v", err)
	}
	t.Cleanup(func() { _ = core.Close() })
	if _, err := core.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare error: %v", err)
	}
	return core
}

func TestHandleMigrations(t *testing.T) {
	core := newTestCore(t)
	mux := http.NewServeMux()
	newAPI(core).registerRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/migrations", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool               `json:"success"`
		Data    migrationStatusDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data.Applied) != len(core.Migrations) || len(body.Data.Pending) != 0 {
		t.Fatalf("body=%+v", body)
	}
	if body.Data.Applied[0].Name != "001_add_is_paid_to_expenses" {
		t.Fatalf("first applied=%s", body.Data.Applied[0].Name)
	}
}

func TestHandleHealth(t *testing.T) {
	core := newTestCore(t)
	mux := http.NewServeMux()
	newAPI(core).registerRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health status=%d, want 405", rec.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	core := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := Start(ctx, core, Options{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	resp, err := http.Get(srv.BaseURL() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
}
