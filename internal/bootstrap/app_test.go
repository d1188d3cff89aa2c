package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/kv"
	localstore "resume-builder/internal/shared/storage/kv/local"
)

func TestBuildStorageLocal(t *testing.T) {
	dir := t.TempDir()
	store, sqlDB, closeFn, err := BuildStorage(context.Background(), config.Config{StorageBackend: "local", LocalStoreDir: dir}, db.DefaultCLIOptions())
	if err != nil {
		t.Fatalf("BuildStorage: %v", err)
	}
	defer closeFn()
	if sqlDB != nil {
		t.Fatalf("expected no database for local storage")
	}
	if _, ok := store.(*localstore.Store); !ok {
		t.Fatalf("expected local store, got %T", store)
	}
}

func TestBuildStorageRejectsMisconfiguration(t *testing.T) {
	cases := []config.Config{
		{StorageBackend: "postgres"},
		{StorageBackend: "s3"},
		{StorageBackend: "valkey"},
		{StorageBackend: "floppy"},
	}
	for _, cfg := range cases {
		if _, _, _, err := BuildStorage(context.Background(), cfg, db.DefaultCLIOptions()); err == nil {
			t.Fatalf("expected error for backend %q", cfg.StorageBackend)
		}
	}
}

func TestWorkspaceOptions(t *testing.T) {
	opts := WorkspaceOptions(config.Config{SubmitDelay: 0, SearchDebounce: 50 * time.Millisecond})
	if opts.SubmitDelay >= 0 {
		t.Fatalf("zero delay should disable the wait, got %s", opts.SubmitDelay)
	}
	opts = WorkspaceOptions(config.Config{SubmitDelay: time.Second})
	if opts.SubmitDelay != time.Second {
		t.Fatalf("unexpected delay %s", opts.SubmitDelay)
	}
}

func TestBuildServesRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), config.Config{Env: "dev", StorageBackend: "memory"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Start(ctx)
	if _, ok := app.Store.(*kv.Memory); !ok {
		t.Fatalf("expected memory store, got %T", app.Store)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/theme", nil)
	req.Header.Set("X-Guest-Id", "g1")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "light") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestBuildRejectsProductionWithoutSecret(t *testing.T) {
	if _, err := Build(context.Background(), config.Config{Env: "production", StorageBackend: "memory"}); err == nil {
		t.Fatalf("expected missing JWT secret error")
	}
}

func TestBuildStorageRejectsMistypedBackendFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgress")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOCAL_STORE_DIR", t.TempDir())

	_, _, _, err := BuildStorage(context.Background(), config.Load(), db.DefaultCLIOptions())
	if err == nil || !strings.Contains(err.Error(), `unknown storage backend "postgress"`) {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}
