package preflight_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipto/internal/preflight"
	"clipto/internal/testsupport"
)

func TestCheckDirectoryAccessOK(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccessNotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing dir failure, got %+v", result)
	}
}

func TestCheckDirectoryAccessNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if result := preflight.CheckHTTP(context.Background(), "Lens API", srv.URL); !result.Passed {
		t.Fatalf("4xx should count as reachable, got %+v", result)
	}
	if result := preflight.CheckHTTP(context.Background(), "Lens API", srv.URL+"/broken"); result.Passed {
		t.Fatal("5xx should fail")
	}
	if result := preflight.CheckHTTP(context.Background(), "Lens API", ""); result.Passed || !result.Optional {
		t.Fatalf("empty url should be optional, got %+v", result)
	}
}

func TestCheckRPCComparesChainID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "0x89"})
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(srv.URL))
	cfg.Wallet.RPCURL = srv.URL
	cfg.Chain.ChainID = 137
	if result := preflight.CheckRPC(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected chain 137 to pass, got %+v", result)
	}

	cfg.Chain.ChainID = 80001
	result := preflight.CheckRPC(context.Background(), cfg)
	if result.Passed || !strings.Contains(result.Detail, "want 80001") {
		t.Fatalf("expected chain mismatch, got %+v", result)
	}
}

func TestRunAllSkipsOnlineChecksByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := preflight.RunAll(context.Background(), cfg, false)
	for _, result := range results {
		if result.Name == "Backend API" || result.Name == "RPC node" {
			t.Fatalf("unexpected online check result %+v", result)
		}
		if strings.HasSuffix(result.Name, "directory") && !result.Passed {
			t.Fatalf("expected %s to pass, got %s", result.Name, result.Detail)
		}
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 local checks, got %d", len(results))
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := preflight.RunAll(context.Background(), nil, true); results != nil {
		t.Fatalf("expected nil, got %v", results)
	}
}
