package storage_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipto/internal/services"
	"clipto/internal/storage"
	"clipto/internal/testsupport"
)

func TestIPFSAddPostsMultipartFile(t *testing.T) {
	var gotBody, gotUser, gotPin string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/api/v0/add" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotUser, _, _ = r.BasicAuth()
		gotPin = r.URL.Query().Get("pin")
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart body: %v", err)
			return
		}
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			if part.Header.Get("Content-Type") == "application/x-directory" {
				continue
			}
			data, _ := io.ReadAll(part)
			gotBody = string(data)
			break
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Name":"QmHash","Hash":"QmHash","Size":"12"}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	cfg.Storage.AccessKey = "project"
	cfg.Storage.SecretKey = "secret"
	cfg.Storage.GatewayURL = "https://gateway.example/ipfs"
	store, err := storage.New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if store.Name() != "ipfs" {
		t.Fatalf("unexpected store %s", store.Name())
	}

	path, err := store.Add(context.Background(), "post.json", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if path != "QmHash" || gotBody != `{"a":1}` || gotUser != "project" || gotPin != "true" {
		t.Fatalf("unexpected add: path=%s body=%s user=%s pin=%s", path, gotBody, gotUser, gotPin)
	}
	link, err := store.URL(context.Background(), path)
	if err != nil || link != "https://gateway.example/ipfs/QmHash" {
		t.Fatalf("unexpected url %q %v", link, err)
	}
}

func TestIPFSAddClassifiesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	store, _ := storage.New(testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL)), nil)
	if _, err := store.Add(context.Background(), "x.json", []byte("{}")); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if _, err := store.URL(context.Background(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIPFSAddReportsAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Message":"invalid cid version","Code":0,"Type":"error"}`))
	}))
	defer server.Close()

	store, _ := storage.New(testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL)), nil)
	_, err := store.Add(context.Background(), "x.json", []byte("{}"))
	if !errors.Is(err, services.ErrUnexpected) || !strings.Contains(err.Error(), "invalid cid version") {
		t.Fatalf("expected unexpected error with api message, got %v", err)
	}
}

func TestMinioStoreSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Backend = "minio"
	cfg.Storage.Endpoint = "127.0.0.1:9000"
	cfg.Storage.Bucket = "clipto"
	cfg.Storage.GatewayURL = "https://cdn.example/clipto"
	store, err := storage.New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if store.Name() != "minio" {
		t.Fatalf("unexpected store %s", store.Name())
	}
	link, err := store.URL(context.Background(), "abc.json")
	if err != nil || link != "https://cdn.example/clipto/abc.json" {
		t.Fatalf("unexpected url %q %v", link, err)
	}

	cfg.Storage.Backend = "s3"
	if _, err := storage.New(cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestContentKeyIsStable(t *testing.T) {
	a := storage.ContentKey("post.JSON", []byte("hello"))
	b := storage.ContentKey("other.json", []byte("hello"))
	if a != b {
		t.Fatalf("same content should share a key: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "2cf24dba5fb0a30e") || !strings.HasSuffix(a, ".json") {
		t.Fatalf("unexpected key %s", a)
	}
}
