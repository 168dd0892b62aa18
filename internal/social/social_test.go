package social_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clipto/internal/backend"
	"clipto/internal/poller"
	"clipto/internal/services"
	"clipto/internal/social"
	"clipto/internal/storage"
	"clipto/internal/testsupport"
)

type fakeSigner struct {
	mu        sync.Mutex
	messages  []string
	typedData []map[string]any
}

func (f *fakeSigner) PersonalSign(_ context.Context, account, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, account+":"+message)
	return "0xauth", nil
}

func (f *fakeSigner) SignTypedData(_ context.Context, _ string, typedData json.RawMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var decoded map[string]any
	if err := json.Unmarshal(typedData, &decoded); err != nil {
		return "", err
	}
	f.typedData = append(f.typedData, decoded)
	return "0xtyped", nil
}

type lensFake struct {
	mu            sync.Mutex
	profiles      string
	broadcast     string
	indexedAfter  int
	indexCalls    int
	contentURI    string
	accessToken   string
	storedPost    map[string]any
	broadcastSigs []string
}

func (f *lensFake) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/arweave/meta-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Birthday","description":"Happy birthday","image":"https://img/1.png","animation_url":"https://video/1.mp4"}`))
	})
	mux.HandleFunc("/ipfs/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		if err != nil {
			t.Errorf("multipart body: %v", err)
			return
		}
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		data, _ := io.ReadAll(part)
		f.mu.Lock()
		_ = json.Unmarshal(data, &f.storedPost)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Hash":"QmPost"}`))
	})
	mux.HandleFunc("/lens", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                     `json:"query"`
			Variables map[string]json.RawMessage `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode graphql: %v", err)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.Contains(req.Query, "profiles("):
			_, _ = w.Write([]byte(f.profiles))
		case strings.Contains(req.Query, "challenge("):
			_, _ = w.Write([]byte(`{"data":{"challenge":{"text":"sign in to lens"}}}`))
		case strings.Contains(req.Query, "authenticate("):
			_, _ = w.Write([]byte(`{"data":{"authenticate":{"accessToken":"token-1","refreshToken":"r"}}}`))
		case strings.Contains(req.Query, "createPostTypedData("):
			f.accessToken = r.Header.Get("x-access-token")
			var body struct {
				Request social.PostRequest `json:"request"`
			}
			raw, _ := json.Marshal(req.Variables)
			_ = json.Unmarshal(raw, &body)
			f.contentURI = body.Request.ContentURI
			_, _ = w.Write([]byte(`{"data":{"createPostTypedData":{"id":"typed-1","expiresAt":"2030-01-01T00:00:00Z","typedData":{
				"types":{"__typename":"CreatePostEIP712TypedDataTypes","PostWithSig":[{"name":"profileId","type":"uint256"}]},
				"domain":{"name":"Lens","chainId":80001,"version":"1","verifyingContract":"0x00000000000000000000000000000000000000aa"},
				"value":{"nonce":0,"deadline":1,"profileId":"0x01","contentURI":"x"}}}}}`))
		case strings.Contains(req.Query, "broadcast("):
			var body struct {
				Request struct {
					Signature string `json:"signature"`
				} `json:"request"`
			}
			raw, _ := json.Marshal(req.Variables)
			_ = json.Unmarshal(raw, &body)
			f.broadcastSigs = append(f.broadcastSigs, body.Request.Signature)
			_, _ = w.Write([]byte(f.broadcast))
		case strings.Contains(req.Query, "hasTxHashBeenIndexed("):
			f.indexCalls++
			indexed := f.indexCalls > f.indexedAfter
			if indexed {
				_, _ = w.Write([]byte(`{"data":{"hasTxHashBeenIndexed":{"__typename":"TransactionIndexedResult","indexed":true}}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"hasTxHashBeenIndexed":{"__typename":"TransactionIndexedResult","indexed":false}}}`))
		default:
			t.Errorf("unexpected query %q", req.Query)
		}
	})
	return mux
}

func newSharer(t *testing.T, fake *lensFake, signer *fakeSigner) *social.Sharer {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	cfg.Storage.GatewayURL = "https://gateway.example/ipfs"
	cfg.Social.SiteURL = "https://clipto.io"
	store, err := storage.New(cfg, nil)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	return social.NewSharer(cfg, social.NewClient(cfg, nil), backend.New(cfg), store, signer, nil,
		social.WithPollOptions(poller.Options{Interval: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond, Timeout: 2 * time.Second}))
}

func TestSharePublishesAndWaitsForIndexing(t *testing.T) {
	fake := &lensFake{
		profiles:     `{"data":{"profiles":{"items":[{"id":"0x01","handle":"alice.lens"}]}}}`,
		broadcast:    `{"data":{"broadcast":{"__typename":"RelayerResult","txHash":"0xpost","txId":"1"}}}`,
		indexedAfter: 2,
	}
	signer := &fakeSigner{}
	sharer := newSharer(t, fake, signer)

	result, err := sharer.Share(context.Background(), social.ShareRequest{
		Account:  "0xABCDEF0000000000000000000000000000000001",
		Creator:  "0xcreator",
		TokenURI: "meta-1",
	})
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}
	if result.TxHash != "0xpost" || result.Profile.Handle != "alice.lens" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ContentURI != "https://gateway.example/ipfs/QmPost" || fake.contentURI != result.ContentURI {
		t.Fatalf("content uri mismatch: result=%s lens=%s", result.ContentURI, fake.contentURI)
	}
	if fake.accessToken != "Bearer token-1" {
		t.Fatalf("typed data request not authenticated: %q", fake.accessToken)
	}
	if fake.indexCalls != 3 {
		t.Fatalf("expected 3 index polls, got %d", fake.indexCalls)
	}
	if len(fake.broadcastSigs) != 1 || fake.broadcastSigs[0] != "0xtyped" {
		t.Fatalf("unexpected broadcast signatures %v", fake.broadcastSigs)
	}
	if len(signer.messages) != 1 || signer.messages[0] != "0xabcdef0000000000000000000000000000000001:sign in to lens" {
		t.Fatalf("unexpected personal sign calls %v", signer.messages)
	}
	typed := signer.typedData[0]
	if typed["primaryType"] != "PostWithSig" {
		t.Fatalf("unexpected primary type %v", typed["primaryType"])
	}
	types := typed["types"].(map[string]any)
	if _, ok := types["__typename"]; ok {
		t.Fatal("typename leaked into signed types")
	}
	if _, ok := types["EIP712Domain"]; !ok {
		t.Fatal("missing EIP712Domain type")
	}
	if fake.storedPost["name"] != "Post by @alice.lens" || fake.storedPost["external_url"] != "https://clipto.io/creator/0xcreator" {
		t.Fatalf("unexpected stored post %v", fake.storedPost)
	}
}

func TestShareWithoutProfileIsValidationError(t *testing.T) {
	fake := &lensFake{profiles: `{"data":{"profiles":{"items":[]}}}`}
	sharer := newSharer(t, fake, &fakeSigner{})

	_, err := sharer.Share(context.Background(), social.ShareRequest{Account: "0x1", TokenURI: "meta-1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.UserMessage(err) != social.MsgNoProfile {
		t.Fatalf("unexpected message %q", services.UserMessage(err))
	}
}

func TestShareRelayErrorSurfacesTxMessage(t *testing.T) {
	fake := &lensFake{
		profiles:  `{"data":{"profiles":{"items":[{"id":"0x01","handle":"alice.lens"}]}}}`,
		broadcast: `{"data":{"broadcast":{"__typename":"RelayError","reason":"REJECTED"}}}`,
	}
	sharer := newSharer(t, fake, &fakeSigner{})

	_, err := sharer.Share(context.Background(), social.ShareRequest{Account: "0x1", TokenURI: "meta-1"})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if services.UserMessage(err) != social.MsgTxFailed {
		t.Fatalf("unexpected message %q", services.UserMessage(err))
	}
	if fake.indexCalls != 0 {
		t.Fatalf("indexing polled after failed broadcast")
	}
}

func TestGraphQLErrorsAreUnexpected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad request"}]}`))
	}))
	defer server.Close()
	cfg := testsupport.NewConfig(t)
	cfg.Social.LensAPIURL = server.URL
	client := social.NewClient(cfg, nil)

	_, _, err := client.DefaultProfile(context.Background(), "0x1")
	if !errors.Is(err, services.ErrUnexpected) || !strings.Contains(err.Error(), "bad request") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLensServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	cfg := testsupport.NewConfig(t)
	cfg.Social.LensAPIURL = server.URL
	client := social.NewClient(cfg, nil)

	_, _, err := client.DefaultProfile(context.Background(), "0x1")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
