package profile_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/poller"
	"clipto/internal/profile"
	"clipto/internal/services"
	"clipto/internal/testsupport"
)

const creator = "0x00000000000000000000000000000000000000c1"

func validForm() profile.Form {
	return profile.Form{
		Address:        creator,
		UserName:       "alice",
		Bio:            "I make videos",
		ProfilePicture: "https://img.example/alice.png",
		DeliveryTime:   "3",
		Price:          "0.05",
		TweetURL:       "https://twitter.com/alice/status/1",
		Demos:          [3]string{"https://youtu.be/1", "", ""},
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*profile.Form)
		creating bool
		field    string
		want     string
	}{
		{"bio", func(f *profile.Form) { f.Bio = "" }, true, "bio", "Please enter a bio."},
		{"username", func(f *profile.Form) { f.UserName = "" }, true, "userName", "Username cannot be empty."},
		{"picture empty", func(f *profile.Form) { f.ProfilePicture = "" }, true, "profilePicture", "Profile picture can not be empty."},
		{"picture url", func(f *profile.Form) { f.ProfilePicture = "alice.png" }, true, "profilePicture", "Profile picture must be an url."},
		{"delivery nan", func(f *profile.Form) { f.DeliveryTime = "soon" }, true, "deliveryTime", "Delivery time is not a number."},
		{"delivery decimal", func(f *profile.Form) { f.DeliveryTime = "2.5" }, true, "deliveryTime", "Delivery time cannot be a decimal or have leading zeros."},
		{"delivery leading zero", func(f *profile.Form) { f.DeliveryTime = "03" }, true, "deliveryTime", "Delivery time cannot be a decimal or have leading zeros."},
		{"delivery zero", func(f *profile.Form) { f.DeliveryTime = "0" }, true, "deliveryTime", "Delivery time must be greater than 0 days."},
		{"demo", func(f *profile.Form) { f.Demos[2] = "not a link" }, true, "demo3", "This link is invalid."},
		{"price nan", func(f *profile.Form) { f.Price = "free" }, true, "price", "Price is not a number."},
		{"price zero", func(f *profile.Form) { f.Price = "0" }, true, "price", "Price must be greater than 0."},
		{"tweet empty", func(f *profile.Form) { f.TweetURL = "" }, true, "tweetUrl", "Tweet url can not be empty."},
		{"tweet url", func(f *profile.Form) { f.TweetURL = "tweet" }, true, "tweetUrl", "Tweet url must be an url."},
		{"address", func(f *profile.Form) { f.Address = "0x123" }, false, "address", "Please enter a valid address."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)
			err := profile.Validate(form, tt.creating)
			var fields services.FieldErrors
			if !errors.As(err, &fields) {
				t.Fatalf("expected field errors, got %v", err)
			}
			if fields[tt.field] != tt.want {
				t.Fatalf("field %s = %q, want %q (all: %v)", tt.field, fields[tt.field], tt.want, fields)
			}
			if services.UserMessage(err) != profile.MsgFixErrors {
				t.Fatalf("unexpected toast %q", services.UserMessage(err))
			}
		})
	}
}

func TestValidateSkipsTweetOnUpdate(t *testing.T) {
	form := validForm()
	form.TweetURL = ""
	if err := profile.Validate(form, false); err != nil {
		t.Fatalf("update should not require a tweet url: %v", err)
	}
	if err := profile.Validate(form, true); err == nil {
		t.Fatal("create should require a tweet url")
	}
}

type fakeSigner struct {
	account  string
	messages []string
}

func (f *fakeSigner) Sign(_ context.Context, message string) (string, string, error) {
	f.messages = append(f.messages, message)
	return f.account, "0xsig", nil
}

type fakeTransactor struct {
	calls   []string
	args    []any
	waitErr error
}

func (f *fakeTransactor) Transact(_ context.Context, account, contract, method string, args ...any) (string, error) {
	f.calls = append(f.calls, account+"|"+contract+"|"+method)
	f.args = args
	return "0xregister", nil
}

func (f *fakeTransactor) WaitForReceipt(context.Context, string, poller.Options) (*chain.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &chain.Receipt{Receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}}, nil
}

type userServer struct {
	method string
	path   string
	body   map[string]any
}

func newUserServer(t *testing.T, rec *userServer) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method, rec.path = r.Method, r.URL.Path
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&rec.body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCreateRegistersThenPostsSignedProfile(t *testing.T) {
	rec := &userServer{}
	server := newUserServer(t, rec)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	tx := &fakeTransactor{}
	signer := &fakeSigner{account: creator}
	svc := profile.NewService(cfg, backend.New(cfg), tx, signer, nil)

	user, err := svc.Create(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(tx.calls) != 1 || tx.calls[0] != creator+"|"+cfg.Chain.ContractV1+"|"+chain.MethodRegisterCreator || tx.args[0] != "alice" {
		t.Fatalf("unexpected transactions %v %v", tx.calls, tx.args)
	}
	if len(signer.messages) != 1 || signer.messages[0] != profile.OnboardMessage {
		t.Fatalf("unexpected signed messages %v", signer.messages)
	}
	if rec.method != http.MethodPost || rec.path != "/user/create" {
		t.Fatalf("unexpected request %s %s", rec.method, rec.path)
	}
	if rec.body["message"] != profile.OnboardMessage || rec.body["signed"] != "0xsig" || rec.body["deliveryTime"] != float64(3) {
		t.Fatalf("unexpected body %v", rec.body)
	}
	if demos, _ := rec.body["demos"].([]any); len(demos) != 1 {
		t.Fatalf("empty demos should be dropped: %v", rec.body["demos"])
	}
	if user.Price != 0.05 {
		t.Fatalf("unexpected price %v", user.Price)
	}
}

func TestCreateStopsWhenRegistrationFails(t *testing.T) {
	rec := &userServer{}
	server := newUserServer(t, rec)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	tx := &fakeTransactor{waitErr: poller.ErrJobFailed}
	signer := &fakeSigner{account: creator}
	svc := profile.NewService(cfg, backend.New(cfg), tx, signer, nil)

	if _, err := svc.Create(context.Background(), validForm()); !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(signer.messages) != 0 || rec.method != "" {
		t.Fatalf("profile written after failed registration: %v %s", signer.messages, rec.method)
	}
}

func TestUpdateSignsAndPuts(t *testing.T) {
	rec := &userServer{}
	server := newUserServer(t, rec)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	tx := &fakeTransactor{}
	signer := &fakeSigner{account: creator}
	svc := profile.NewService(cfg, backend.New(cfg), tx, signer, nil)

	form := validForm()
	form.TweetURL = ""
	if _, err := svc.Update(context.Background(), form); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(tx.calls) != 0 {
		t.Fatalf("update must not transact: %v", tx.calls)
	}
	if rec.method != http.MethodPut || rec.path != "/user/"+creator || rec.body["message"] != profile.UpdateMessage {
		t.Fatalf("unexpected request %s %s %v", rec.method, rec.path, rec.body)
	}
}

func TestUpdateRejectsMismatchedAccount(t *testing.T) {
	rec := &userServer{}
	server := newUserServer(t, rec)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	svc := profile.NewService(cfg, backend.New(cfg), &fakeTransactor{}, &fakeSigner{account: "0x00000000000000000000000000000000000000c2"}, nil)

	if _, err := svc.Update(context.Background(), validForm()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rec.method != "" {
		t.Fatalf("request sent for mismatched account")
	}
}

func TestLookupMissingProfile(t *testing.T) {
	rec := &userServer{}
	server := newUserServer(t, rec)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	svc := profile.NewService(cfg, backend.New(cfg), &fakeTransactor{}, &fakeSigner{}, nil)

	_, found, err := svc.Lookup(context.Background(), creator)
	if err != nil || found {
		t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
	}
	if rec.path != "/user/"+creator {
		t.Fatalf("unexpected lookup path %s", rec.path)
	}
}

func TestFormFromUserRoundTripsValidation(t *testing.T) {
	form := profile.FormFromUser(backend.User{
		Address: creator, UserName: "alice", Bio: "bio", ProfilePicture: "https://img/p.png",
		DeliveryTime: 4, Price: 1.5, Demos: []string{"https://a", "https://b"},
	})
	if form.DeliveryTime != "4" || form.Price != "1.5" || form.Demos[1] != "https://b" {
		t.Fatalf("unexpected form %+v", form)
	}
	if err := profile.Validate(form, false); err != nil {
		t.Fatalf("stored profile should validate: %v", err)
	}
}
