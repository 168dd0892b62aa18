package wallet_test

import (
	"context"
	"errors"
	"testing"

	"clipto/internal/chain"
	"clipto/internal/services"
	"clipto/internal/testsupport"
	"clipto/internal/wallet"
)

type fakeProvider struct {
	accounts   []string
	accountErr error
	chainID    int64
	onRequest  func()
	signedWith string
}

func (p *fakeProvider) RequestAccounts(context.Context) ([]string, error) {
	if p.onRequest != nil {
		p.onRequest()
	}
	return p.accounts, p.accountErr
}

func (p *fakeProvider) ChainID(context.Context) (int64, error) { return p.chainID, nil }

func (p *fakeProvider) PersonalSign(_ context.Context, account, message string) (string, error) {
	p.signedWith = account
	return "0xsig:" + message, nil
}

func TestActivateRejectedResetsActivating(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var session *wallet.Session
	var during wallet.Connector
	provider := &fakeProvider{
		accountErr: &chain.RPCError{Code: 4001, Message: "MetaMask Tx Signature: User rejected the request."},
	}
	provider.onRequest = func() { during = session.CurrentlyActivating() }
	session = wallet.NewSession(cfg, provider, nil)

	_, err := session.Activate(context.Background(), wallet.ConnectorMetaMask)
	if err == nil {
		t.Fatal("expected activation error")
	}
	if during != wallet.ConnectorMetaMask {
		t.Fatalf("expected metamask while activating, got %q", during)
	}
	if got := services.UserMessage(err); got != wallet.MsgLoginClosed {
		t.Fatalf("unexpected user message %q", got)
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider kind, got %v", err)
	}
	if session.CurrentlyActivating() != "" {
		t.Fatalf("expected activation reset, got %q", session.CurrentlyActivating())
	}
	if session.LastError() != wallet.MsgLoginClosed {
		t.Fatalf("unexpected last error %q", session.LastError())
	}
}

func TestActivatePersistsSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	provider := &fakeProvider{accounts: []string{"0xaaaa000000000000000000000000000000000001"}, chainID: cfg.Chain.ChainID}
	session := wallet.NewSession(cfg, provider, nil)

	state, err := session.Activate(context.Background(), wallet.ConnectorWalletConnect)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if session.CurrentlyActivating() != "" {
		t.Fatal("expected activation reset after success")
	}

	reloaded := wallet.NewSession(cfg, provider, nil)
	restored, ok, err := reloaded.Restore()
	if err != nil || !ok {
		t.Fatalf("Restore failed: ok=%v err=%v", ok, err)
	}
	if restored.Account != state.Account || restored.Connector != wallet.ConnectorWalletConnect {
		t.Fatalf("unexpected restored state %+v", restored)
	}

	account, sig, err := reloaded.Sign(context.Background(), "I am uploading a video to complete the Order")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if account != state.Account || provider.signedWith != state.Account || sig == "" {
		t.Fatalf("unexpected signing result %s %s", account, sig)
	}

	if err := reloaded.Deactivate(); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if _, ok, _ := wallet.NewSession(cfg, provider, nil).Restore(); ok {
		t.Fatal("expected no session after deactivate")
	}
}

func TestActivateWrongChain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	provider := &fakeProvider{accounts: []string{"0xaaaa000000000000000000000000000000000001"}, chainID: 1}
	session := wallet.NewSession(cfg, provider, nil)

	_, err := session.Activate(context.Background(), wallet.ConnectorMetaMask)
	if !errors.Is(err, wallet.ErrWrongChain) {
		t.Fatalf("expected ErrWrongChain, got %v", err)
	}
	if _, ok, _ := session.Restore(); ok {
		t.Fatal("wrong chain must not persist a session")
	}
}

func TestAccountFallsBackToConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session := wallet.NewSession(cfg, &fakeProvider{}, nil)
	account, err := session.Account()
	if err != nil || account != cfg.Wallet.Account {
		t.Fatalf("unexpected fallback account %q %v", account, err)
	}

	cfg.Wallet.Account = ""
	if _, err := wallet.NewSession(cfg, nil, nil).Account(); !errors.Is(err, wallet.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		connector wallet.Connector
		err       error
		want      string
	}{
		{"no provider", wallet.ConnectorMetaMask, errors.New("No Ethereum provider was found on window.ethereum"), wallet.MsgNoMetaMask},
		{"unreachable node", wallet.ConnectorMetaMask, services.Wrap(services.ErrTransient, "chain", "eth_requestAccounts", "", errors.New("dial tcp")), wallet.MsgNoMetaMask},
		{"pending accounts", wallet.ConnectorMetaMask, &chain.RPCError{Message: "Already processing eth_requestAccounts. Please wait."}, wallet.MsgPendingRequest},
		{"pending permissions", wallet.ConnectorMetaMask, &chain.RPCError{Message: "Request of type 'wallet_requestPermissions' already pending"}, wallet.MsgPendingRequest},
		{"rejected", wallet.ConnectorMetaMask, &chain.RPCError{Code: 4001, Message: "The user rejected the request."}, wallet.MsgLoginClosed},
		{"other", wallet.ConnectorMetaMask, errors.New("boom"), "boom"},
		{"empty", wallet.ConnectorMetaMask, errors.New(" "), wallet.MsgLoginFailed},
		{"walletconnect", wallet.ConnectorWalletConnect, errors.New("bridge offline"), "bridge offline"},
		{"walletconnect empty", wallet.ConnectorWalletConnect, errors.New(""), wallet.MsgWalletConnectError},
	}
	for _, tc := range cases {
		if got := wallet.Classify(tc.connector, tc.err); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseConnector(t *testing.T) {
	if c, err := wallet.ParseConnector(" MetaMask "); err != nil || c != wallet.ConnectorMetaMask {
		t.Fatalf("unexpected parse %q %v", c, err)
	}
	if _, err := wallet.ParseConnector("ledger"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
