package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

// Connector names a wallet connection method.
type Connector string

const (
	ConnectorMetaMask      Connector = "metamask"
	ConnectorWalletConnect Connector = "walletconnect"
)

// ParseConnector validates a connector name.
func ParseConnector(value string) (Connector, error) {
	switch Connector(strings.ToLower(strings.TrimSpace(value))) {
	case ConnectorMetaMask:
		return ConnectorMetaMask, nil
	case ConnectorWalletConnect:
		return ConnectorWalletConnect, nil
	default:
		return "", services.Wrap(services.ErrValidation, "wallet", "connector", fmt.Sprintf("unsupported connector %q", value), nil)
	}
}

var (
	// ErrWrongChain is returned when the wallet is connected to another network.
	ErrWrongChain = fmt.Errorf("%w: wallet is connected to the wrong network", services.ErrProvider)
	// ErrNotConnected is returned when an operation needs a wallet login.
	ErrNotConnected = fmt.Errorf("%w: no wallet connected; run clipto login", services.ErrValidation)
)

// Provider is the wallet-side API needed to log in and sign.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (int64, error)
	PersonalSign(ctx context.Context, account, message string) (string, error)
}

// State is a connected wallet.
type State struct {
	Account     string    `json:"account"`
	Connector   Connector `json:"connector"`
	ChainID     int64     `json:"chain_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Session tracks wallet activation. While an activation runs,
// CurrentlyActivating reports its connector; it is cleared once activation
// ends either way.
type Session struct {
	provider Provider
	chainID  int64
	path     string
	fallback string
	logger   *slog.Logger

	mu         sync.Mutex
	activating Connector
	lastError  string
	state      *State
}

// NewSession builds a session persisted under the state directory of cfg.
func NewSession(cfg *config.Config, provider Provider, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Session{provider: provider, logger: logging.NewComponentLogger(logger, "wallet")}
	if cfg != nil {
		s.chainID = cfg.Chain.ChainID
		s.path = cfg.WalletSessionPath()
		s.fallback = strings.ToLower(strings.TrimSpace(cfg.Wallet.Account))
	}
	return s
}

// CurrentlyActivating returns the connector being activated, or "".
func (s *Session) CurrentlyActivating() Connector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activating
}

// LastError returns the message of the last failed activation.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Activate connects the wallet through connector and persists the session.
// Failures carry a user message from Classify.
func (s *Session) Activate(ctx context.Context, connector Connector) (State, error) {
	s.mu.Lock()
	if s.activating != "" {
		current := s.activating
		s.mu.Unlock()
		err := services.Wrap(services.ErrProvider, "wallet", "activate", "activation already running for "+string(current), nil)
		return State{}, services.WithUserMessage(err, MsgPendingRequest)
	}
	s.activating = connector
	s.lastError = ""
	s.mu.Unlock()

	state, err := s.activate(ctx, connector)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activating = ""
	if err != nil {
		s.lastError = services.UserMessage(err)
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "wallet activation failed", "wallet_activation_failed",
			logging.String("connector", string(connector)),
			logging.String("user_message", s.lastError),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "approve the login in the wallet and retry"),
			logging.String(logging.FieldImpact, "deliveries cannot be signed"),
		)
		return State{}, err
	}
	s.state = &state
	return state, nil
}

func (s *Session) activate(ctx context.Context, connector Connector) (State, error) {
	if s.provider == nil {
		err := services.Wrap(services.ErrProvider, "wallet", "activate", "", ErrNoProvider)
		return State{}, services.WithUserMessage(err, Classify(connector, ErrNoProvider))
	}
	accounts, err := s.provider.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = services.Wrap(services.ErrProvider, "wallet", "activate", "wallet returned no accounts", nil)
	}
	if err != nil {
		wrapped := err
		if !errors.Is(err, services.ErrProvider) {
			wrapped = services.Wrap(services.ErrProvider, "wallet", "activate", "", err)
		}
		return State{}, services.WithUserMessage(wrapped, Classify(connector, err))
	}
	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return State{}, services.WithUserMessage(services.Wrap(services.ErrProvider, "wallet", "chain id", "", err), Classify(connector, err))
	}
	if s.chainID > 0 && chainID != s.chainID {
		err := fmt.Errorf("%w: connected to chain %d, want %d", ErrWrongChain, chainID, s.chainID)
		return State{}, services.WithUserMessage(err, fmt.Sprintf("Please switch your wallet to chain %d", s.chainID))
	}
	state := State{
		Account:     accounts[0],
		Connector:   connector,
		ChainID:     chainID,
		ConnectedAt: time.Now().UTC(),
	}
	if err := s.save(state); err != nil {
		return State{}, err
	}
	s.logger.Info("wallet connected",
		logging.String(logging.FieldEventType, "wallet_connected"),
		logging.String("connector", string(connector)),
		logging.String("account", state.Account),
		logging.Int64("chain_id", chainID),
	)
	return state, nil
}

// Restore loads a persisted session.
func (s *Session) Restore() (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		return *s.state, true, nil
	}
	if s.path == "" {
		return State{}, false, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read wallet session: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("decode wallet session: %w", err)
	}
	if state.Account == "" {
		return State{}, false, nil
	}
	s.state = &state
	return state, true, nil
}

// Account returns the connected account, falling back to the configured one.
func (s *Session) Account() (string, error) {
	state, ok, err := s.Restore()
	if err != nil {
		return "", err
	}
	if ok {
		return state.Account, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", ErrNotConnected
}

// Sign signs message with the session account.
func (s *Session) Sign(ctx context.Context, message string) (account, signature string, err error) {
	account, err = s.Account()
	if err != nil {
		return "", "", err
	}
	if s.provider == nil {
		return "", "", services.Wrap(services.ErrProvider, "wallet", "sign", "", ErrNoProvider)
	}
	signature, err = s.provider.PersonalSign(ctx, account, message)
	if err != nil {
		return "", "", services.WithUserMessage(err, Classify(ConnectorMetaMask, err))
	}
	return account, signature, nil
}

// Deactivate forgets the session.
func (s *Session) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove wallet session: %w", err)
	}
	return nil
}

func (s *Session) save(state State) error {
	if s.path == "" {
		return nil
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet session: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".wallet-session-%d.tmp", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write wallet session temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename wallet session: %w", err)
	}
	return nil
}
