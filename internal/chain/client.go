package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

const defaultRPCTimeout = 30 * time.Second

// RPCError is a JSON-RPC error object. Wallet providers report user
// rejections through it (code 4001).
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Transaction is an unsigned transaction handed to the node's wallet.
type Transaction struct {
	From  string
	To    string
	Data  []byte
	Value string
}

// Client is a JSON-RPC client for a wallet-enabled Ethereum node.
type Client struct {
	endpoint   string
	httpClient *http.Client
	rpc        *rpc.Client
	eth        *ethclient.Client
	dialErr    error
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for the wallet RPC endpoint in cfg. An unusable
// endpoint surfaces as a configuration error on the first call.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultRPCTimeout},
		logger:     logging.NewNop(),
	}
	if cfg != nil {
		c.endpoint = strings.TrimSpace(cfg.Wallet.RPCURL)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "chain")
	c.rpc, c.dialErr = rpc.DialOptions(context.Background(), c.endpoint, rpc.WithHTTPClient(c.httpClient))
	if c.dialErr == nil {
		c.eth = ethclient.NewClient(c.rpc)
	}
	return c
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// Call issues one JSON-RPC request and decodes its result into out.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if err := c.ready(method); err != nil {
		return err
	}
	if err := c.rpc.CallContext(ctx, out, method, params...); err != nil {
		return classify(ctx, method, err)
	}
	return nil
}

func (c *Client) ready(method string) error {
	if c.dialErr != nil {
		return services.Wrap(services.ErrConfiguration, "chain", method, "rpc endpoint unusable", c.dialErr)
	}
	return nil
}

// classify maps go-ethereum transport errors onto service error kinds. Node
// and wallet answers keep their code through RPCError.
func classify(ctx context.Context, method string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var callErr rpc.Error
	if errors.As(err, &callErr) {
		providerErr := &RPCError{Code: callErr.ErrorCode(), Message: callErr.Error()}
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			providerErr.Data = dataErr.ErrorData()
		}
		return services.Wrap(services.ErrProvider, "chain", method, "", providerErr)
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
		return services.Wrap(services.ErrUnexpected, "chain", method, fmt.Sprintf("rpc node answered %d", httpErr.StatusCode), err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return services.Wrap(services.ErrUnexpected, "chain", method, "decode result", err)
	}
	return services.Wrap(services.ErrTransient, "chain", method, "rpc node unreachable", err)
}

// ChainID returns the chain id the node is connected to.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	if err := c.ready("eth_chainId"); err != nil {
		return 0, err
	}
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, classify(ctx, "eth_chainId", err)
	}
	return id.Int64(), nil
}

// Accounts lists accounts already authorized by the wallet.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.Call(ctx, "eth_accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return normalizeAccounts(accounts), nil
}

// RequestAccounts asks the wallet to authorize accounts, prompting the user.
func (c *Client) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.Call(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		return nil, err
	}
	return normalizeAccounts(accounts), nil
}

// PersonalSign signs a plain text message with account.
func (c *Client) PersonalSign(ctx context.Context, account, message string) (string, error) {
	var signature string
	params := []any{hexutil.Bytes(message), strings.ToLower(account)}
	if err := c.Call(ctx, "personal_sign", params, &signature); err != nil {
		return "", err
	}
	if strings.TrimSpace(signature) == "" {
		return "", services.Wrap(services.ErrProvider, "chain", "personal_sign", "wallet returned an empty signature", nil)
	}
	return signature, nil
}

// SignTypedData signs EIP-712 typed data with account.
func (c *Client) SignTypedData(ctx context.Context, account string, typedData json.RawMessage) (string, error) {
	var signature string
	params := []any{strings.ToLower(account), string(typedData)}
	if err := c.Call(ctx, "eth_signTypedData_v4", params, &signature); err != nil {
		return "", err
	}
	if strings.TrimSpace(signature) == "" {
		return "", services.Wrap(services.ErrProvider, "chain", "eth_signTypedData_v4", "wallet returned an empty signature", nil)
	}
	return signature, nil
}

// SendTransaction submits tx through the node's wallet and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx Transaction) (string, error) {
	payload := map[string]any{
		"from": strings.ToLower(tx.From),
		"to":   strings.ToLower(tx.To),
		"data": hexutil.Bytes(tx.Data),
	}
	if tx.Value != "" {
		payload["value"] = tx.Value
	}
	var hash string
	if err := c.Call(ctx, "eth_sendTransaction", []any{payload}, &hash); err != nil {
		return "", err
	}
	if strings.TrimSpace(hash) == "" {
		return "", services.Wrap(services.ErrProvider, "chain", "eth_sendTransaction", "wallet returned no transaction hash", nil)
	}
	c.logger.Info("transaction submitted",
		logging.String(logging.FieldEventType, "tx_submitted"),
		logging.String(logging.FieldJobID, hash),
		logging.String("to", strings.ToLower(tx.To)),
	)
	return hash, nil
}

// Transact encodes a call to an exchange contract method and submits it from
// account to contract.
func (c *Client) Transact(ctx context.Context, account, contract, method string, args ...any) (string, error) {
	data, err := EncodeCall(method, args...)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "chain", method, "encode call", err)
	}
	return c.SendTransaction(ctx, Transaction{From: account, To: contract, Data: data})
}

func normalizeAccounts(accounts []string) []string {
	out := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if account = strings.ToLower(strings.TrimSpace(account)); account != "" {
			out = append(out, account)
		}
	}
	return out
}
