package wallet

import (
	"errors"
	"strings"

	"clipto/internal/chain"
	"clipto/internal/services"
)

// Login error texts shown to the user.
const (
	MsgNoMetaMask         = "No MetaMask detected."
	MsgPendingRequest     = "Check MetaMask for an existing login request"
	MsgLoginClosed        = "The MetaMask login was closed, try connecting again"
	MsgLoginFailed        = "Something went wrong logging in"
	MsgWalletConnectError = "Something went wrong logging in with WalletConnect"
)

// ErrNoProvider reports that no wallet provider answered.
var ErrNoProvider = errors.New("No Ethereum provider was found")

// Classify maps an activation error to the message shown for connector.
func Classify(connector Connector, err error) string {
	if err == nil {
		return ""
	}
	message := providerMessage(err)
	if connector == ConnectorWalletConnect {
		if message == "" {
			return MsgWalletConnectError
		}
		return message
	}
	lower := strings.ToLower(message)
	switch {
	case errors.Is(err, ErrNoProvider), strings.Contains(message, "No Ethereum provider was found"), strings.Contains(message, "NoEthereumProviderError"):
		return MsgNoMetaMask
	case strings.Contains(message, "Already processing eth_requestAccounts"), strings.Contains(message, "Request of type 'wallet_requestPermissions'"):
		return MsgPendingRequest
	case strings.Contains(lower, "user rejected"):
		return MsgLoginClosed
	case message == "":
		return MsgLoginFailed
	default:
		return message
	}
}

// providerMessage returns the provider's own text: the RPC error message when
// there is one, otherwise the innermost cause.
func providerMessage(err error) string {
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return strings.TrimSpace(rpcErr.Message)
	}
	if errors.Is(err, services.ErrTransient) {
		return ErrNoProvider.Error()
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimSpace(err.Error())
}
