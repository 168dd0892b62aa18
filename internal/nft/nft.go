// Package nft resolves the NFT minted for a delivery: the token contract and
// id, its metadata document and its ownership history on chain.
package nft

import (
	"context"
	"log/slog"
	"math/big"
	"strings"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/logging"
	"clipto/internal/metadata"
	"clipto/internal/services"
)

// Requests looks up booking requests and their metadata documents.
type Requests interface {
	Request(ctx context.Context, id, creator, version string) (backend.Request, error)
	Metadata(ctx context.Context, uri string) ([]byte, error)
}

// History lists the transfers of a token.
type History interface {
	TransferHistory(ctx context.Context, token string, tokenID *big.Int) ([]chain.Transfer, error)
}

// Target names the delivery whose NFT is resolved. TokenID and TokenURI are
// what the local workflow recorded and win over the backend's copy.
type Target struct {
	RequestID string
	Creator   string
	Version   string
	TokenID   string
	TokenURI  string
}

// Details describes a minted NFT. Metadata and history are best effort; their
// failures are reported next to the details instead of failing the lookup.
type Details struct {
	TokenAddress  string           `json:"token_address"`
	TokenID       string           `json:"token_id"`
	TokenURI      string           `json:"token_uri"`
	MetadataID    string           `json:"metadata_id,omitempty"`
	Metadata      *metadata.NFT    `json:"metadata,omitempty"`
	MetadataError string           `json:"metadata_error,omitempty"`
	Owner         string           `json:"owner,omitempty"`
	History       []chain.Transfer `json:"history"`
	HistoryError  string           `json:"history_error,omitempty"`
}

// Lookup resolves NFT details from the backend and the chain.
type Lookup struct {
	requests Requests
	history  History
	logger   *slog.Logger
}

// NewLookup wires a lookup. A nil logger discards output.
func NewLookup(requests Requests, history History, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Lookup{requests: requests, history: history, logger: logging.NewComponentLogger(logger, "nft")}
}

// Fetch resolves the NFT of target. The token contract comes from the
// creator's collection, falling back to the address stored on the request
// for deliveries minted before collections existed.
func (l *Lookup) Fetch(ctx context.Context, target Target) (Details, error) {
	req, err := l.requests.Request(ctx, target.RequestID, target.Creator, target.Version)
	if err != nil {
		return Details{}, err
	}
	details := Details{
		TokenAddress: firstNonEmpty(req.Creator.NFTTokenAddress, req.NFTTokenAddress),
		TokenID:      firstNonEmpty(target.TokenID, req.NFTTokenID),
		TokenURI:     firstNonEmpty(target.TokenURI, req.NFTTokenURI),
		History:      []chain.Transfer{},
	}
	if details.TokenID == "" || details.TokenAddress == "" {
		return Details{}, services.Wrap(services.ErrNotFound, "nft", "lookup", "request "+target.RequestID+" has no minted NFT", nil)
	}
	tokenID, ok := new(big.Int).SetString(details.TokenID, 10)
	if !ok {
		return Details{}, services.Wrap(services.ErrUnexpected, "nft", "lookup", "invalid token id "+details.TokenID, nil)
	}
	if details.TokenURI != "" {
		details.TokenURI = metadata.TokenURI(details.TokenURI)
		details.MetadataID = strings.TrimPrefix(details.TokenURI, metadata.ArweaveBase)
		l.loadMetadata(ctx, &details)
	}

	transfers, err := l.history.TransferHistory(ctx, details.TokenAddress, tokenID)
	if err != nil {
		l.logger.Debug("transfer history unavailable", logging.Error(err))
		details.HistoryError = err.Error()
		return details, nil
	}
	details.History = transfers
	if n := len(transfers); n > 0 {
		details.Owner = transfers[n-1].To
	}
	return details, nil
}

func (l *Lookup) loadMetadata(ctx context.Context, details *Details) {
	raw, err := l.requests.Metadata(ctx, details.MetadataID)
	if err == nil {
		var doc metadata.NFT
		if doc, err = metadata.ParseNFT(raw); err == nil {
			details.Metadata = &doc
			return
		}
	}
	l.logger.Debug("nft metadata unavailable", logging.Error(err))
	details.MetadataError = err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
