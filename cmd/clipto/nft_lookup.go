package main

import (
	"context"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/ipc"
	"clipto/internal/nft"
	"clipto/internal/queue"
)

// deliveryReport is what deliver show prints: the delivery plus its minted
// NFT when one exists.
type deliveryReport struct {
	*ipc.Delivery
	NFT      *nft.Details `json:"nft,omitempty"`
	NFTError string       `json:"nft_error,omitempty"`
}

func minted(d *ipc.Delivery) bool {
	return d.NFTTokenID != "" || d.Status == string(queue.StatusDone)
}

// lookupNFT resolves the NFT of d from the backend and the chain. A failed
// lookup is reported next to the delivery rather than failing the command.
func (c *commandContext) lookupNFT(ctx context.Context, d *ipc.Delivery) (*nft.Details, string) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err.Error()
	}
	logger := c.localLogger()
	rpc := chain.New(cfg, chain.WithLogger(logger))
	defer rpc.Close()
	lookup := nft.NewLookup(backend.New(cfg, backend.WithLogger(logger)), rpc, logger)
	details, err := lookup.Fetch(ctx, nft.Target{
		RequestID: d.RequestID,
		Creator:   d.Creator,
		Version:   d.Version,
		TokenID:   d.NFTTokenID,
		TokenURI:  d.TokenURI,
	})
	if err != nil {
		return nil, localError(err).Error()
	}
	return &details, ""
}
