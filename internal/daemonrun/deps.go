package daemonrun

import (
	"log/slog"

	"clipto/internal/backend"
	"clipto/internal/chain"
	"clipto/internal/config"
	"clipto/internal/delivery"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/upload"
	"clipto/internal/wallet"
)

// BuildDeps wires the production collaborators the delivery stages use. The
// wallet session signs through the same RPC client the minter polls.
func BuildDeps(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) delivery.Deps {
	rpc := chain.New(cfg, chain.WithLogger(logger))
	return delivery.Deps{
		Config:   cfg,
		Store:    store,
		Backend:  backend.New(cfg, backend.WithLogger(logger)),
		Uploader: upload.New(cfg, upload.WithLogger(logger)),
		Chain:    rpc,
		Signer:   wallet.NewSession(cfg, rpc, logger),
		Notifier: notifier,
		Logger:   logger,
	}
}
