package delivery

import (
	"context"

	"clipto/internal/backend"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/services"
	"clipto/internal/stage"
	"clipto/internal/workflow"
)

// Indexer reports the delivery transaction to the backend and moves the
// workflow from Indexing to Done.
type Indexer struct {
	base
}

// NewIndexer returns the index stage handler.
func NewIndexer(deps Deps) *Indexer {
	return &Indexer{base: newBase(deps, "indexer")}
}

// Prepare requires the transaction hash recorded while minting.
func (x *Indexer) Prepare(ctx context.Context, item *queue.Item) error {
	if item.TxHash == "" {
		return services.Wrap(services.ErrValidation, "indexing", "prepare", "workflow has no transaction hash", nil)
	}
	return nil
}

// Execute submits the index request. The mint key lets the backend drop a
// repeated submission for the same mint. A request the backend did not index
// keeps the delivery out of done.
func (x *Indexer) Execute(ctx context.Context, item *queue.Item) error {
	result, err := x.deps.Backend.IndexRequest(ctx, backend.IndexRequest{TxHash: item.TxHash, MintKey: item.MintKey})
	if err != nil {
		return err
	}
	facts := workflow.Facts{TxHash: item.TxHash, Indexed: result.Done()}
	if err := x.machine.Check(queue.StatusIndexing, queue.StatusDone, facts); err != nil {
		if result.Reason != "" {
			return services.Wrap(services.ErrValidation, "indexing", "index request", result.Reason, err)
		}
		return err
	}
	x.reporter(item).Done(ctx)
	return nil
}

// Settled announces the delivery once it is stored as done.
func (x *Indexer) Settled(ctx context.Context, item *queue.Item) {
	x.notify(ctx, notifications.EventDelivered, notifications.Payload{
		"id":        item.ID,
		"requestId": item.RequestID,
		"tokenId":   item.NFTTokenID,
	})
}

// HealthCheck reports whether the backend client is wired.
func (x *Indexer) HealthCheck(context.Context) stage.Health {
	if x.deps.Backend == nil {
		return stage.Unhealthy("indexer", "backend client not configured")
	}
	return stage.Healthy("indexer")
}
