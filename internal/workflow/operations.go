package workflow

import (
	"context"
	"errors"
	"fmt"

	"clipto/internal/logging"
	"clipto/internal/notifications"
	"clipto/internal/queue"
	"clipto/internal/services"
)

// MintState reports whether the creator may confirm the mint of a workflow.
type MintState struct {
	Item    *queue.Item
	Enabled bool
}

// MintState loads a workflow and evaluates the mint guard for it.
func (m *Manager) MintState(ctx context.Context, id int64) (MintState, error) {
	item, err := m.load(ctx, id)
	if err != nil {
		return MintState{}, err
	}
	jobs, err := m.store.JobsForWorkflow(ctx, id)
	if err != nil {
		return MintState{}, fmt.Errorf("load jobs: %w", err)
	}
	return MintState{Item: item, Enabled: m.machine.MintEnabled(item.Status, FactsFor(item, jobs))}, nil
}

// RequestMint records the creator's confirmation to mint. It succeeds at most
// once per workflow; later calls fail with a validation error wrapping
// queue.ErrMintUnavailable. The returned key deduplicates the mint downstream.
func (m *Manager) RequestMint(ctx context.Context, id int64) (string, error) {
	key, err := m.store.RequestMint(ctx, id)
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return "", services.Wrap(services.ErrNotFound, "mint", "request", fmt.Sprintf("delivery %d not found", id), err)
	case queue.IsMintUnavailable(err):
		return "", services.WithUserMessage(
			services.Wrap(services.ErrValidation, "mint", "request", "mint is not enabled", err),
			"Minting is not available for this delivery.")
	case err != nil:
		return "", services.Wrap(services.ErrUnexpected, "mint", "request", "could not record mint request", err)
	}
	m.logger.Info("mint requested",
		logging.Int64(logging.FieldItemID, id),
		logging.String("mint_key", key),
		logging.String(logging.FieldEventType, "mint_requested"),
	)
	return key, nil
}

// Retry moves a failed workflow back to the start of the stage it failed in.
// Nothing that already succeeded remotely is undone.
func (m *Manager) Retry(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := m.store.RetryFailed(ctx, id)
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return nil, services.Wrap(services.ErrNotFound, "retry", "load", fmt.Sprintf("delivery %d not found", id), err)
	case err != nil:
		return nil, services.Wrap(services.ErrValidation, "retry", "reset", "workflow cannot be retried", err)
	}
	m.logger.Info("workflow retry requested",
		logging.Int64(logging.FieldItemID, id),
		logging.String("status", string(item.Status)),
		logging.String(logging.FieldEventType, "workflow_retry"),
	)
	m.publish(ctx, notifications.EventProgress, notifications.Payload{
		"id":      item.ID,
		"status":  string(item.Status),
		"message": item.ProgressStage,
	})
	return item, nil
}

// Remove deletes a workflow that is not being processed.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	item, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if item.IsProcessing() {
		return services.Wrap(services.ErrValidation, "remove", "check", fmt.Sprintf("delivery %d is %s", id, item.Status), nil)
	}
	if _, err := m.store.Remove(ctx, id); err != nil {
		return services.Wrap(services.ErrUnexpected, "remove", "delete", "could not remove delivery", err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrUnexpected, "workflow", "load", "could not load delivery", err)
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "load", fmt.Sprintf("delivery %d not found", id), nil)
	}
	return item, nil
}

// Submit validates form and queues a new delivery in form_entry.
func (m *Manager) Submit(ctx context.Context, form Form) (*queue.Item, error) {
	item, err := NewSubmitter(m.store).Submit(ctx, form)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, notifications.EventProgress, notifications.Payload{
		"id":      item.ID,
		"status":  string(item.Status),
		"message": "Delivery queued",
	})
	return item, nil
}

// RecordShare stores the Lens post transaction of a delivered workflow.
func (m *Manager) RecordShare(ctx context.Context, id int64, txHash, handle string) (*queue.Item, error) {
	item, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != queue.StatusDone {
		return nil, services.Wrap(services.ErrValidation, "share", "record", fmt.Sprintf("delivery %d is %s", id, item.Status), nil)
	}
	item.ShareTxHash = txHash
	if err := m.store.Update(ctx, item); err != nil {
		return nil, services.Wrap(services.ErrUnexpected, "share", "record", "could not store share transaction", err)
	}
	m.publish(ctx, notifications.EventShared, notifications.Payload{
		"id":      item.ID,
		"status":  string(item.Status),
		"handle":  handle,
		"message": "Shared to Lens",
	})
	return item, nil
}
