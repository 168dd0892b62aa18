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

// fail parks item in failed, remembering the stage status it failed from so
// a retry resumes there, then returns stageErr. Nothing done remotely is
// undone.
func (m *Manager) fail(ctx context.Context, stageName string, item *queue.Item, stageErr error) error {
	logger := logging.NewComponentLogger(m.stageLogger(ctx, m.logger, item), "workflow-manager")

	kind := services.Kind(stageErr)
	message := services.UserMessage(stageErr)
	item.SetFailed(kind, message)

	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.String("failed_status", string(item.FailedStatus)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, failureHint(kind)),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, stage failure not persisted")
		} else {
			logger.Error("could not persist stage failure", logging.Error(err))
		}
	}

	m.recordError(stageErr)
	m.remember(item)
	where := fmt.Sprintf("delivery #%d", item.ID)
	if stageName != "" {
		where = fmt.Sprintf("%s (%s)", stageName, where)
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"id":      item.ID,
		"status":  string(item.Status),
		"error":   stageErr,
		"message": item.ErrorMessage,
		"context": where,
	})
	m.queueSettled(ctx)
	return stageErr
}

// failureHint tells the operator what usually resolves a failure of kind.
func failureHint(kind string) string {
	switch kind {
	case "validation":
		return "fix the delivery details, then retry"
	case "provider":
		return "the remote service refused the operation; check its status before retrying"
	case "receipt_event_missing":
		return "inspect the transaction on chain before retrying; a retry sends a new transaction"
	case "timeout", "transient":
		return "check network connectivity, then retry"
	case "configuration":
		return "fix the configuration and restart the daemon"
	default:
		return "check the daemon log for details"
	}
}
