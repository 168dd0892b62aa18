package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"clipto/internal/poller"
	"clipto/internal/queue"
)

// Receipt is a mined transaction receipt.
type Receipt struct {
	*types.Receipt
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Receipt != nil && r.Status == types.ReceiptStatusSuccessful
}

// FindEvent returns the first log emitted by contract whose topic0 matches the
// event signature. An empty contract matches any emitter.
func (r *Receipt) FindEvent(contract, signature string) (*types.Log, bool) {
	if r == nil || r.Receipt == nil {
		return nil, false
	}
	topic := common.HexToHash(EventTopic(signature))
	for _, entry := range r.Logs {
		if entry == nil || len(entry.Topics) == 0 || entry.Topics[0] != topic {
			continue
		}
		if contract != "" && !strings.EqualFold(entry.Address.Hex(), contract) {
			continue
		}
		return entry, true
	}
	return nil, false
}

// LastValue returns the final non-indexed word of entry, falling back to the
// last indexed topic when the event carries no data.
func LastValue(entry *types.Log) (*big.Int, error) {
	if entry == nil {
		return nil, fmt.Errorf("no event")
	}
	if len(entry.Data)%common.HashLength != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of %d", len(entry.Data), common.HashLength)
	}
	if len(entry.Data) > 0 {
		return new(big.Int).SetBytes(entry.Data[len(entry.Data)-common.HashLength:]), nil
	}
	if len(entry.Topics) > 1 {
		return entry.Topics[len(entry.Topics)-1].Big(), nil
	}
	return nil, fmt.Errorf("event carries no values")
}

// TransactionReceipt returns the receipt for hash, or nil while it is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt *types.Receipt
	if err := c.Call(ctx, "eth_getTransactionReceipt", []any{hash}, &receipt); err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}
	return &Receipt{Receipt: receipt}, nil
}

// ReceiptTracker returns a poller that waits for hash to be mined. A reverted
// transaction is a failed job.
func (c *Client) ReceiptTracker(hash string, opts poller.Options) *poller.Tracker[*Receipt] {
	query := func(ctx context.Context) (poller.Observation[*Receipt], error) {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err != nil {
			return poller.Observation[*Receipt]{}, err
		}
		switch {
		case receipt == nil:
			return poller.Observation[*Receipt]{Status: queue.JobPending}, nil
		case receipt.Succeeded():
			return poller.Observation[*Receipt]{Status: queue.JobSucceeded, Value: receipt}, nil
		default:
			return poller.Observation[*Receipt]{Status: queue.JobFailed, Value: receipt, Detail: "transaction reverted"}, nil
		}
	}
	return poller.New(query, opts)
}

// WaitForReceipt blocks until hash is mined or opts bound the wait.
func (c *Client) WaitForReceipt(ctx context.Context, hash string, opts poller.Options) (*Receipt, error) {
	obs, err := c.ReceiptTracker(hash, opts).Run(ctx)
	return obs.Value, err
}
