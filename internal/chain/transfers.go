package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Transfer is one ownership change of a token.
type Transfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

// Minted reports whether the transfer created the token.
func (t Transfer) Minted() bool {
	return common.HexToAddress(t.From) == (common.Address{})
}

// TransferHistory lists the Transfer events of tokenID on the token contract,
// oldest first.
func (c *Client) TransferHistory(ctx context.Context, token string, tokenID *big.Int) ([]Transfer, error) {
	const method = "eth_getLogs"
	if err := c.ready(method); err != nil {
		return nil, err
	}
	if !IsAddress(token) {
		return nil, fmt.Errorf("invalid token address %q", token)
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id %v", tokenID)
	}
	event := exchangeABI.Events["Transfer"]
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{common.HexToAddress(token)},
		Topics:    [][]common.Hash{{event.ID}, nil, nil, {common.BigToHash(tokenID)}},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, classify(ctx, method, err)
	}
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	transfers := make([]Transfer, 0, len(logs))
	for _, entry := range logs {
		if len(entry.Topics) != len(indexed)+1 || entry.Topics[0] != event.ID {
			continue
		}
		fields := map[string]any{}
		if err := abi.ParseTopicsIntoMap(fields, indexed, entry.Topics[1:]); err != nil {
			return nil, fmt.Errorf("decode transfer in %s: %w", entry.TxHash.Hex(), err)
		}
		from, _ := fields["from"].(common.Address)
		to, _ := fields["to"].(common.Address)
		transfers = append(transfers, Transfer{
			From:        strings.ToLower(from.Hex()),
			To:          strings.ToLower(to.Hex()),
			TxHash:      entry.TxHash.Hex(),
			BlockNumber: entry.BlockNumber,
		})
	}
	return transfers, nil
}
