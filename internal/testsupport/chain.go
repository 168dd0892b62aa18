package testsupport

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Word encodes v as one 32-byte ABI word.
func Word(v int64) []byte {
	return common.BigToHash(big.NewInt(v)).Bytes()
}

// EventLog builds a log emitted by contract with the given topics and data
// words.
func EventLog(contract string, topics []string, words ...int64) *types.Log {
	entry := &types.Log{Address: common.HexToAddress(contract), Topics: []common.Hash{}, Data: []byte{}}
	for _, topic := range topics {
		entry.Topics = append(entry.Topics, common.HexToHash(topic))
	}
	for _, w := range words {
		entry.Data = append(entry.Data, Word(w)...)
	}
	return entry
}

// ReceiptJSON renders a mined receipt the way a node returns it from
// eth_getTransactionReceipt.
func ReceiptJSON(t testing.TB, status uint64, logs ...*types.Log) json.RawMessage {
	t.Helper()
	receipt := &types.Receipt{
		Status:            status,
		TxHash:            common.HexToHash("0x01"),
		BlockHash:         common.HexToHash("0x02"),
		BlockNumber:       big.NewInt(16),
		GasUsed:           21000,
		CumulativeGasUsed: 21000,
		Logs:              []*types.Log{},
	}
	for _, entry := range logs {
		entry.TxHash = receipt.TxHash
		entry.BlockHash = receipt.BlockHash
		entry.BlockNumber = receipt.BlockNumber.Uint64()
		receipt.Logs = append(receipt.Logs, entry)
	}
	raw, err := json.Marshal(receipt)
	if err != nil {
		t.Fatalf("encode receipt: %v", err)
	}
	return raw
}

// TransferLogsJSON renders eth_getLogs results for ERC-721 Transfer events of
// tokenID. Each hop is a from/to address pair.
func TransferLogsJSON(t testing.TB, token string, tokenID int64, hops ...[2]string) json.RawMessage {
	t.Helper()
	topic := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	logs := make([]*types.Log, 0, len(hops))
	for i, hop := range hops {
		logs = append(logs, &types.Log{
			Address: common.HexToAddress(token),
			Topics: []common.Hash{
				topic,
				common.BytesToHash(common.HexToAddress(hop[0]).Bytes()),
				common.BytesToHash(common.HexToAddress(hop[1]).Bytes()),
				common.BigToHash(big.NewInt(tokenID)),
			},
			Data:        []byte{},
			BlockNumber: uint64(100 + i),
			TxHash:      common.BigToHash(big.NewInt(int64(1000 + i))),
		})
	}
	raw, err := json.Marshal(logs)
	if err != nil {
		t.Fatalf("encode logs: %v", err)
	}
	return raw
}
