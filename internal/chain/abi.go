package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract methods called by clipto.
const (
	MethodRegisterCreator = "registerCreator"
	MethodDeliverRequest  = "deliverRequest"
)

const exchangeABIJSON = `[
  {"type":"function","name":"registerCreator","stateMutability":"nonpayable",
   "inputs":[{"name":"userName","type":"string"}],"outputs":[]},
  {"type":"function","name":"deliverRequest","stateMutability":"nonpayable",
   "inputs":[{"name":"requestId","type":"uint256"},{"name":"tokenURI","type":"string"}],"outputs":[]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[{"name":"from","type":"address","indexed":true},
             {"name":"to","type":"address","indexed":true},
             {"name":"tokenId","type":"uint256","indexed":true}]}
]`

var exchangeABI = mustParseABI(exchangeABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse exchange abi: %v", err))
	}
	return parsed
}

// Selector returns the 4-byte function selector for a canonical signature such
// as "deliverRequest(uint256,string)".
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// EventTopic returns the topic0 hash of an event signature as 0x-prefixed hex.
func EventTopic(signature string) string {
	return crypto.Keccak256Hash([]byte(signature)).Hex()
}

// EncodeCall ABI-encodes a call to an exchange contract method. uint256
// arguments accept *big.Int, int, int64, uint64 or a decimal string; address
// arguments accept a hex string.
func EncodeCall(method string, args ...any) ([]byte, error) {
	m, ok := exchangeABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown contract method %q", method)
	}
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", m.Sig, len(m.Inputs), len(args))
	}
	values := make([]any, len(args))
	for i, input := range m.Inputs {
		value, err := coerce(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", m.Sig, i, err)
		}
		values[i] = value
	}
	return exchangeABI.Pack(method, values...)
}

func coerce(typ abi.Type, arg any) (any, error) {
	switch typ.T {
	case abi.UintTy:
		value, err := toBigInt(arg)
		if err != nil {
			return nil, err
		}
		if value.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s", value)
		}
		if value.BitLen() > typ.Size {
			return nil, fmt.Errorf("value %s overflows uint%d", value, typ.Size)
		}
		return value, nil
	case abi.AddressTy:
		text, ok := arg.(string)
		if !ok || !IsAddress(text) {
			return nil, fmt.Errorf("invalid address %v", arg)
		}
		return common.HexToAddress(text), nil
	case abi.StringTy:
		text, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", arg)
		}
		return text, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s", typ)
	}
}

func toBigInt(arg any) (*big.Int, error) {
	switch v := arg.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return v, nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case string:
		value, ok := new(big.Int).SetString(strings.TrimSpace(v), 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("want integer, got %T", arg)
	}
}

// IsAddress reports whether value is a 0x-prefixed 20 byte hex address.
func IsAddress(value string) bool {
	value = strings.TrimSpace(value)
	return (strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X")) && common.IsHexAddress(value)
}
