package chain_test

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"clipto/internal/chain"
)

func TestSelectorAndTopicVectors(t *testing.T) {
	if got := hex.EncodeToString(chain.Selector("transfer(address,uint256)")); got != "a9059cbb" {
		t.Fatalf("unexpected transfer selector %s", got)
	}
	want := "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	if got := chain.EventTopic("Transfer(address,address,uint256)"); got != want {
		t.Fatalf("unexpected Transfer topic %s", got)
	}
}

func TestEncodeCallWithDynamicString(t *testing.T) {
	data, err := chain.EncodeCall(chain.MethodDeliverRequest, "7", "ab")
	if err != nil {
		t.Fatalf("EncodeCall failed: %v", err)
	}
	if !bytes.Equal(data[:4], chain.Selector("deliverRequest(uint256,string)")) {
		t.Fatalf("unexpected selector %x", data[:4])
	}
	if len(data) != 4+4*32 {
		t.Fatalf("unexpected encoded length %d", len(data))
	}
	words := data[4:]
	if new(big.Int).SetBytes(words[0:32]).Int64() != 7 {
		t.Fatal("first word should hold the request id")
	}
	if new(big.Int).SetBytes(words[32:64]).Int64() != 64 {
		t.Fatal("second word should hold the string offset")
	}
	if new(big.Int).SetBytes(words[64:96]).Int64() != 2 {
		t.Fatal("third word should hold the string length")
	}
	if string(words[96:98]) != "ab" || words[98] != 0 {
		t.Fatal("string payload should be left aligned and zero padded")
	}
}

func TestEncodeCallRejectsBadArguments(t *testing.T) {
	if _, err := chain.EncodeCall(chain.MethodRegisterCreator); err == nil {
		t.Fatal("expected argument count error")
	}
	if _, err := chain.EncodeCall(chain.MethodDeliverRequest, int64(-1), "x"); err == nil {
		t.Fatal("expected negative value error")
	}
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := chain.EncodeCall(chain.MethodDeliverRequest, overflow, "x"); err == nil {
		t.Fatal("expected overflow error")
	}
	if _, err := chain.EncodeCall(chain.MethodDeliverRequest, "seven", "x"); err == nil {
		t.Fatal("expected integer parse error")
	}
	if _, err := chain.EncodeCall(chain.MethodRegisterCreator, 42); err == nil {
		t.Fatal("expected string type error")
	}
	if _, err := chain.EncodeCall("burn", 1); err == nil {
		t.Fatal("expected unknown method error")
	}
}

func TestIsAddress(t *testing.T) {
	cases := map[string]bool{
		"0x00000000000000000000000000000000000000ff": true,
		"0XABCDEF0000000000000000000000000000000001": true,
		"00000000000000000000000000000000000000ff":   false,
		"0x01": false,
		"0xzz000000000000000000000000000000000000ff": false,
	}
	for value, want := range cases {
		if got := chain.IsAddress(value); got != want {
			t.Fatalf("IsAddress(%q) = %v, want %v", value, got, want)
		}
	}
}
