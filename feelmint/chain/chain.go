// Package chain is the on-chain collaborator of the claim and purchase flows.
// The service layer only sees the Backend interface; addresses cross it as
// 0x-prefixed hex strings and amounts as token base units.
package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// MintVoucher is the server-signed tuple the reward contract's signature-gated
// mint accepts. Tasks stays opaque to the client; the contract checks it
// against the signature.
type MintVoucher struct {
	Recipient string
	UUID      string
	Nonce     uint64
	Timestamp int64
	Amount    *big.Int
	Tasks     []byte
	Signature []byte
}

type Backend interface {
	// ChainID identifies the network every transaction targets.
	ChainID() uint64

	// Address returns the wallet address transactions are sent from.
	Address() string

	// MintWithVoucher relays a voucher to the reward contract's mint and
	// waits for it to be mined. Returns the transaction hash.
	MintWithVoucher(ctx context.Context, v MintVoucher) (string, error)

	// StableAllowance reads the stablecoin allowance granted to spender.
	StableAllowance(ctx context.Context, spender string) (*big.Int, error)

	// ApproveStable grants the spender a stablecoin allowance and waits for
	// the approval to be mined. The dependent purchase must not be sent
	// before this returns.
	ApproveStable(ctx context.Context, spender string, amount *big.Int) (string, error)

	// PurchaseTier calls the subscription contract for the given tier index.
	PurchaseTier(ctx context.Context, tier uint8) (string, error)

	// StableBalance reads the wallet's stablecoin balance.
	StableBalance(ctx context.Context) (*big.Int, error)
}

// UUIDToBytes32 packs a canonical uuid string into the bytes32 the mint
// function expects: the 16 raw bytes left-aligned, zero padded.
func UUIDToBytes32(uuid string) ([32]byte, error) {
	var out [32]byte
	cleaned := strings.ReplaceAll(uuid, "-", "")
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return out, fmt.Errorf("chain: bad uuid %q: %w", uuid, err)
	}
	if len(raw) != 16 {
		return out, fmt.Errorf("chain: bad uuid %q: want 16 bytes, got %d", uuid, len(raw))
	}
	copy(out[:16], raw)
	return out, nil
}

// TokenUnits converts a display amount into base units for the given decimals.
func TokenUnits(amount float64, decimals int) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), pow10(decimals))
	units, _ := scaled.Int(nil)
	return units
}

// DecodeSignature accepts the server's hex-encoded voucher signature, with or
// without the 0x prefix.
func DecodeSignature(sig string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: bad signature: %w", err)
	}
	return raw, nil
}

func pow10(n int) *big.Float {
	out := big.NewFloat(1)
	ten := big.NewFloat(10)
	for i := 0; i < n; i++ {
		out.Mul(out, ten)
	}
	return out
}
