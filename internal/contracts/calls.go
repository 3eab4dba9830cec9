package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Entry is one row of CacheManager.getEntries(), the contract's live cache
// table (spec §4.6).
type Entry struct {
	Code [32]byte
	Size uint64
	Bid  *big.Int
}

// GetMinBid calls CacheManager.getMinBid(size), used once per configured
// size tier (small/mid/large) by the On-chain Poller.
func (b *Bound) GetMinBid(ctx context.Context, size uint64) (*big.Int, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "getMinBid", size); err != nil {
		return nil, fmt.Errorf("contracts: getMinBid(%d): %w", size, err)
	}
	return out[0].(*big.Int), nil
}

// GetEntries calls CacheManager.getEntries().
func (b *Bound) GetEntries(ctx context.Context) ([]Entry, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "getEntries"); err != nil {
		return nil, fmt.Errorf("contracts: getEntries: %w", err)
	}
	entries, ok := abi.ConvertType(out[0], new([]Entry)).(*[]Entry)
	if !ok {
		return nil, fmt.Errorf("contracts: getEntries: unexpected output shape")
	}
	return *entries, nil
}

// Decay calls CacheManager.decay().
func (b *Bound) Decay(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "decay"); err != nil {
		return nil, fmt.Errorf("contracts: decay: %w", err)
	}
	return toBigInt(out[0]), nil
}

// CacheSize calls CacheManager.cacheSize().
func (b *Bound) CacheSize(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "cacheSize"); err != nil {
		return nil, fmt.Errorf("contracts: cacheSize: %w", err)
	}
	return toBigInt(out[0]), nil
}

// QueueSize calls CacheManager.queueSize().
func (b *Bound) QueueSize(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "queueSize"); err != nil {
		return nil, fmt.Errorf("contracts: queueSize: %w", err)
	}
	return toBigInt(out[0]), nil
}

// IsPaused calls CacheManager.isPaused().
func (b *Bound) IsPaused(ctx context.Context) (bool, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "isPaused"); err != nil {
		return false, fmt.Errorf("contracts: isPaused: %w", err)
	}
	return out[0].(bool), nil
}

// CodehashIsCached calls ArbWasmCache.codehashIsCached(codehash).
func (b *Bound) CodehashIsCached(ctx context.Context, codehash [32]byte) (bool, error) {
	var out []interface{}
	if err := b.Call(&bind.CallOpts{Context: ctx}, &out, "codehashIsCached", codehash); err != nil {
		return false, fmt.Errorf("contracts: codehashIsCached: %w", err)
	}
	return out[0].(bool), nil
}

// toBigInt normalizes a decoded ABI integer of any declared width
// (uint64, uint192, ...) to *big.Int for arbitrary-precision downstream
// math. abi.UnpackValues/Call already returns *big.Int for anything wider
// than 64 bits; uint8/16/32/64 decode to their native Go types.
func toBigInt(v interface{}) *big.Int {
	switch t := v.(type) {
	case *big.Int:
		return t
	case uint64:
		return new(big.Int).SetUint64(t)
	case uint32:
		return new(big.Int).SetUint64(uint64(t))
	case uint16:
		return new(big.Int).SetUint64(uint64(t))
	case uint8:
		return new(big.Int).SetUint64(uint64(t))
	default:
		return big.NewInt(0)
	}
}
