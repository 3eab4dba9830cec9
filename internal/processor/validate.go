package processor

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/indexererr"
)

// insertBidArgs is the validated shape of an InsertBid event: 4-tuple where
// element 0 is a 32-byte hex hash, element 1 a 20-byte hex address, and
// elements 2-3 are parseable non-negative integers (spec §4.7 note).
type insertBidArgs struct {
	bytecodeHash [32]byte
	address      [20]byte
	bidValue     *big.Int
	size         uint64
}

func parseInsertBid(args domain.EventArgs) (insertBidArgs, error) {
	if len(args) < 4 {
		return insertBidArgs{}, shapeErr("InsertBid", "expected 4 arguments", args)
	}
	hash, ok := parseHash32(args.Get(0))
	if !ok {
		return insertBidArgs{}, shapeErr("InsertBid", "argument 0 is not a 32-byte hash", args)
	}
	addr, ok := parseAddress20(args.Get(1))
	if !ok {
		return insertBidArgs{}, shapeErr("InsertBid", "argument 1 is not a 20-byte address", args)
	}
	bidValue, ok := parseNonNegInt(args.Get(2))
	if !ok {
		return insertBidArgs{}, shapeErr("InsertBid", "argument 2 is not a non-negative integer", args)
	}
	size, ok := parseNonNegInt(args.Get(3))
	if !ok {
		return insertBidArgs{}, shapeErr("InsertBid", "argument 3 is not a non-negative integer", args)
	}
	return insertBidArgs{bytecodeHash: hash, address: addr, bidValue: bidValue, size: size.Uint64()}, nil
}

// deleteBidArgs is the validated 3-element DeleteBid shape this indexer
// chose between the two inconsistent on-chain payloads (see the Open
// Questions disposition in the design notes): [hash, bidValue, size].
type deleteBidArgs struct {
	bytecodeHash [32]byte
	evictionBid  *big.Int
	size         uint64
}

func parseDeleteBid(args domain.EventArgs) (deleteBidArgs, error) {
	if len(args) < 3 {
		return deleteBidArgs{}, shapeErr("DeleteBid", "expected 3 arguments", args)
	}
	hash, ok := parseHash32(args.Get(0))
	if !ok {
		return deleteBidArgs{}, shapeErr("DeleteBid", "argument 0 is not a 32-byte hash", args)
	}
	evictionBid, ok := parseNonNegInt(args.Get(1))
	if !ok {
		return deleteBidArgs{}, shapeErr("DeleteBid", "argument 1 is not a non-negative integer", args)
	}
	size, ok := parseNonNegInt(args.Get(2))
	if !ok {
		return deleteBidArgs{}, shapeErr("DeleteBid", "argument 2 is not a non-negative integer", args)
	}
	return deleteBidArgs{bytecodeHash: hash, evictionBid: evictionBid, size: size.Uint64()}, nil
}

type contractAddedArgs struct {
	address [20]byte
	maxBid  *big.Int
}

func parseContractAdded(args domain.EventArgs) (contractAddedArgs, error) {
	if len(args) < 3 {
		return contractAddedArgs{}, shapeErr("ContractAdded", "expected 3 arguments", args)
	}
	addr, ok := parseAddress20(args.Get(1))
	if !ok {
		return contractAddedArgs{}, shapeErr("ContractAdded", "argument 1 is not a 20-byte address", args)
	}
	maxBid, ok := parseNonNegInt(args.Get(2))
	if !ok {
		return contractAddedArgs{}, shapeErr("ContractAdded", "argument 2 is not a non-negative integer", args)
	}
	return contractAddedArgs{address: addr, maxBid: maxBid}, nil
}

type contractUpdatedArgs struct {
	address [20]byte
	maxBid  *big.Int
}

func parseContractUpdated(args domain.EventArgs) (contractUpdatedArgs, error) {
	if len(args) < 2 {
		return contractUpdatedArgs{}, shapeErr("ContractUpdated", "expected 2 arguments", args)
	}
	addr, ok := parseAddress20(args.Get(0))
	if !ok {
		return contractUpdatedArgs{}, shapeErr("ContractUpdated", "argument 0 is not a 20-byte address", args)
	}
	maxBid, ok := parseNonNegInt(args.Get(1))
	if !ok {
		return contractUpdatedArgs{}, shapeErr("ContractUpdated", "argument 1 is not a non-negative integer", args)
	}
	return contractUpdatedArgs{address: addr, maxBid: maxBid}, nil
}

func parseSetDecayRate(args domain.EventArgs) (*big.Int, error) {
	if len(args) < 1 {
		return nil, shapeErr("SetDecayRate", "expected 1 argument", args)
	}
	rate, ok := parseNonNegInt(args.Get(0))
	if !ok {
		return nil, shapeErr("SetDecayRate", "argument 0 is not a non-negative integer", args)
	}
	return rate, nil
}

func shapeErr(event, reason string, args domain.EventArgs) error {
	return indexererr.New(indexererr.InvalidEventData, reason, map[string]any{
		"event": event,
		"args":  args,
	})
}

func parseHash32(s string) ([32]byte, bool) {
	var out [32]byte
	b, ok := decodeHex(s, 32)
	if !ok {
		return out, false
	}
	copy(out[:], b)
	return out, true
}

func parseAddress20(s string) ([20]byte, bool) {
	var out [20]byte
	b, ok := decodeHex(s, 20)
	if !ok {
		return out, false
	}
	copy(out[:], b)
	return out, true
}

func decodeHex(s string, wantLen int) ([]byte, bool) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != wantLen*2 {
		return nil, false
	}
	b := make([]byte, wantLen)
	for i := 0; i < wantLen; i++ {
		hi, ok1 := hexNibble(s[i*2])
		lo, ok2 := hexNibble(s[i*2+1])
		if !ok1 || !ok2 {
			return nil, false
		}
		b[i] = hi<<4 | lo
	}
	return b, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// parseNonNegInt parses a decimal string into a *big.Int, first validating
// it fits the 256-bit width every value the contract can emit is bound by
// (maxBid is uint256, bid is uint192, decay rate and size are uint64). Rejecting
// anything uint256 could never hold catches corrupted eventData before it
// reaches the additive bid math, where a too-large value would otherwise
// silently produce a wrong but well-formed-looking totalBidInvestment.
func parseNonNegInt(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, false
	}
	return n.ToBig(), true
}
