package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/cobuilders/cachemanager-indexer/internal/domain"
)

// ToEventArgs renders decoded ABI values into domain.EventArgs, converting
// every big.Int to a decimal string so downstream BigInt arithmetic is
// exact (spec §4.2 "large integer values are converted to decimal
// strings").
func ToEventArgs(args []abiArg) domain.EventArgs {
	out := make(domain.EventArgs, 0, len(args))
	for _, a := range args {
		name, value := a.NameValue()
		out = append(out, domain.Arg{Name: name, Value: renderValue(value)})
	}
	return out
}

func renderValue(v interface{}) string {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case common.Address:
		return t.Hex()
	case common.Hash:
		return t.Hex()
	case [32]byte:
		return common.Hash(t).Hex()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case uint8, uint16, uint32, uint64, int8, int16, int32, int64:
		return fmt.Sprintf("%d", t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
