package pg

import "github.com/ethereum/go-ethereum/common"

func hexToAddress(s string) common.Address { return common.HexToAddress(s) }
func hexToHash(s string) common.Hash       { return common.HexToHash(s) }
