package entity

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockHeader is the subset of an eth_getBlockByNumber result the controller inspects.
type BlockHeader struct {
	Number        *hexutil.Big   `json:"number"`
	Hash          common.Hash    `json:"hash"`
	ParentHash    common.Hash    `json:"parentHash"`
	Timestamp     hexutil.Uint64 `json:"timestamp"`
	BaseFeePerGas *hexutil.Big   `json:"baseFeePerGas,omitempty"`
}

// SupportsEIP1559 reports whether the header carries a base fee.
func (h *BlockHeader) SupportsEIP1559() bool {
	return h != nil && h.BaseFeePerGas != nil
}

// NumberUint64 returns the block number, or 0 when it is missing.
func (h *BlockHeader) NumberUint64() uint64 {
	if h == nil || h.Number == nil {
		return 0
	}
	return h.Number.ToInt().Uint64()
}
