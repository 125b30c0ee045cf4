package core

import (
	"context"
	"math/big"
)

type Receipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Success     bool   `json:"success"`
	GasUsed     uint64 `json:"gas_used"`
	// Memo is set when the transaction went through the forwarding contract.
	Memo string `json:"memo,omitempty"`
}

type Submission struct {
	TxHash string `json:"tx_hash"`
	Nonce  uint64 `json:"nonce"`
}

type ChainService interface {
	Balance(ctx context.Context, address string) (*big.Int, error)
	Submit(ctx context.Context, from, to string, amount *big.Int) (*Submission, error)
	// SubmitForward routes the transfer through the payment forwarding contract.
	SubmitForward(ctx context.Context, from, to string, amount *big.Int, memo string) (*Submission, error)
	// Receipt returns ErrReceiptNotFound while the transaction is pending.
	Receipt(ctx context.Context, txHash string) (*Receipt, error)
	ForwarderEnabled() bool
}
