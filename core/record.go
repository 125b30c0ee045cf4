package core

import (
	"context"

	"github.com/shopspring/decimal"
)

type (
	RecordStatus    string
	RecordType      string
	RecordDirection string
)

const (
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusSubmitted RecordStatus = "submitted"
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"

	RecordTypeSend    RecordType = "send"
	RecordTypeReceive RecordType = "receive"
	RecordTypeFaucet  RecordType = "faucet"

	DirectionInbound  RecordDirection = "inbound"
	DirectionOutbound RecordDirection = "outbound"
)

func (s RecordStatus) Terminal() bool {
	return s == RecordStatusCompleted || s == RecordStatusFailed
}

// Record is the off-chain transaction record held by the backend.
type Record struct {
	ID             string          `json:"id,omitempty"`
	TransactionID  string          `json:"transaction_id"`
	WalletAddress  string          `json:"wallet_address"`
	FromAddress    string          `json:"from_address"`
	ToAddress      string          `json:"to_address"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencySymbol string          `json:"currency_symbol"`
	Type           RecordType      `json:"transaction_type"`
	Direction      RecordDirection `json:"direction"`
	Status         RecordStatus    `json:"status"`
	Memo           string          `json:"memo,omitempty"`
	NetworkMode    string          `json:"network_mode"`
	ChainTxHash    string          `json:"chain_txhash,omitempty"`
	BlockNumber    *uint64         `json:"block_number,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

type RecordResult struct {
	Success bool `json:"success"`
	// Missing reports that no record matched, so there is nothing to update.
	Missing  bool   `json:"missing,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RecordUpdate is the partial field set sent along a status update.
type RecordUpdate struct {
	TransactionIDs []string `json:"transaction_ids,omitempty"`
	BlockNumber    *uint64  `json:"block_number,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

type LedgerService interface {
	CreateRecord(ctx context.Context, record *Record) RecordResult
	UpdateStatus(ctx context.Context, txHash string, status RecordStatus, update RecordUpdate) RecordResult
	CreateDualRecords(ctx context.Context, sender, receiver string, amount decimal.Decimal, memo, logicalID string) []*Record
	MapWallet(ctx context.Context, ownerID, address string) RecordResult
}

type IdentityService interface {
	ResolveAddress(ctx context.Context, identifier string) (string, error)
}
