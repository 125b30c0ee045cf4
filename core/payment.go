package core

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// Ether has 18 decimals.
const EtherDecimals = 18

type PaymentIntent struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Memo   string          `json:"memo,omitempty"`
}

type PaymentStatus string

const (
	PaymentStatusSubmitted PaymentStatus = "submitted"
)

type Payment struct {
	TransactionID  string        `json:"transactionId"`
	TxHash         string        `json:"txHash"`
	Status         PaymentStatus `json:"status"`
	RecordsCreated int           `json:"recordsCreated"`
}

type CreatedWallet struct {
	Address         string       `json:"address"`
	FundingEligible bool         `json:"fundingEligible"`
	Mapping         RecordResult `json:"mapping"`
}

type PaymentService interface {
	CreateWallet(ctx context.Context, ownerID string) (*CreatedWallet, error)
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	BonusEligible(ctx context.Context, address string) (bool, error)
	Faucet(ctx context.Context, toWallet, amount, fromWallet string) (*Payment, error)
	EmailToEmail(ctx context.Context, fromEmail, toEmail, amount, memo string) (*Payment, error)
	WalletToWallet(ctx context.Context, fromWallet, toWallet, amount, memo string) (*Payment, error)
}

func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(EtherDecimals).BigInt()
}

func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}
