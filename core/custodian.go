package core

import (
	"context"
	"math/big"
)

type Custodian struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"`
}

type CustodianService interface {
	Refresh(ctx context.Context) error
	List() []*Custodian
	// Select returns the preferred custodian if set, else the first whose
	// balance covers amount.
	Select(ctx context.Context, preferred string, amount *big.Int) (*Custodian, error)
}
