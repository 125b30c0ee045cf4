package core

import (
	"context"
	"time"
)

type Eligibility struct {
	Address   string    `json:"address"`
	Funded    bool      `json:"funded"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EligibilityStore interface {
	// Eligible reports true when no record exists or the record is not funded.
	Eligible(ctx context.Context, address string) (bool, error)
	// Claim flips the address to funded and reports false if it already was.
	Claim(ctx context.Context, address string) (bool, error)
	Release(ctx context.Context, address string) error
	Find(ctx context.Context, address string) (*Eligibility, error)
}
