package core

import (
	"context"
	"time"
)

type WatchKind string

const (
	WatchKindPayment WatchKind = "payment"
	WatchKindFaucet  WatchKind = "faucet"
)

// Watch is a broadcast transaction awaiting settlement.
type Watch struct {
	TxHash    string    `json:"tx_hash"`
	LogicalID string    `json:"logical_id"`
	Kind      WatchKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Deadline  time.Time `json:"deadline"`
}

type WatchStore interface {
	Save(ctx context.Context, watch *Watch) error
	Delete(ctx context.Context, txHash string) error
	List(ctx context.Context, limit int) ([]*Watch, error)
}

// Watcher settles watches in the background; Watch returns immediately.
type Watcher interface {
	Watch(ctx context.Context, watch *Watch)
}
