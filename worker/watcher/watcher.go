package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pandodao/paybridge/core"
	"github.com/zyedidia/generic/mapset"
)

// Error messages written to records, distinguishable by operators.
const (
	MessageTimeout  = "watch timeout"
	MessageReverted = "transaction reverted"
)

type Config struct {
	Timeout  time.Duration
	Interval time.Duration
	// Sweep is how often persisted watches without a running task are
	// picked up again.
	Sweep time.Duration
	// RetryWindow bounds how long past its deadline a watch keeps retrying
	// a failed status update before it is dropped.
	RetryWindow time.Duration
}

func New(
	chain core.ChainService,
	ledger core.LedgerService,
	watches core.WatchStore,
	logger *slog.Logger,
	cfg Config,
) *Watcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}

	if cfg.Sweep <= 0 {
		cfg.Sweep = time.Minute
	}

	if cfg.RetryWindow <= 0 {
		cfg.RetryWindow = time.Hour
	}

	base, cancel := context.WithCancel(context.Background())

	return &Watcher{
		chain:    chain,
		ledger:   ledger,
		watches:  watches,
		logger:   logger.With("worker", "watcher"),
		cfg:      cfg,
		base:     base,
		cancel:   cancel,
		inflight: mapset.New[string](),
	}
}

// Watcher settles broadcast transactions. Each watch runs as its own task,
// detached from the request that created it; the set of tasks is tracked so
// shutdown can drain it.
type Watcher struct {
	chain   core.ChainService
	ledger  core.LedgerService
	watches core.WatchStore
	logger  *slog.Logger
	cfg     Config

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mux      sync.Mutex
	closed   bool
	inflight mapset.Set[string]
}

// Watch persists the watch and starts its task. It returns immediately.
func (w *Watcher) Watch(ctx context.Context, watch *core.Watch) {
	if watch.CreatedAt.IsZero() {
		watch.CreatedAt = time.Now()
	}

	if watch.Deadline.IsZero() {
		watch.Deadline = watch.CreatedAt.Add(w.cfg.Timeout)
	}

	if err := w.watches.Save(ctx, watch); err != nil {
		w.logger.Error("watches.Save", "hash", watch.TxHash, "err", err)
	}

	w.spawn(watch)
}

func (w *Watcher) spawn(watch *core.Watch) bool {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed || w.base.Err() != nil || w.inflight.Has(watch.TxHash) {
		return false
	}

	w.inflight.Put(watch.TxHash)
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() {
			w.mux.Lock()
			w.inflight.Remove(watch.TxHash)
			w.mux.Unlock()
		}()

		w.settle(w.base, watch)
	}()

	return true
}

// InFlight returns the number of running watch tasks.
func (w *Watcher) InFlight() int {
	w.mux.Lock()
	defer w.mux.Unlock()
	return w.inflight.Size()
}

func (w *Watcher) settle(ctx context.Context, watch *core.Watch) {
	logger := w.logger.With("hash", watch.TxHash, "transaction", watch.LogicalID)

	var (
		status core.RecordStatus
		update core.RecordUpdate
	)

	receipt, err := w.AwaitReceipt(ctx, watch.TxHash, time.Until(watch.Deadline), w.cfg.Interval)
	switch {
	case errors.Is(err, core.ErrSettlement):
		logger.Warn("no receipt before deadline")
		status, update.ErrorMessage = core.RecordStatusFailed, MessageTimeout
	case err != nil:
		// shutting down, the persisted watch is resumed on next start
		logger.Info("watch abandoned", "err", err)
		return
	case receipt.Success:
		status, update.BlockNumber = core.RecordStatusCompleted, &receipt.BlockNumber
	default:
		status, update.BlockNumber, update.ErrorMessage = core.RecordStatusFailed, &receipt.BlockNumber, MessageReverted
	}

	switch res := w.ledger.UpdateStatus(ctx, watch.TxHash, status, update); {
	case res.Success:
	case res.Missing:
		logger.Warn("no record to annotate", "status", status)
	case time.Since(watch.Deadline) > w.cfg.RetryWindow:
		logger.Error("ledger.UpdateStatus, giving up", "status", status, "err", res.Error)
	default:
		// keep the watch, the next sweep retries
		logger.Error("ledger.UpdateStatus", "status", status, "err", res.Error)
		return
	}

	if err := w.watches.Delete(ctx, watch.TxHash); err != nil {
		logger.Error("watches.Delete", "err", err)
	}

	if receipt != nil && receipt.Memo != "" {
		logger = logger.With("memo", receipt.Memo)
	}

	logger.Info("transaction settled", "status", status)
}

// AwaitReceipt polls for the receipt of txHash every interval until it shows
// up or timeout elapses. A reverted receipt is a result, not an error; only a
// missing receipt yields core.ErrSettlement. A non-positive timeout still
// checks once.
func (w *Watcher) AwaitReceipt(ctx context.Context, txHash string, timeout, interval time.Duration) (*core.Receipt, error) {
	deadline := time.Now().Add(timeout)

	for {
		receipt, err := w.chain.Receipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if !errors.Is(err, core.ErrReceiptNotFound) {
			w.logger.Warn("chain.Receipt", "hash", txHash, "err", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, core.ErrSettlement.WithMsg(MessageTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(min(interval, remaining)):
		}
	}
}

// Resume starts tasks for persisted watches that have none running.
func (w *Watcher) Resume(ctx context.Context) error {
	const limit = 500
	watches, err := w.watches.List(ctx, limit)
	if err != nil {
		w.logger.Error("watches.List", "err", err)
		return err
	}

	var n int
	for _, watch := range watches {
		if w.spawn(watch) {
			n++
		}
	}

	if n > 0 {
		w.logger.Info("watches resumed", "count", n)
	}

	return nil
}

func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher start")

	for {
		_ = w.Resume(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Sweep):
		}
	}
}

// Drain stops new tasks from starting, then waits for running ones until ctx
// is done and abandons the rest. Abandoned watches stay persisted.
func (w *Watcher) Drain(ctx context.Context) error {
	w.mux.Lock()
	w.closed = true
	w.mux.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	w.cancel()
	<-done
	return err
}
