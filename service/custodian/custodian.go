package custodian

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/pandodao/paybridge/core"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	// Keys are hex private keys of pre-funded node accounts, imported into
	// the vault on Init.
	Keys []string
	// Addresses are funding wallets whose keys the vault already holds.
	Addresses []string
}

func New(chain core.ChainService, vault core.Vault, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		chain:  chain,
		vault:  vault,
		logger: logger.With("service", "custodian"),
		cfg:    cfg,
		sf:     &singleflight.Group{},
	}
}

// Service keeps the funding wallets and their last known balances.
type Service struct {
	chain  core.ChainService
	vault  core.Vault
	logger *slog.Logger
	cfg    Config
	sf     *singleflight.Group

	mux        sync.RWMutex
	addresses  []string
	custodians []*core.Custodian
}

func (s *Service) Init(ctx context.Context) error {
	var addresses []string

	for idx, key := range s.cfg.Keys {
		addr, err := s.vault.Import(ctx, fmt.Sprintf("custodian-%d", idx), key)
		if err != nil {
			return fmt.Errorf("import custodian key %d: %w", idx, err)
		}

		addresses = append(addresses, addr)
	}

	addresses = append(addresses, s.cfg.Addresses...)

	s.mux.Lock()
	s.addresses = addresses
	s.mux.Unlock()

	s.logger.Info("custodians loaded", "count", len(addresses))
	return s.Refresh(ctx)
}

// Refresh re-reads all balances from the chain. Concurrent calls share one
// round of queries.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.sf.Do("refresh", func() (interface{}, error) {
		return nil, s.refresh(ctx)
	})

	return err
}

func (s *Service) refresh(ctx context.Context) error {
	s.mux.RLock()
	addresses := s.addresses
	s.mux.RUnlock()

	custodians := make([]*core.Custodian, len(addresses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for idx := range addresses {
		idx := idx
		g.Go(func() error {
			balance, err := s.chain.Balance(ctx, addresses[idx])
			if err != nil {
				s.logger.Error("chain.Balance", "address", addresses[idx], "err", err)
				return err
			}

			custodians[idx] = &core.Custodian{Address: addresses[idx], Balance: balance}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.mux.Lock()
	s.custodians = custodians
	s.mux.Unlock()

	return nil
}

func (s *Service) List() []*core.Custodian {
	s.mux.RLock()
	defer s.mux.RUnlock()

	list := make([]*core.Custodian, len(s.custodians))
	for idx, c := range s.custodians {
		list[idx] = &core.Custodian{Address: c.Address, Balance: new(big.Int).Set(c.Balance)}
	}

	return list
}

func (s *Service) Select(ctx context.Context, preferred string, amount *big.Int) (*core.Custodian, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	for _, c := range s.List() {
		if preferred != "" {
			if !strings.EqualFold(c.Address, preferred) {
				continue
			}

			if c.Balance.Cmp(amount) < 0 {
				return nil, core.ErrInsufficient.WithMsg("funding wallet %s cannot cover amount", c.Address)
			}

			return c, nil
		}

		if c.Balance.Sign() > 0 && c.Balance.Cmp(amount) >= 0 {
			return c, nil
		}
	}

	if preferred != "" {
		return nil, core.ErrNoCustodian.WithMsg("%s is not a funding wallet", preferred)
	}

	return nil, core.ErrNoCustodian
}
