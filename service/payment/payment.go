package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pandodao/paybridge/core"
	"github.com/shopspring/decimal"
)

type Config struct {
	// MaxAmount caps two-party payments, in ETH. Zero disables the cap.
	MaxAmount decimal.Decimal
	// FaucetMaxAmount caps faucet grants, in ETH. Zero disables the cap.
	FaucetMaxAmount decimal.Decimal
	MaxMemoLength   int
	// FaucetMemo is sent through the forwarding contract with faucet grants.
	FaucetMemo string
}

func New(
	vault core.Vault,
	identities core.IdentityService,
	ledger core.LedgerService,
	chain core.ChainService,
	custodians core.CustodianService,
	eligibilities core.EligibilityStore,
	watcher core.Watcher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.FaucetMemo == "" {
		cfg.FaucetMemo = "faucet"
	}

	return &Service{
		vault:         vault,
		identities:    identities,
		ledger:        ledger,
		chain:         chain,
		custodians:    custodians,
		eligibilities: eligibilities,
		watcher:       watcher,
		logger:        logger.With("service", "payment"),
		cfg:           cfg,
	}
}

// Service validates payment requests and carries them up to broadcast.
// Settlement continues in the watcher after the call returns.
type Service struct {
	vault         core.Vault
	identities    core.IdentityService
	ledger        core.LedgerService
	chain         core.ChainService
	custodians    core.CustodianService
	eligibilities core.EligibilityStore
	watcher       core.Watcher
	logger        *slog.Logger
	cfg           Config
}

var _ core.PaymentService = (*Service)(nil)

// NewTransactionID returns a fresh logical transaction id. Retried requests
// get a new id each time.
func NewTransactionID() string {
	return fmt.Sprintf("tx_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (s *Service) CreateWallet(ctx context.Context, ownerID string) (*core.CreatedWallet, error) {
	if err := required("ownerId", ownerID); err != nil {
		return nil, err
	}

	addr, err := s.vault.Create(ctx, ownerID)
	if err != nil {
		s.logger.Error("vault.Create", "owner", ownerID, "err", err)
		return nil, err
	}

	eligible, err := s.eligibilities.Eligible(ctx, addr)
	if err != nil {
		s.logger.Error("eligibilities.Eligible", "address", addr, "err", err)
		return nil, err
	}

	return &core.CreatedWallet{
		Address:         addr,
		FundingEligible: eligible,
		Mapping:         s.ledger.MapWallet(ctx, ownerID, addr),
	}, nil
}

func (s *Service) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := validAddress("address", address); err != nil {
		return decimal.Zero, err
	}

	wei, err := s.chain.Balance(ctx, address)
	if err != nil {
		s.logger.Error("chain.Balance", "address", address, "err", err)
		return decimal.Zero, core.ErrChain.Wrap(err)
	}

	return core.FromWei(wei), nil
}

func (s *Service) BonusEligible(ctx context.Context, address string) (bool, error) {
	if err := validAddress("address", address); err != nil {
		return false, err
	}

	return s.eligibilities.Eligible(ctx, address)
}

func (s *Service) WalletToWallet(ctx context.Context, fromWallet, toWallet, amount, memo string) (*core.Payment, error) {
	if err := validAddress("fromWallet", fromWallet); err != nil {
		return nil, err
	}

	if err := validAddress("toWallet", toWallet); err != nil {
		return nil, err
	}

	value, wei, err := parseAmount(amount, s.cfg.MaxAmount)
	if err != nil {
		return nil, err
	}

	if err := distinct(fromWallet, toWallet); err != nil {
		return nil, err
	}

	if err := s.validMemo(memo); err != nil {
		return nil, err
	}

	from, to, err := s.resolve(ctx, fromWallet, toWallet)
	if err != nil {
		return nil, err
	}

	return s.transfer(ctx, core.PaymentIntent{From: from, To: to, Amount: value, Memo: memo}, wei)
}

func (s *Service) EmailToEmail(ctx context.Context, fromEmail, toEmail, amount, memo string) (*core.Payment, error) {
	if err := validEmail("fromEmail", fromEmail); err != nil {
		return nil, err
	}

	if err := validEmail("toEmail", toEmail); err != nil {
		return nil, err
	}

	value, wei, err := parseAmount(amount, s.cfg.MaxAmount)
	if err != nil {
		return nil, err
	}

	if err := distinct(fromEmail, toEmail); err != nil {
		return nil, err
	}

	if err := s.validMemo(memo); err != nil {
		return nil, err
	}

	from, to, err := s.resolve(ctx, fromEmail, toEmail)
	if err != nil {
		return nil, err
	}

	// two emails may map to the same wallet
	if err := distinct(from, to); err != nil {
		return nil, err
	}

	return s.transfer(ctx, core.PaymentIntent{From: from, To: to, Amount: value, Memo: memo}, wei)
}

func (s *Service) resolve(ctx context.Context, sender, receiver string) (string, string, error) {
	from, err := s.identities.ResolveAddress(ctx, sender)
	if err != nil {
		return "", "", err
	}

	to, err := s.identities.ResolveAddress(ctx, receiver)
	if err != nil {
		return "", "", err
	}

	return from, to, nil
}

func (s *Service) transfer(ctx context.Context, intent core.PaymentIntent, wei *big.Int) (*core.Payment, error) {
	id := NewTransactionID()
	from, to := intent.From, intent.To
	logger := s.logger.With("transaction", id, "from", from, "to", to)

	custodial, err := s.vault.HasKey(ctx, from)
	if err != nil {
		logger.Error("vault.HasKey", "err", err)
		return nil, err
	}

	if !custodial {
		return nil, core.ErrKeyNotFound.WithMsg("no custody key for %s", from)
	}

	balance, err := s.chain.Balance(ctx, from)
	if err != nil {
		logger.Error("chain.Balance", "err", err)
		return nil, core.ErrChain.Wrap(err)
	}

	if balance.Cmp(wei) < 0 {
		return nil, core.ErrInsufficient.WithMsg("balance %s ETH is below %s ETH", core.FromWei(balance), intent.Amount)
	}

	records := s.ledger.CreateDualRecords(ctx, from, to, intent.Amount, intent.Memo, id)
	if len(records) < 2 {
		logger.Warn("payment partially recorded", "records", len(records))
	}

	sub, err := s.chain.Submit(ctx, from, to, wei)
	if err != nil {
		logger.Error("chain.Submit", "err", err)
		return nil, err
	}

	s.submitted(ctx, id, sub.TxHash, records, core.WatchKindPayment)

	return &core.Payment{
		TransactionID:  id,
		TxHash:         sub.TxHash,
		Status:         core.PaymentStatusSubmitted,
		RecordsCreated: len(records),
	}, nil
}

// Faucet grants bootstrap funds to toWallet once. fromWallet optionally
// picks the funding wallet.
func (s *Service) Faucet(ctx context.Context, toWallet, amount, fromWallet string) (*core.Payment, error) {
	if err := validAddress("toWallet", toWallet); err != nil {
		return nil, err
	}

	if fromWallet != "" {
		if err := validAddress("fromWallet", fromWallet); err != nil {
			return nil, err
		}

		if err := distinct(fromWallet, toWallet); err != nil {
			return nil, err
		}
	}

	value, wei, err := parseAmount(amount, s.cfg.FaucetMaxAmount)
	if err != nil {
		return nil, err
	}

	claimed, err := s.eligibilities.Claim(ctx, toWallet)
	if err != nil {
		s.logger.Error("eligibilities.Claim", "address", toWallet, "err", err)
		return nil, err
	}

	if !claimed {
		return nil, core.ErrAlreadyFunded
	}

	payment, err := s.fund(ctx, toWallet, fromWallet, value, wei)
	if err != nil {
		if err := s.eligibilities.Release(ctx, toWallet); err != nil {
			s.logger.Error("eligibilities.Release", "address", toWallet, "err", err)
		}

		return nil, err
	}

	return payment, nil
}

func (s *Service) fund(ctx context.Context, to, preferred string, amount decimal.Decimal, wei *big.Int) (*core.Payment, error) {
	custodian, err := s.custodians.Select(ctx, preferred, wei)
	if err != nil {
		s.logger.Error("custodians.Select", "preferred", preferred, "err", err)
		return nil, err
	}

	from := custodian.Address
	if err := distinct(from, to); err != nil {
		return nil, err
	}

	id := NewTransactionID()
	logger := s.logger.With("transaction", id, "from", from, "to", to)

	record := &core.Record{
		TransactionID: id,
		WalletAddress: to,
		FromAddress:   from,
		ToAddress:     to,
		Amount:        amount,
		Type:          core.RecordTypeFaucet,
		Direction:     core.DirectionInbound,
		Status:        core.RecordStatusPending,
	}

	var records []*core.Record
	if res := s.ledger.CreateRecord(ctx, record); res.Success {
		records = append(records, record)
	} else {
		logger.Warn("faucet grant not recorded", "err", res.Error)
	}

	var sub *core.Submission
	if s.chain.ForwarderEnabled() {
		sub, err = s.chain.SubmitForward(ctx, from, to, wei, s.cfg.FaucetMemo)
	} else {
		sub, err = s.chain.Submit(ctx, from, to, wei)
	}

	if err != nil {
		logger.Error("chain.Submit", "err", err)
		return nil, err
	}

	s.submitted(ctx, id, sub.TxHash, records, core.WatchKindFaucet)

	return &core.Payment{
		TransactionID:  id,
		TxHash:         sub.TxHash,
		Status:         core.PaymentStatusSubmitted,
		RecordsCreated: len(records),
	}, nil
}

// submitted links the created records to the broadcast hash and hands the
// transaction to the watcher.
func (s *Service) submitted(ctx context.Context, id, txHash string, records []*core.Record, kind core.WatchKind) {
	if len(records) > 0 {
		ids := make([]string, len(records))
		for idx, r := range records {
			ids[idx] = r.TransactionID
		}

		update := core.RecordUpdate{TransactionIDs: ids}
		if res := s.ledger.UpdateStatus(ctx, txHash, core.RecordStatusSubmitted, update); !res.Success {
			s.logger.Error("ledger.UpdateStatus", "transaction", id, "hash", txHash, "err", res.Error)
		}
	}

	s.watcher.Watch(ctx, &core.Watch{
		TxHash:    txHash,
		LogicalID: id,
		Kind:      kind,
	})
}
