package chain

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/pandodao/paybridge/core"
)

type Config struct {
	// ChainID is queried from the node when zero.
	ChainID int64
	// Forwarder is the payment forwarding contract address, optional.
	Forwarder string
	// GasLimit overrides gas estimation when set.
	GasLimit uint64
}

func New(client Client, vault core.Vault, logger *slog.Logger, cfg Config) *Service {
	s := &Service{
		client: client,
		vault:  vault,
		logger: logger.With("service", "chain"),
		cfg:    cfg,
		locks:  map[common.Address]*senderLock{},
	}

	if cfg.ChainID > 0 {
		s.chainID = big.NewInt(cfg.ChainID)
	}

	if cfg.Forwarder != "" {
		if !common.IsHexAddress(cfg.Forwarder) {
			panic("chain: invalid forwarder address " + cfg.Forwarder)
		}

		addr := common.HexToAddress(cfg.Forwarder)
		s.forwarder = &addr
	}

	return s
}

type Service struct {
	client    Client
	vault     core.Vault
	logger    *slog.Logger
	cfg       Config
	forwarder *common.Address

	mux     sync.Mutex
	chainID *big.Int
	locks   map[common.Address]*senderLock
}

// senderLock serializes nonce acquisition and broadcast per sender. next is
// the nonce after the last successful broadcast from this process.
type senderLock struct {
	sync.Mutex
	next  uint64
	known bool
}

func (s *Service) lockSender(addr common.Address) *senderLock {
	s.mux.Lock()
	l, ok := s.locks[addr]
	if !ok {
		l = &senderLock{}
		s.locks[addr] = l
	}
	s.mux.Unlock()

	l.Lock()
	return l
}

func (s *Service) getChainID(ctx context.Context) (*big.Int, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.chainID != nil {
		return s.chainID, nil
	}

	id, err := s.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	s.chainID = id
	return id, nil
}

func (s *Service) ForwarderEnabled() bool {
	return s.forwarder != nil
}

func (s *Service) Balance(ctx context.Context, address string) (*big.Int, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	return s.client.BalanceAt(ctx, addr, nil)
}

// Submit signs and broadcasts a plain value transfer.
func (s *Service) Submit(ctx context.Context, from, to string, amount *big.Int) (*core.Submission, error) {
	toAddr, err := parseAddress(to)
	if err != nil {
		return nil, err
	}

	return s.send(ctx, from, toAddr, amount, nil, params.TxGas)
}

// SubmitForward calls forward(to, memo) on the forwarding contract with
// amount attached.
func (s *Service) SubmitForward(ctx context.Context, from, to string, amount *big.Int, memo string) (*core.Submission, error) {
	if s.forwarder == nil {
		return nil, core.ErrSubmission.WithMsg("no forwarder contract configured")
	}

	toAddr, err := parseAddress(to)
	if err != nil {
		return nil, err
	}

	data, err := packForward(toAddr, memo)
	if err != nil {
		return nil, core.ErrSubmission.Wrap(err)
	}

	return s.send(ctx, from, *s.forwarder, amount, data, params.TxGas)
}

func (s *Service) send(ctx context.Context, from string, to common.Address, amount *big.Int, data []byte, gasFloor uint64) (*core.Submission, error) {
	fromAddr, err := parseAddress(from)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("from", fromAddr.Hex(), "to", to.Hex(), "amount", amount)

	key, err := s.vault.ResolvePrivateKey(ctx, fromAddr.Hex())
	if err != nil {
		logger.Error("vault.ResolvePrivateKey", "err", err)
		if core.KindOf(err) != 0 {
			return nil, err
		}
		return nil, core.ErrSubmission.Wrap(err)
	}

	chainID, err := s.getChainID(ctx)
	if err != nil {
		logger.Error("client.ChainID", "err", err)
		return nil, core.ErrSubmission.Wrap(err)
	}

	l := s.lockSender(fromAddr)
	defer l.Unlock()

	nonce, err := s.client.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		logger.Error("client.PendingNonceAt", "err", err)
		return nil, core.ErrSubmission.Wrap(err)
	}

	// the node's pending view can lag behind our own broadcasts
	if l.known && l.next > nonce {
		nonce = l.next
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		logger.Error("client.SuggestGasPrice", "err", err)
		return nil, core.ErrSubmission.Wrap(err)
	}

	gas := s.cfg.GasLimit
	if gas == 0 {
		gas, err = s.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  fromAddr,
			To:    &to,
			Value: amount,
			Data:  data,
		})
		if err != nil {
			logger.Error("client.EstimateGas", "err", err)
			return nil, core.ErrSubmission.Wrap(err)
		}
	}

	gas = max(gas, gasFloor)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    amount,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, core.ErrSubmission.Wrap(err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		logger.Error("client.SendTransaction", "nonce", nonce, "err", err)
		return nil, core.ErrSubmission.Wrap(err)
	}

	l.next, l.known = nonce+1, true

	logger.Info("transaction broadcast", "hash", signed.Hash().Hex(), "nonce", nonce)
	return &core.Submission{TxHash: signed.Hash().Hex(), Nonce: nonce}, nil
}

func (s *Service) Receipt(ctx context.Context, txHash string) (*core.Receipt, error) {
	r, err := s.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return nil, core.ErrReceiptNotFound
	} else if err != nil {
		return nil, err
	}

	receipt := &core.Receipt{
		TxHash:  txHash,
		Success: r.Status == types.ReceiptStatusSuccessful,
		GasUsed: r.GasUsed,
	}

	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.Uint64()
	}

	if s.forwarder != nil {
		receipt.Memo, _ = forwardedMemo(*s.forwarder, r.Logs)
	}

	return receipt, nil
}

func parseAddress(s string) (common.Address, error) {
	if len(s) < 2 || s[:2] != "0x" || !common.IsHexAddress(s) {
		return common.Address{}, core.ErrInvalidAddress.WithMsg("malformed address %q", s)
	}

	return common.HexToAddress(s), nil
}
