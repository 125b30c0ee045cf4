// Package chaintest provides an in-memory chain client for tests.
package chaintest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const ChainID = 1337

// Client accepts every well-formed transaction and never mines on its own;
// tests settle transactions with Mine.
type Client struct {
	mux      sync.Mutex
	balances map[common.Address]*big.Int
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	block    uint64

	// StaleNonce makes PendingNonceAt ignore broadcast transactions, like a
	// node whose pool lags behind.
	StaleNonce bool
	SendErr    error
	ReceiptErr error
	// OnSend runs before a transaction is accepted.
	OnSend func(tx *types.Transaction)
}

func New() *Client {
	return &Client{
		balances: map[common.Address]*big.Int{},
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (c *Client) Fund(addr string, wei *big.Int) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.balances[common.HexToAddress(addr)] = new(big.Int).Set(wei)
}

func (c *Client) Sent() []*types.Transaction {
	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]*types.Transaction(nil), c.sent...)
}

// Mine produces a receipt for hash with the given outcome.
func (c *Client) Mine(hash string, success bool) {
	c.MineLogs(hash, success)
}

// MineLogs is Mine with event logs attached to the receipt.
func (c *Client) MineLogs(hash string, success bool, logs ...*types.Log) {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.block++
	status := types.ReceiptStatusFailed
	if success {
		status = types.ReceiptStatusSuccessful
	}

	h := common.HexToHash(hash)
	c.receipts[h] = &types.Receipt{
		Status:      status,
		TxHash:      h,
		BlockNumber: new(big.Int).SetUint64(c.block),
		GasUsed:     21000,
		Logs:        logs,
	}
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(ChainID), nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}

	return new(big.Int), nil
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.StaleNonce {
		return 0, nil
	}

	var n uint64
	signer := types.NewEIP155Signer(big.NewInt(ChainID))
	for _, tx := range c.sent {
		if from, err := types.Sender(signer, tx); err == nil && from == account {
			n++
		}
	}

	return n, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if len(msg.Data) > 0 {
		return 60000, nil
	}

	return 21000, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.OnSend != nil {
		c.OnSend(tx)
	}

	c.mux.Lock()
	defer c.mux.Unlock()

	if c.SendErr != nil {
		return c.SendErr
	}

	c.sent = append(c.sent, tx)
	return nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.ReceiptErr != nil {
		return nil, c.ReceiptErr
	}

	if r, ok := c.receipts[txHash]; ok {
		return r, nil
	}

	return nil, ethereum.NotFound
}
