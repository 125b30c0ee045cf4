package chain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/service/chain/chaintest"
	"github.com/pandodao/paybridge/service/vault"
	"github.com/pandodao/paybridge/store/dbtest"
	"github.com/pandodao/paybridge/store/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiver = "0x2222222222222222222222222222222222222222"

var signer = types.NewEIP155Signer(big.NewInt(chaintest.ChainID))

func setup(t *testing.T, cfg Config) (*Service, *chaintest.Client, string) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := vault.New(wallet.New(dbtest.New(t)), make([]byte, vault.KeySize), logger)

	from, err := v.Create(context.Background(), "alice")
	require.NoError(t, err)

	client := chaintest.New()
	return New(client, v, logger, cfg), client, from
}

func TestSubmit(t *testing.T) {
	s, client, from := setup(t, Config{})

	sub, err := s.Submit(context.Background(), from, receiver, big.NewInt(1e18))
	require.NoError(t, err)

	sent := client.Sent()
	require.Len(t, sent, 1)

	tx := sent[0]
	assert.Equal(t, sub.TxHash, tx.Hash().Hex())
	assert.Equal(t, common.HexToAddress(receiver), *tx.To())
	assert.Equal(t, big.NewInt(1e18), tx.Value())
	assert.EqualValues(t, 21000, tx.Gas())
	assert.Empty(t, tx.Data())

	sender, err := types.Sender(signer, tx)
	require.NoError(t, err)
	assert.Equal(t, from, sender.Hex())
}

func TestSubmit_InvalidAddress(t *testing.T) {
	s, client, from := setup(t, Config{})

	_, err := s.Submit(context.Background(), from, "0x1234", big.NewInt(1))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	_, err = s.Submit(context.Background(), "alice", receiver, big.NewInt(1))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	assert.Empty(t, client.Sent())
}

func TestSubmit_UnknownKey(t *testing.T) {
	s, client, _ := setup(t, Config{})

	_, err := s.Submit(context.Background(), "0x3333333333333333333333333333333333333333", receiver, big.NewInt(1))
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
	assert.Empty(t, client.Sent())
}

func TestSubmit_RejectedBroadcast(t *testing.T) {
	s, client, from := setup(t, Config{})
	client.StaleNonce = true
	client.SendErr = errors.New("nonce too low")

	_, err := s.Submit(context.Background(), from, receiver, big.NewInt(1))
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindSubmission))
	assert.Contains(t, err.Error(), "nonce too low")

	// a rejected broadcast does not consume the nonce
	client.SendErr = nil
	sub, err := s.Submit(context.Background(), from, receiver, big.NewInt(1))
	require.NoError(t, err)
	assert.Zero(t, sub.Nonce)
}

func TestSubmit_ConcurrentSameSender(t *testing.T) {
	s, client, from := setup(t, Config{})
	// the node never sees our pending transactions
	client.StaleNonce = true

	const n = 16

	var (
		wg     sync.WaitGroup
		mux    sync.Mutex
		nonces []uint64
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := s.Submit(context.Background(), from, receiver, big.NewInt(1))
			if assert.NoError(t, err) {
				mux.Lock()
				nonces = append(nonces, sub.Nonce)
				mux.Unlock()
			}
		}()
	}

	wg.Wait()

	require.Len(t, client.Sent(), n)

	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	for i, nonce := range nonces {
		assert.EqualValues(t, i, nonce)
	}

	// broadcast order follows nonce order
	for i, tx := range client.Sent() {
		assert.EqualValues(t, i, tx.Nonce())
	}
}

func TestSubmitForward(t *testing.T) {
	const forwarderAddr = "0x4444444444444444444444444444444444444444"

	s, client, from := setup(t, Config{Forwarder: forwarderAddr})
	require.True(t, s.ForwarderEnabled())

	_, err := s.SubmitForward(context.Background(), from, receiver, big.NewInt(5), "welcome")
	require.NoError(t, err)

	tx := client.Sent()[0]
	assert.Equal(t, common.HexToAddress(forwarderAddr), *tx.To())
	assert.Equal(t, big.NewInt(5), tx.Value())
	assert.Equal(t, forwarder.Methods["forward"].ID, tx.Data()[:4])

	args, err := forwarder.Methods["forward"].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(receiver), args[0])
	assert.Equal(t, "welcome", args[1])
}

func TestSubmitForward_NotConfigured(t *testing.T) {
	s, _, from := setup(t, Config{})

	_, err := s.SubmitForward(context.Background(), from, receiver, big.NewInt(5), "")
	assert.True(t, core.IsKind(err, core.KindSubmission))
}

func TestUnpackPaymentForwarded(t *testing.T) {
	ev := forwarder.Events["PaymentForwarded"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(9), "hi")
	require.NoError(t, err)

	got, err := unpackPaymentForwarded(data)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9), got.Amount)
	assert.Equal(t, "hi", got.Memo)
}

func TestReceipt(t *testing.T) {
	s, client, from := setup(t, Config{})

	sub, err := s.Submit(context.Background(), from, receiver, big.NewInt(1))
	require.NoError(t, err)

	_, err = s.Receipt(context.Background(), sub.TxHash)
	assert.ErrorIs(t, err, core.ErrReceiptNotFound)

	client.Mine(sub.TxHash, false)

	r, err := s.Receipt(context.Background(), sub.TxHash)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.EqualValues(t, 1, r.BlockNumber)
}

func TestReceipt_ForwardedMemo(t *testing.T) {
	contract := common.HexToAddress("0x9999999999999999999999999999999999999999")
	s, client, from := setup(t, Config{Forwarder: contract.Hex()})

	sub, err := s.SubmitForward(context.Background(), from, receiver, big.NewInt(3), "welcome")
	require.NoError(t, err)

	ev := forwarder.Events["PaymentForwarded"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(3), "welcome")
	require.NoError(t, err)

	client.MineLogs(sub.TxHash, true,
		&types.Log{Address: common.HexToAddress(receiver), Topics: []common.Hash{ev.ID}, Data: data},
		&types.Log{Address: contract, Topics: []common.Hash{ev.ID}, Data: data},
	)

	r, err := s.Receipt(context.Background(), sub.TxHash)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "welcome", r.Memo)
}

func TestBalance(t *testing.T) {
	s, client, from := setup(t, Config{})
	client.Fund(from, big.NewInt(42))

	b, err := s.Balance(context.Background(), from)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), b)
}
