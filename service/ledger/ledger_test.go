package ledger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/service/backend"
	"github.com/pandodao/paybridge/service/backend/backendtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sender   = "0x1111111111111111111111111111111111111111"
	receiver = "0x2222222222222222222222222222222222222222"
)

var cfg = Config{Currency: "ETH", NetworkMode: "local"}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(endpoint string) *Service {
	return New(backend.New(backend.Config{Endpoint: endpoint}), discard(), cfg)
}

func TestCreateDualRecords(t *testing.T) {
	srv := backendtest.New(t)
	l := newLedger(srv.URL)

	records := l.CreateDualRecords(context.Background(), sender, receiver, decimal.RequireFromString("1.5"), "lunch", "tx_1")
	require.Len(t, records, 2)

	out, ok := srv.Record("tx_1_sender")
	require.True(t, ok)
	assert.Equal(t, "outbound", out["direction"])
	assert.Equal(t, "send", out["transaction_type"])
	assert.Equal(t, "pending", out["status"])
	assert.Equal(t, sender, out["wallet_address"])
	assert.Equal(t, "ETH", out["currency_symbol"])
	assert.Equal(t, "local", out["network_mode"])

	in, ok := srv.Record("tx_1_receiver")
	require.True(t, ok)
	assert.Equal(t, "inbound", in["direction"])
	assert.Equal(t, "receive", in["transaction_type"])
	assert.Equal(t, receiver, in["wallet_address"])
}

func TestCreateDualRecords_PartialSuccess(t *testing.T) {
	srv := backendtest.New(t)
	srv.FailCreate = "_receiver"
	l := newLedger(srv.URL)

	records := l.CreateDualRecords(context.Background(), sender, receiver, decimal.NewFromInt(1), "", "tx_2")
	require.Len(t, records, 1)
	assert.Equal(t, "tx_2_sender", records[0].TransactionID)
	assert.NotEmpty(t, records[0].ID)
}

func TestCreateRecord_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "{oops") }},
		{"missing id", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "{}") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			res := newLedger(srv.URL).CreateRecord(context.Background(), &core.Record{TransactionID: "tx"})
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestCreateRecord_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	res := newLedger(endpoint).CreateRecord(context.Background(), &core.Record{TransactionID: "tx"})
	assert.False(t, res.Success)
}

func TestUpdateStatus_TerminalIsIdempotent(t *testing.T) {
	srv := backendtest.New(t)
	l := newLedger(srv.URL)
	ctx := context.Background()

	records := l.CreateDualRecords(ctx, sender, receiver, decimal.NewFromInt(1), "", "tx_3")
	require.Len(t, records, 2)

	const hash = "0xabc"
	res := l.UpdateStatus(ctx, hash, core.RecordStatusSubmitted, core.RecordUpdate{
		TransactionIDs: []string{"tx_3_sender", "tx_3_receiver"},
	})
	require.True(t, res.Success)

	block := uint64(7)
	res = l.UpdateStatus(ctx, hash, core.RecordStatusCompleted, core.RecordUpdate{BlockNumber: &block})
	require.True(t, res.Success)

	once, _ := srv.Record("tx_3_sender")
	updates := srv.Updates()

	res = l.UpdateStatus(ctx, hash, core.RecordStatusCompleted, core.RecordUpdate{BlockNumber: &block})
	assert.True(t, res.Success)

	twice, _ := srv.Record("tx_3_sender")
	assert.Equal(t, once, twice)
	assert.Equal(t, updates, srv.Updates())
	assert.Equal(t, "completed", twice["status"])
	assert.Equal(t, hash, twice["chain_txhash"])

	// an older status after the terminal one does not regress the record
	res = l.UpdateStatus(ctx, hash, core.RecordStatusSubmitted, core.RecordUpdate{})
	assert.True(t, res.Success)
	after, _ := srv.Record("tx_3_sender")
	assert.Equal(t, "completed", after["status"])
}

func TestUpdateStatus_NoRecord(t *testing.T) {
	srv := backendtest.New(t)
	l := newLedger(srv.URL)

	// no record carries this hash
	res := l.UpdateStatus(context.Background(), "0xdead", core.RecordStatusFailed, core.RecordUpdate{ErrorMessage: "watch timeout"})
	assert.False(t, res.Success)
	assert.True(t, res.Missing)
}

func TestUpdateStatus_BackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	l := newLedger(srv.URL)

	res := l.UpdateStatus(context.Background(), "0xdead", core.RecordStatusCompleted, core.RecordUpdate{})
	assert.False(t, res.Success)
	assert.False(t, res.Missing)
	assert.NotEmpty(t, res.Error)
}

func TestMapWallet(t *testing.T) {
	srv := backendtest.New(t)
	l := newLedger(srv.URL)

	res := l.MapWallet(context.Background(), "alice", sender)
	assert.True(t, res.Success)
	assert.Equal(t, sender, srv.Mapping("alice"))
}
