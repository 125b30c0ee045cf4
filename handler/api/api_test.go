package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pandodao/paybridge/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "0x1111111111111111111111111111111111111111"

type payments struct {
	core.PaymentService
	err  error
	args []string
}

func (p *payments) CreateWallet(ctx context.Context, ownerID string) (*core.CreatedWallet, error) {
	p.args = []string{ownerID}
	if p.err != nil {
		return nil, p.err
	}

	return &core.CreatedWallet{Address: addr, FundingEligible: true, Mapping: core.RecordResult{Success: true}}, nil
}

func (p *payments) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	p.args = []string{address}
	return decimal.RequireFromString("1.5"), p.err
}

func (p *payments) BonusEligible(ctx context.Context, address string) (bool, error) {
	p.args = []string{address}
	return false, p.err
}

func (p *payments) payment() (*core.Payment, error) {
	if p.err != nil {
		return nil, p.err
	}

	return &core.Payment{TransactionID: "tx_1_abcdef12", TxHash: "0xhash", Status: core.PaymentStatusSubmitted, RecordsCreated: 2}, nil
}

func (p *payments) Faucet(ctx context.Context, toWallet, amount, fromWallet string) (*core.Payment, error) {
	p.args = []string{toWallet, amount, fromWallet}
	return p.payment()
}

func (p *payments) EmailToEmail(ctx context.Context, fromEmail, toEmail, amount, memo string) (*core.Payment, error) {
	p.args = []string{fromEmail, toEmail, amount, memo}
	return p.payment()
}

func (p *payments) WalletToWallet(ctx context.Context, fromWallet, toWallet, amount, memo string) (*core.Payment, error) {
	p.args = []string{fromWallet, toWallet, amount, memo}
	return p.payment()
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, r))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func newHandler(p *payments) http.Handler {
	return New(p, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func TestRoutes(t *testing.T) {
	p := &payments{}
	h := newHandler(p)

	code, resp := do(t, h, http.MethodPost, "/wallet/create", `{"ownerId":"u1"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, addr, resp["address"])
	assert.Equal(t, true, resp["fundingEligible"])
	assert.Equal(t, []string{"u1"}, p.args)

	code, resp = do(t, h, http.MethodGet, "/wallet/balance/"+addr, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.5", resp["balance"])
	assert.Equal(t, []string{addr}, p.args)

	code, resp = do(t, h, http.MethodGet, "/wallet/bonus-eligible/"+addr, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["eligible"])

	code, resp = do(t, h, http.MethodPost, "/payment/faucet", `{"toWallet":"`+addr+`","amountEth":"1.0"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "submitted", resp["status"])
	assert.Equal(t, "0xhash", resp["txHash"])
	assert.Equal(t, "tx_1_abcdef12", resp["transactionId"])
	assert.Equal(t, []string{addr, "1.0", ""}, p.args)

	code, resp = do(t, h, http.MethodPost, "/payment/email-to-email", `{"fromEmail":"a@x.io","toEmail":"b@x.io","amountEth":"2","memo":"hi"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, resp["recordsCreated"])
	assert.Equal(t, []string{"a@x.io", "b@x.io", "2", "hi"}, p.args)

	code, _ = do(t, h, http.MethodPost, "/payment/wallet-to-wallet", `{"fromWallet":"a","toWallet":"b","amountEth":"3"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"a", "b", "3", ""}, p.args)
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Validation", core.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
		{"Insufficient", core.ErrInsufficient.WithMsg("low"), http.StatusBadRequest, "insufficient_balance"},
		{"Identity", core.ErrIdentity, http.StatusNotFound, "identity_not_found"},
		{"AlreadyFunded", core.ErrAlreadyFunded, http.StatusTooManyRequests, "already_funded"},
		{"Submission", core.ErrSubmission.Wrap(errors.New("nonce too low")), http.StatusInternalServerError, "submission_failed"},
		{"Backend", core.ErrBackend, http.StatusBadGateway, "backend_unavailable"},
		{"Unknown", errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(&payments{err: tc.err})

			code, resp := do(t, h, http.MethodPost, "/payment/wallet-to-wallet", `{}`)
			assert.Equal(t, tc.status, code)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tc.code, resp["error"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestErrors_SubmissionReason(t *testing.T) {
	h := newHandler(&payments{err: core.ErrSubmission.Wrap(errors.New("nonce too low"))})

	_, resp := do(t, h, http.MethodPost, "/payment/faucet", `{}`)
	assert.Contains(t, resp["message"], "nonce too low")
}

func TestInvalidBody(t *testing.T) {
	p := &payments{}
	h := newHandler(p)

	code, resp := do(t, h, http.MethodPost, "/wallet/create", `{"ownerId":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_body", resp["error"])
	assert.Nil(t, p.args)
}
