package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/asaskevich/govalidator"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pandodao/paybridge/core"
	"github.com/shopspring/decimal"
)

type Config struct {
	Currency    string `valid:"required"`
	NetworkMode string `valid:"required"`
}

func New(client *resty.Client, logger *slog.Logger, cfg Config) *Service {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	applied, err := lru.New[string, core.RecordStatus](4096)
	if err != nil {
		panic(err)
	}

	return &Service{
		client:  client,
		logger:  logger.With("service", "ledger"),
		cfg:     cfg,
		applied: applied,
	}
}

// Service records payments in the backend. Failures are reported in the
// result and never returned as errors; the chain stays the source of truth.
type Service struct {
	client *resty.Client
	logger *slog.Logger
	cfg    Config
	// terminal statuses already written, by tx hash
	applied *lru.Cache[string, core.RecordStatus]
}

type createResponse struct {
	ID string `json:"id"`
}

func (s *Service) CreateRecord(ctx context.Context, record *core.Record) core.RecordResult {
	if record.CurrencySymbol == "" {
		record.CurrencySymbol = s.cfg.Currency
	}

	if record.NetworkMode == "" {
		record.NetworkMode = s.cfg.NetworkMode
	}

	logger := s.logger.With("transaction", record.TransactionID)

	resp, err := s.client.R().SetContext(ctx).SetBody(record).Post("/transactions")
	if err != nil {
		logger.Error("create record", "err", err)
		return failed(err)
	}

	if resp.IsError() {
		logger.Error("create record", "status", resp.StatusCode(), "body", resp.String())
		return failed(fmt.Errorf("backend returned %d", resp.StatusCode()))
	}

	var body createResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		logger.Error("create record: decode", "err", err)
		return failed(fmt.Errorf("malformed backend response: %w", err))
	}

	if body.ID == "" {
		return failed(fmt.Errorf("backend returned no record id"))
	}

	record.ID = body.ID
	return core.RecordResult{Success: true, RecordID: body.ID}
}

type updateRequest struct {
	Status      core.RecordStatus `json:"status"`
	ChainTxHash string            `json:"chain_txhash"`
	core.RecordUpdate
}

// UpdateStatus is idempotent for terminal statuses: repeating one, or sending
// an older status after it, is skipped and reported as success.
func (s *Service) UpdateStatus(ctx context.Context, txHash string, status core.RecordStatus, update core.RecordUpdate) core.RecordResult {
	if prev, ok := s.applied.Get(txHash); ok {
		s.logger.Debug("status already final", "hash", txHash, "status", prev, "requested", status)
		return core.RecordResult{Success: true}
	}

	logger := s.logger.With("hash", txHash, "status", status)

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(updateRequest{Status: status, ChainTxHash: txHash, RecordUpdate: update}).
		Patch("/transactions/by-hash/" + url.PathEscape(txHash))
	if err != nil {
		logger.Error("update status", "err", err)
		return failed(err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		logger.Warn("update status: no record for hash")
		return core.RecordResult{Missing: true, Error: "no record for hash"}
	}

	if resp.IsError() {
		logger.Error("update status", "code", resp.StatusCode(), "body", resp.String())
		return failed(fmt.Errorf("backend returned %d", resp.StatusCode()))
	}

	if status.Terminal() {
		s.applied.Add(txHash, status)
	}

	return core.RecordResult{Success: true}
}

// CreateDualRecords creates the sender and receiver records independently and
// returns the ones the backend accepted.
func (s *Service) CreateDualRecords(ctx context.Context, sender, receiver string, amount decimal.Decimal, memo, logicalID string) []*core.Record {
	base := core.Record{
		FromAddress: sender,
		ToAddress:   receiver,
		Amount:      amount,
		Status:      core.RecordStatusPending,
		Memo:        memo,
	}

	out := base
	out.TransactionID = logicalID + "_sender"
	out.WalletAddress = sender
	out.Type = core.RecordTypeSend
	out.Direction = core.DirectionOutbound

	in := base
	in.TransactionID = logicalID + "_receiver"
	in.WalletAddress = receiver
	in.Type = core.RecordTypeReceive
	in.Direction = core.DirectionInbound

	var records []*core.Record
	for _, r := range []*core.Record{&out, &in} {
		if res := s.CreateRecord(ctx, r); res.Success {
			records = append(records, r)
		}
	}

	return records
}

type mappingRequest struct {
	OwnerID       string `json:"owner_id"`
	WalletAddress string `json:"wallet_address"`
}

func (s *Service) MapWallet(ctx context.Context, ownerID, address string) core.RecordResult {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(mappingRequest{OwnerID: ownerID, WalletAddress: address}).
		Post("/wallets/mapping")
	if err != nil {
		s.logger.Error("map wallet", "owner", ownerID, "err", err)
		return failed(err)
	}

	if resp.IsError() {
		s.logger.Error("map wallet", "owner", ownerID, "status", resp.StatusCode())
		return failed(fmt.Errorf("backend returned %d", resp.StatusCode()))
	}

	var body createResponse
	_ = json.Unmarshal(resp.Body(), &body)
	return core.RecordResult{Success: true, RecordID: body.ID}
}

func failed(err error) core.RecordResult {
	return core.RecordResult{Success: false, Error: err.Error()}
}
