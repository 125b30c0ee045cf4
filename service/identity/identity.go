package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/pandodao/paybridge/core"
)

func New(client *resty.Client, logger *slog.Logger) core.IdentityService {
	return &service{
		client: client,
		logger: logger.With("service", "identity"),
	}
}

type service struct {
	client *resty.Client
	logger *slog.Logger
}

type lookupResponse struct {
	WalletAddress string `json:"wallet_address"`
}

// IsAddress reports whether s is a 0x prefixed 20 byte hex address.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// ResolveAddress is never cached; mappings may change and a stale one would
// misroute funds.
func (s *service) ResolveAddress(ctx context.Context, identifier string) (string, error) {
	if IsAddress(identifier) {
		return identifier, nil
	}

	if !govalidator.IsEmail(identifier) {
		return "", core.ErrInvalidEmail.WithMsg("%q is neither an address nor an email", identifier)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("email", identifier).
		Get("/users/lookup")
	if err != nil {
		s.logger.Error("lookup", "email", identifier, "err", err)
		return "", core.ErrBackend.Wrap(err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return "", core.ErrIdentity.WithMsg("no wallet mapped to %s", identifier)
	case resp.IsError():
		s.logger.Error("lookup", "email", identifier, "status", resp.StatusCode())
		return "", core.ErrBackend.WithMsg("identity lookup returned %d", resp.StatusCode())
	}

	var body lookupResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", core.ErrBackend.Wrap(err)
	}

	if !IsAddress(body.WalletAddress) {
		return "", core.ErrIdentity.WithMsg("no wallet mapped to %s", identifier)
	}

	return body.WalletAddress, nil
}
