package payment

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/service/identity"
	"github.com/shopspring/decimal"
)

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return core.ErrMissingField.WithMsg("%s is required", name)
	}

	return nil
}

func validAddress(name, value string) error {
	if err := required(name, value); err != nil {
		return err
	}

	if !identity.IsAddress(value) {
		return core.ErrInvalidAddress.WithMsg("%s: %q is not a wallet address", name, value)
	}

	return nil
}

func validEmail(name, value string) error {
	if err := required(name, value); err != nil {
		return err
	}

	if !govalidator.IsEmail(value) {
		return core.ErrInvalidEmail.WithMsg("%s: %q is not an email", name, value)
	}

	return nil
}

func distinct(a, b string) error {
	if strings.EqualFold(a, b) {
		return core.ErrSameParty
	}

	return nil
}

// Amounts are plain decimals. Exponent notation would let a short input
// scale into an arbitrarily large integer.
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

const maxAmountLength = 64

// parseAmount parses an ETH decimal string into its wei value. The amount
// must be positive, a whole number of wei and not above ceiling when ceiling
// is positive.
func parseAmount(value string, ceiling decimal.Decimal) (decimal.Decimal, *big.Int, error) {
	if err := required("amountEth", value); err != nil {
		return decimal.Zero, nil, err
	}

	value = strings.TrimSpace(value)
	if len(value) > maxAmountLength || !amountPattern.MatchString(value) {
		return decimal.Zero, nil, core.ErrInvalidAmount.WithMsg("%.32q is not a plain decimal number", value)
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, nil, core.ErrInvalidAmount.WithMsg("%q is not a number", value)
	}

	if !amount.IsPositive() {
		return decimal.Zero, nil, core.ErrInvalidAmount
	}

	if !amount.Shift(core.EtherDecimals).IsInteger() {
		return decimal.Zero, nil, core.ErrInvalidAmount.WithMsg("amount is below 1 wei precision")
	}

	if ceiling.IsPositive() && amount.GreaterThan(ceiling) {
		return decimal.Zero, nil, core.ErrAmountTooLarge.WithMsg("amount exceeds %s ETH", ceiling)
	}

	return amount, core.ToWei(amount), nil
}

func (s *Service) validMemo(memo string) error {
	if s.cfg.MaxMemoLength > 0 && len([]rune(memo)) > s.cfg.MaxMemoLength {
		return core.ErrMemoTooLong.WithMsg("memo exceeds %d characters", s.cfg.MaxMemoLength)
	}

	return nil
}
