package core

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	_ ErrorKind = iota
	KindValidation
	KindIdentityNotFound
	KindInsufficientBalance
	KindSubmission
	KindSettlementTimeout
	KindBackendUnavailable
	KindAlreadyFunded
)

var kindNames = map[ErrorKind]string{
	KindValidation:          "ValidationError",
	KindIdentityNotFound:    "IdentityNotFound",
	KindInsufficientBalance: "InsufficientBalance",
	KindSubmission:          "SubmissionError",
	KindSettlementTimeout:   "SettlementTimeout",
	KindBackendUnavailable:  "BackendUnavailable",
	KindAlreadyFunded:       "AlreadyFunded",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error carries a kind for status mapping and a code that is unique per
// rejection reason.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Kind == e.Kind
}

func (e *Error) WithMsg(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Msg: fmt.Sprintf(format, args...), Err: e.Err}
}

func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Msg: e.Msg, Err: err}
}

func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

var (
	ErrInvalidBody     = &Error{Kind: KindValidation, Code: "invalid_body", Msg: "malformed request body"}
	ErrMissingField    = &Error{Kind: KindValidation, Code: "missing_field", Msg: "missing required field"}
	ErrInvalidAmount   = &Error{Kind: KindValidation, Code: "invalid_amount", Msg: "amount must be a positive number"}
	ErrAmountTooLarge  = &Error{Kind: KindValidation, Code: "amount_exceeds_limit", Msg: "amount exceeds per-request limit"}
	ErrSameParty       = &Error{Kind: KindValidation, Code: "same_party", Msg: "sender and receiver are identical"}
	ErrInvalidAddress  = &Error{Kind: KindValidation, Code: "invalid_address", Msg: "malformed wallet address"}
	ErrInvalidEmail    = &Error{Kind: KindValidation, Code: "invalid_email", Msg: "malformed email"}
	ErrMemoTooLong     = &Error{Kind: KindValidation, Code: "memo_too_long", Msg: "memo too long"}
	ErrKeyNotFound     = &Error{Kind: KindValidation, Code: "key_not_found", Msg: "no custody key for address"}
	ErrNoCustodian     = &Error{Kind: KindInsufficientBalance, Code: "no_custodian", Msg: "no funding wallet can cover amount"}
	ErrIdentity        = &Error{Kind: KindIdentityNotFound, Code: "identity_not_found", Msg: "identity not found"}
	ErrInsufficient    = &Error{Kind: KindInsufficientBalance, Code: "insufficient_balance", Msg: "insufficient balance"}
	ErrSubmission      = &Error{Kind: KindSubmission, Code: "submission_failed", Msg: "chain rejected transaction"}
	ErrSettlement      = &Error{Kind: KindSettlementTimeout, Code: "watch_timeout", Msg: "watch timeout"}
	ErrBackend         = &Error{Kind: KindBackendUnavailable, Code: "backend_unavailable", Msg: "backend unavailable"}
	ErrChain           = &Error{Kind: KindBackendUnavailable, Code: "chain_unavailable", Msg: "chain node unavailable"}
	ErrAlreadyFunded   = &Error{Kind: KindAlreadyFunded, Code: "already_funded", Msg: "address already received bootstrap funds"}
	ErrReceiptNotFound = errors.New("receipt not found")
)
