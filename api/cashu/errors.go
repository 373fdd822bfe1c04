package cashu

import (
	"errors"
	"log/slog"
)

var (
	ErrMeltAlreadyPaid            = errors.New("melt already paid")
	ErrQuoteIsPending             = errors.New("quote is pending")
	ErrUnitNotSupported           = errors.New("unit not supported")
	ErrDifferentInputOutputUnit   = errors.New("different input output unit")
	ErrNotEnoughtProofs           = errors.New("not enough proofs")
	ErrProofSpent                 = errors.New("proof already spent")
	ErrBlindMessageAlreadySigned  = errors.New("blind message already signed")
	ErrCommonSecretNotCorrectSize = errors.New("proof secret is not correct size")
	ErrUnknown                    = errors.New("unknown error")
	ErrPaymentFailed              = errors.New("lightning payment failed")
	ErrPaymentNoRoute             = errors.New("no route found for payment")
)

// ErrorCode is the numeric error code sent in an ErrorResponse, per the
// NUT error code registry.
type ErrorCode uint

const (
	PROOF_VERIFICATION_FAILED ErrorCode = 10003

	PROOF_ALREADY_SPENT         ErrorCode = 11001
	PROOFS_PENDING              ErrorCode = 11013
	OUTPUTS_ALREADY_SIGNED      ErrorCode = 11003
	OUTPUTS_PENDING             ErrorCode = 11004
	TRANSACTION_NOT_BALANCED    ErrorCode = 11002
	INSUFICIENT_FEE             ErrorCode = 11006
	DUPLICATE_INPUTS            ErrorCode = 11007
	DUPLICATE_OUTPUTS           ErrorCode = 11008
	MULTIPLE_UNITS_OUTPUT_INPUT ErrorCode = 11009
	INPUT_OUTPUT_NOT_SAME_UNIT  ErrorCode = 11010
	UNIT_NOT_SUPPORTED          ErrorCode = 11005

	KEYSET_NOT_KNOW ErrorCode = 12001
	INACTIVE_KEYSET ErrorCode = 12002

	REQUEST_NOT_PAID         ErrorCode = 20001
	QUOTE_ALREADY_ISSUED     ErrorCode = 20002
	MINTING_DISABLED         ErrorCode = 20003
	LIGHTNING_PAYMENT_FAILED ErrorCode = 20004
	QUOTE_PENDING            ErrorCode = 20005
	INVOICE_ALREADY_PAID     ErrorCode = 20006

	MINT_QUOTE_INVALID_SIG     ErrorCode = 20008
	MINT_QUOTE_INVALID_PUB_KEY ErrorCode = 20009

	ENDPOINT_REQUIRES_CLEAR_AUTH ErrorCode = 30001
	CLEAR_AUTH_FAILED            ErrorCode = 30002

	ENDPOINT_REQUIRES_BLIND_AUTH    ErrorCode = 31001
	BLIND_AUTH_FAILED               ErrorCode = 31002
	MAXIMUM_BAT_MINT_LIMIT_EXCEEDED ErrorCode = 31003
	MAXIMUM_BAT_RATE_LIMIT_EXCEEDED ErrorCode = 31004

	UNKNOWN ErrorCode = 99999
)

// errorCodeMessages holds the human-readable message for every ErrorCode
// that carries one; codes absent from this map stringify to "".
var errorCodeMessages = map[ErrorCode]string{
	PROOF_VERIFICATION_FAILED: "Proof could not be verified",

	PROOF_ALREADY_SPENT:         "Proof is already spent",
	PROOFS_PENDING:              "Proofs are pending",
	OUTPUTS_ALREADY_SIGNED:      "Blinded message of output already signed",
	OUTPUTS_PENDING:             "Outputs are pending",
	TRANSACTION_NOT_BALANCED:    "Transaction is not balanced (inputs != outputs)",
	INSUFICIENT_FEE:             "Insufficient fee",
	DUPLICATE_INPUTS:            "Duplicate inputs provided",
	DUPLICATE_OUTPUTS:           "Duplicate outputs provided",
	MULTIPLE_UNITS_OUTPUT_INPUT: "Inputs/Outputs of multiple units",
	INPUT_OUTPUT_NOT_SAME_UNIT:  "Inputs and outputs are not same unit",
	UNIT_NOT_SUPPORTED:          "Unit in request is not supported",

	KEYSET_NOT_KNOW: "Keyset is not known",
	INACTIVE_KEYSET: "Keyset is inactive, cannot sign messages",

	REQUEST_NOT_PAID:         "Quote request is not paid",
	QUOTE_ALREADY_ISSUED:     "Tokens have already been issued for quote",
	MINTING_DISABLED:         "Minting is disabled",
	LIGHTNING_PAYMENT_FAILED: "Lightning payment failed",
	QUOTE_PENDING:            "Quote is pending",
	INVOICE_ALREADY_PAID:     "Invoice already paid",

	MINT_QUOTE_INVALID_SIG:     "No valid signature was provided",
	MINT_QUOTE_INVALID_PUB_KEY: "No public key for mint quote",

	ENDPOINT_REQUIRES_CLEAR_AUTH: "Endpoint requires clear auth",
	CLEAR_AUTH_FAILED:            "Clear authentification failed",

	ENDPOINT_REQUIRES_BLIND_AUTH:    "Endpoint requires blind auth",
	BLIND_AUTH_FAILED:               "Blind authentification failed",
	MAXIMUM_BAT_MINT_LIMIT_EXCEEDED: "Maximum Blind auth token amounts execeeded",
	MAXIMUM_BAT_RATE_LIMIT_EXCEEDED: "Maximum BAT rate limit execeeded",
}

func (e ErrorCode) String() string {
	return errorCodeMessages[e]
}

type ErrorResponse struct {
	// integer code
	Code ErrorCode `json:"code"`
	// Human readable error
	Error string `json:"error,omitempty"`
	// Extended explanation of error
	Detail *string `json:"detail,omitempty"`
}

func ErrorCodeToResponse(code ErrorCode, detail *string) ErrorResponse {
	slog.Debug("responding with mint error", slog.Uint64("code", uint64(code)))
	return ErrorResponse{
		Code:   code,
		Error:  code.String(),
		Detail: detail,
	}
}
