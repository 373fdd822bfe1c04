package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/SparrowTek/cashu-mint/api/cashu"
)

func ParseVerifyProofError(proofError error) (cashu.ErrorCode, *string) {
	switch {
	case errors.Is(proofError, cashu.ErrEmptyWitness):

		message := "Empty Witness"
		return cashu.UNKNOWN, &message
	case errors.Is(proofError, cashu.ErrNoValidSignatures):
		return cashu.PROOF_VERIFICATION_FAILED, nil
	case errors.Is(proofError, cashu.ErrNotEnoughSignatures):
		return cashu.PROOF_VERIFICATION_FAILED, nil
	case errors.Is(proofError, cashu.ErrLocktimePassed):
		message := cashu.ErrLocktimePassed.Error()
		return cashu.UNKNOWN, &message
	case errors.Is(proofError, cashu.ErrInvalidPreimage):
		message := cashu.ErrInvalidPreimage.Error()
		return cashu.UNKNOWN, &message
	}

	return cashu.PROOF_VERIFICATION_FAILED, nil

}

// ParseErrorToCashuErrorCode maps an error returned by the mint's internal
// logic to the cashu.ErrorCode the HTTP layer should report, following the
// same errors.Is() dispatch ParseVerifyProofError uses for spend condition
// failures but covering the wider set of errors a mint/melt/swap request
// can fail with.
func ParseErrorToCashuErrorCode(err error) (cashu.ErrorCode, *string) {
	switch {
	case errors.Is(err, cashu.ErrEmptyWitness),
		errors.Is(err, cashu.ErrNoValidSignatures),
		errors.Is(err, cashu.ErrNotEnoughSignatures),
		errors.Is(err, cashu.ErrLocktimePassed),
		errors.Is(err, cashu.ErrInvalidPreimage),
		errors.Is(err, cashu.ErrInvalidHexPreimage),
		errors.Is(err, cashu.ErrInvalidSpendCondition),
		errors.Is(err, cashu.ErrCouldNotParseSpendCondition),
		errors.Is(err, cashu.ErrCouldNotParseWitness),
		errors.Is(err, cashu.ErrInvalidProof):
		return cashu.PROOF_VERIFICATION_FAILED, nil

	case errors.Is(err, cashu.ErrProofSpent):
		return cashu.PROOF_ALREADY_SPENT, nil

	case errors.Is(err, cashu.ErrBlindMessageAlreadySigned):
		return cashu.OUTPUTS_ALREADY_SIGNED, nil

	case errors.Is(err, cashu.ErrUnbalanced):
		return cashu.TRANSACTION_NOT_BALANCED, nil

	case errors.Is(err, cashu.ErrNotEnoughtProofs):
		return cashu.INSUFICIENT_FEE, nil

	case errors.Is(err, cashu.ErrNotSameUnits), errors.Is(err, cashu.ErrDifferentInputOutputUnit):
		return cashu.MULTIPLE_UNITS_OUTPUT_INPUT, nil

	case errors.Is(err, cashu.ErrUnitNotSupported), errors.Is(err, cashu.ErrCouldNotParseUnitString), errors.Is(err, cashu.ErrCouldNotConvertUnit):
		return cashu.UNIT_NOT_SUPPORTED, nil

	case errors.Is(err, cashu.ErrKeysetNotFound), errors.Is(err, cashu.ErrKeysetForProofNotFound):
		return cashu.KEYSET_NOT_KNOW, nil

	case errors.Is(err, cashu.UsingInactiveKeyset):
		return cashu.INACTIVE_KEYSET, nil

	case errors.Is(err, cashu.ErrMeltAlreadyPaid):
		return cashu.INVOICE_ALREADY_PAID, nil

	case errors.Is(err, cashu.ErrQuoteIsPending):
		return cashu.QUOTE_PENDING, nil

	case errors.Is(err, cashu.ErrQuoteNotPaid):
		return cashu.REQUEST_NOT_PAID, nil

	case errors.Is(err, cashu.ErrPaymentFailed):
		return cashu.LIGHTNING_PAYMENT_FAILED, nil
	}

	message := err.Error()
	return cashu.UNKNOWN, &message
}

func GetChangeOutput(overpaidFees uint64, outputs []cashu.BlindedMessage) []cashu.BlindedMessage {
	amounts := cashu.AmountSplit(overpaidFees)
	// if there are more outputs then amount to change.
	// we size down the total amount of blind messages
	switch {
	case len(amounts) > len(outputs):
		for i := range outputs {
			outputs[i].Amount = amounts[i]
		}

	default:
		outputs = outputs[:len(amounts)]

		for i := range outputs {
			outputs[i].Amount = amounts[i]
		}

	}
	return outputs
}

// Sets some values being used by the mint like seen, secretY, seen, and pending state
func GetAndCalculateProofsValues(proofs *cashu.Proofs) (uint64, []cashu.WrappedPublicKey, error) {
	now := time.Now().Unix()
	var totalAmount uint64
	var YValues []cashu.WrappedPublicKey
	for i, proof := range *proofs {
		totalAmount += proof.Amount

		p, err := proof.HashSecretToCurve()

		if err != nil {
			return 0, YValues, fmt.Errorf("proof.HashSecretToCurve(). %w", err)
		}
		(*proofs)[i] = p
		(*proofs)[i].SeenAt = now
		YValues = append(YValues, p.Y)
	}

	return totalAmount, YValues, nil
}
