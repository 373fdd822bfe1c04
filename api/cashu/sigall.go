package cashu

import "fmt"

// validateSigAllInputs runs the SIG_ALL consistency and signature-threshold
// check shared by swap and melt requests: every input must carry the same
// spend-condition data/tags, and the witness on the first input must carry
// enough valid signatures over msg to satisfy n_sigs. msg differs between
// the two callers (melt binds the quote id to the message, swap doesn't),
// so it's built by the caller and passed in rather than derived here.
func validateSigAllInputs(inputs Proofs, msg string) error {
	sigFlagValidation, err := resolveSigAllRequirement(inputs)
	if err != nil {
		return fmt.Errorf("resolveSigAllRequirement(inputs). %w", err)
	}
	if sigFlagValidation.sigFlag != SigAll {
		return nil
	}

	firstSpendCondition, err := inputs[0].parseSpendCondition()
	if err != nil {
		return fmt.Errorf("inputs[0].parseSpendCondition(). %w", err)
	}
	firstWitness, err := inputs[0].parseWitness()
	if err != nil {
		return fmt.Errorf("inputs[0].parseWitness(). %w", err)
	}
	if firstSpendCondition == nil || firstWitness == nil {
		return ErrInvalidSpendCondition
	}
	if firstWitness.Signatures == nil {
		return ErrNoValidSignatures
	}

	for _, proof := range inputs {
		spendCondition, err := proof.parseSpendCondition()
		if err != nil {
			return fmt.Errorf("proof.parseSpendCondition(). %w", err)
		}

		if spendCondition.Data.Data != firstSpendCondition.Data.Data {
			return fmt.Errorf("not same data field %w", ErrInvalidSpendCondition)
		}
		if string(spendCondition.Data.Tags.originalTag) != string(firstSpendCondition.Data.Tags.originalTag) {
			return fmt.Errorf("not same tags %w", ErrInvalidSpendCondition)
		}
	}

	pubkeys, err := inputs[0].Pubkeys()
	if err != nil {
		return fmt.Errorf("inputs[0].Pubkeys(). %w", err)
	}

	amountOfSigs, err := checkValidSignature(msg, pubkeys, firstWitness.Signatures)
	if err != nil {
		return err
	}

	// n_sigs defaults to 1 when no input sets it
	signaturesRequired := sigFlagValidation.signaturesRequired
	if signaturesRequired == 0 {
		signaturesRequired = 1
	}
	if amountOfSigs >= signaturesRequired {
		return nil
	}

	return ErrNotEnoughSignatures
}
