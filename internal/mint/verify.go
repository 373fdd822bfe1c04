package mint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/SparrowTek/cashu-mint/api/cashu"
)

// VerifyUnitSupport checks that unit is a unit this mint's signer knows how
// to mint/melt with and that the configured lightning backend can settle it.
func (m *Mint) VerifyUnitSupport(unit string) error {
	parsedUnit, err := cashu.UnitFromString(unit)
	if err != nil {
		return fmt.Errorf("cashu.UnitFromString(unit). %w", err)
	}

	if !m.LightningBackend.VerifyUnitSupport(parsedUnit) {
		return cashu.ErrUnitNotSupported
	}

	return nil
}

// VerifyOutputs checks that every blinded message references a known keyset
// and that all outputs share a single unit, returning that unit.
func (m *Mint) VerifyOutputs(outputs []cashu.BlindedMessage, keys []cashu.BasicKeysetResponse) (cashu.Unit, error) {
	seenKeys := make(map[string]cashu.BasicKeysetResponse, len(keys))
	for _, v := range keys {
		seenKeys[v.Id] = v
	}

	units := make(map[string]bool)
	for _, output := range outputs {
		keyset, exists := seenKeys[output.Id]
		if !exists {
			return cashu.Sat, cashu.ErrKeysetForProofNotFound
		}
		if !keyset.Active {
			return cashu.Sat, cashu.UsingInactiveKeyset
		}

		units[keyset.Unit] = true
		if len(units) > 1 {
			return cashu.Sat, cashu.ErrNotSameUnits
		}
	}

	if len(units) == 0 {
		return cashu.Sat, cashu.ErrUnitNotSupported
	}

	var returnedUnit cashu.Unit
	for unit := range units {
		parsedUnit, err := cashu.UnitFromString(unit)
		if err != nil {
			return cashu.Sat, fmt.Errorf("cashu.UnitFromString(unit). %w", err)
		}
		returnedUnit = parsedUnit
	}

	return returnedUnit, nil
}

// VerifyProofsBDHKE checks the BDHKE signature of every input proof against
// this mint's keysets.
func (m *Mint) VerifyProofsBDHKE(proofs cashu.Proofs) error {
	err := m.Signer.VerifyProofs(proofs)
	if err != nil {
		return fmt.Errorf("m.Signer.VerifyProofs(proofs). %w", err)
	}

	return nil
}

// VerifyProofsSpendConditions checks every input proof's P2PK/HTLC spending
// condition individually. Used on the non SIG_ALL path, where each proof
// carries its own witness instead of a single signature over the whole
// request.
func (m *Mint) VerifyProofsSpendConditions(proofs cashu.Proofs) error {
	for _, proof := range proofs {
		isLocked, spendCondition, err := proof.IsProofSpendConditioned()
		if err != nil {
			return fmt.Errorf("proof.IsProofSpendConditioned(). %w", err)
		}
		if !isLocked || spendCondition == nil {
			continue
		}

		var valid bool
		switch spendCondition.Type {
		case cashu.P2PK:
			valid, err = proof.VerifyP2PK(spendCondition)
		case cashu.HTLC:
			valid, err = proof.VerifyHTLC(spendCondition)
		default:
			return cashu.ErrInvalidSpendCondition
		}

		if err != nil {
			return fmt.Errorf("proof spend condition verification. %w", err)
		}
		if !valid {
			return cashu.ErrNoValidSignatures
		}
	}

	return nil
}

// VerifyInputsAndOutputs checks that inputs and outputs share a unit and that
// the input amount covers the output amount plus the mint's fees. BDHKE and
// spend condition verification happen separately before this is called.
func (m *Mint) VerifyInputsAndOutputs(tx pgx.Tx, inputs cashu.Proofs, outputs []cashu.BlindedMessage) error {
	keysets, err := m.Signer.GetKeysets()
	if err != nil {
		return fmt.Errorf("m.Signer.GetKeysets(). %w", err)
	}

	inputUnit, err := m.CheckProofsAreSameUnit(inputs, keysets.Keysets)
	if err != nil {
		return fmt.Errorf("m.CheckProofsAreSameUnit(inputs, keysets.Keysets). %w", err)
	}

	outputUnit, err := m.VerifyOutputs(outputs, keysets.Keysets)
	if err != nil {
		return fmt.Errorf("m.VerifyOutputs(outputs, keysets.Keysets). %w", err)
	}

	if inputUnit != outputUnit {
		return cashu.ErrDifferentInputOutputUnit
	}

	fee, err := cashu.Fees(inputs, keysets.Keysets)
	if err != nil {
		return fmt.Errorf("cashu.Fees(inputs, keysets.Keysets). %w", err)
	}

	inputAmount := inputs.Amount()
	var outputAmount uint64
	for _, output := range outputs {
		outputAmount += output.Amount
	}

	if inputAmount != outputAmount+uint64(fee) {
		return cashu.ErrUnbalanced
	}

	return nil
}

// IsInternalTransaction reports whether request matches a bolt11 invoice
// this same mint previously issued for a mint quote, meaning a melt against
// it can be settled internally instead of going out over lightning.
func (m *Mint) IsInternalTransaction(request string) (bool, error) {
	ctx := context.Background()
	tx, err := m.MintDB.GetTx(ctx)
	if err != nil {
		return false, fmt.Errorf("m.MintDB.GetTx(ctx). %w", err)
	}
	defer m.MintDB.Rollback(ctx, tx)

	mintRequest, err := m.MintDB.GetMintRequestByRequest(tx, request)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("m.MintDB.GetMintRequestByRequest(tx, request). %w", err)
	}

	return mintRequest.Request == request, nil
}
