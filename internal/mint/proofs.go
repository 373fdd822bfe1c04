package mint

import (
	"context"
	"fmt"

	"github.com/SparrowTek/cashu-mint/api/cashu"
)

func CheckProofState(mint *Mint, Ys []string) ([]cashu.CheckState, error) {
	var states []cashu.CheckState

	Ypoints := make([]cashu.WrappedPublicKey, 0, len(Ys))
	for _, y := range Ys {
		parsed, err := cashu.ParseWrappedPublicKey(y)
		if err != nil {
			return states, fmt.Errorf("cashu.ParseWrappedPublicKey(y). %w", err)
		}
		Ypoints = append(Ypoints, parsed)
	}

	ctx := context.Background()
	tx, err := mint.MintDB.GetTx(ctx)
	if err != nil {
		return states, fmt.Errorf("mint.MintDB.GetTx(). %w", err)
	}
	defer mint.MintDB.Rollback(ctx, tx)

	proofs, err := mint.MintDB.GetProofsFromSecretCurve(tx, Ypoints)
	if err != nil {
		return states, fmt.Errorf("mint.MintDB.GetProofsFromSecretCurve(tx, Ypoints). %w", err)
	}

	knownProofs := make(map[string]cashu.Proof, len(proofs))
	for _, proof := range proofs {
		knownProofs[proof.Y.ToHex()] = proof
	}

	for _, y := range Ys {
		checkState := cashu.CheckState{
			Y:       y,
			State:   cashu.PROOF_UNSPENT,
			Witness: nil,
		}

		if proof, known := knownProofs[y]; known {
			if proof.Witness != "" {
				checkState.Witness = &proof.Witness
			}
			checkState.State = proof.State
		}

		states = append(states, checkState)
	}

	return states, nil
}
