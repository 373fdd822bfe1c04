package mint

import (
	"fmt"

	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/utils"
)

func (m *Mint) GetChangeOutput(messages []cashu.BlindedMessage, overPaidFees uint64, unit string) ([]cashu.RecoverSigDB, error) {
	if overPaidFees > 0 && len(messages) > 0 {

		change := utils.GetChangeOutput(overPaidFees, messages)

		_, recoverySigsDb, err := m.Signer.SignBlindMessages(change)

		if err != nil {
			return recoverySigsDb, fmt.Errorf("m.Signer.SignBlindMessages(change). %w", err)
		}

		return recoverySigsDb, nil

	}
	return []cashu.RecoverSigDB{}, nil

}
