package mockdb

import (
	"github.com/SparrowTek/cashu-mint/api/cashu"
	"github.com/SparrowTek/cashu-mint/internal/database"
)

func (m MockDB) GetMintMeltBalanceByTime(time int64) (database.MintMeltBalance, error) {
	var mintmeltbalance database.MintMeltBalance

	for i := 0; i < len(m.MeltRequest); i++ {
		if m.MeltRequest[i].State == cashu.ISSUED || m.MeltRequest[i].State == cashu.PAID {
			mintmeltbalance.Melt = append(mintmeltbalance.Melt, m.MeltRequest[i])

		}

	}

	for j := 0; j < len(m.MintRequest); j++ {
		if m.MintRequest[j].State == cashu.ISSUED || m.MintRequest[j].State == cashu.PAID {
			mintmeltbalance.Mint = append(mintmeltbalance.Mint, m.MintRequest[j])

		}

	}
	return mintmeltbalance, nil
}
