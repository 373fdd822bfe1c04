package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type activitySummary struct {
	Since        int64  `json:"since"`
	MintRequests int     `json:"mint_requests"`
	MeltRequests int     `json:"melt_requests"`
	Issued       uint64  `json:"issued"`
	Melted       uint64  `json:"melted"`
	ProofsHeld   uint64  `json:"proofs_held"`
	SigsIssued   uint64  `json:"signatures_issued"`
	WalletSats   uint64  `json:"wallet_balance_sats"`
	Backend      string  `json:"lightning_backend"`
}

// GET /admin/activity?since=<unix> reports mint/melt volume since a
// timestamp plus the mint's current reserve and Lightning balance, the
// console's one-screen view of "is the mint solvent and busy".
func GetActivity(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		since := int64(0)
		if raw := c.Query("since"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "since must be a unix timestamp"})
				return
			}
			since = parsed
		} else {
			since = time.Now().Add(-24 * time.Hour).Unix()
		}

		balance, err := h.mint.MintDB.GetMintMeltBalanceByTime(since)
		if err != nil {
			h.logger.Error("admin.GetActivity: MintDB.GetMintMeltBalanceByTime", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load mint activity"})
			return
		}

		proofsReserve, err := h.mint.MintDB.GetProofsMintReserve()
		if err != nil {
			h.logger.Error("admin.GetActivity: MintDB.GetProofsMintReserve", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load proof reserve"})
			return
		}

		sigsReserve, err := h.mint.MintDB.GetBlindSigsMintReserve()
		if err != nil {
			h.logger.Error("admin.GetActivity: MintDB.GetBlindSigsMintReserve", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load signature reserve"})
			return
		}

		walletBalance, err := h.mint.LightningBackend.WalletBalance()
		if err != nil {
			h.logger.Warn("admin.GetActivity: LightningBackend.WalletBalance", slogErr(err))
		}

		summary := activitySummary{
			Since:        since,
			MintRequests: len(balance.Mint),
			MeltRequests: len(balance.Melt),
			ProofsHeld:   proofsReserve.Amount,
			SigsIssued:   sigsReserve.Amount,
			WalletSats:   walletBalance,
			Backend:      string(h.mint.Config.MINT_LIGHTNING_BACKEND),
		}

		for _, mintRequest := range balance.Mint {
			if mintRequest.Minted && mintRequest.Amount != nil {
				summary.Issued += *mintRequest.Amount
			}
		}
		for _, meltRequest := range balance.Melt {
			if meltRequest.Melted {
				summary.Melted += meltRequest.Amount
			}
		}

		c.JSON(http.StatusOK, summary)
	}
}
