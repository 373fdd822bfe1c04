package admin

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

type lightningStatus struct {
	Backend       string `json:"backend"`
	Network       string `json:"network"`
	WalletSats    uint64 `json:"wallet_balance_sats"`
	MppSupported  bool   `json:"mpp_supported"`
}

// GET /admin/lightning reports which backend is wired up and its balance,
// the console's "is the node reachable" check.
func GetLightningStatus(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, err := h.mint.LightningBackend.WalletBalance()
		if err != nil {
			h.logger.Warn("admin.GetLightningStatus: LightningBackend.WalletBalance", slogErr(err))
		}

		c.JSON(http.StatusOK, lightningStatus{
			Backend:      string(h.mint.Config.MINT_LIGHTNING_BACKEND),
			Network:      h.mint.Config.NETWORK,
			WalletSats:   balance,
			MppSupported: h.mint.LightningBackend.ActiveMPP(),
		})
	}
}

// GET /admin/mint-quote/:id/qr renders the quote's bolt11 invoice as a
// base64 PNG QR code so an operator can display it for a manual fallback
// payment path.
func GetMintQuoteQR(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteId := c.Param("id")

		tx, err := h.mint.MintDB.GetTx(c.Request.Context())
		if err != nil {
			h.logger.Error("admin.GetMintQuoteQR: MintDB.GetTx", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not open transaction"})
			return
		}
		defer h.mint.MintDB.Rollback(c.Request.Context(), tx)

		mintRequest, err := h.mint.MintDB.GetMintRequestById(tx, quoteId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "quote not found"})
			return
		}

		qr, err := qrcode.New(mintRequest.Request, qrcode.Medium)
		if err != nil {
			h.logger.Error("admin.GetMintQuoteQR: qrcode.New", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not render QR code"})
			return
		}

		png, err := qr.PNG(256)
		if err != nil {
			h.logger.Error("admin.GetMintQuoteQR: qr.PNG", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not render QR code"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"quote":      quoteId,
			"request":    mintRequest.Request,
			"png_base64": base64.StdEncoding.EncodeToString(png),
		})
	}
}
