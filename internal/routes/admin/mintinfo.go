package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SparrowTek/cashu-mint/api/cashu"
)

// GET /admin/mint-info returns the editable mint metadata config row.
func GetMintInfo(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		config, err := h.mint.MintDB.GetConfig()
		if err != nil {
			h.logger.Error("admin.GetMintInfo: MintDB.GetConfig", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load mint config"})
			return
		}
		c.JSON(http.StatusOK, config)
	}
}

type updateMintInfoRequest struct {
	Name            string `json:"name" validate:"max=64"`
	Description     string `json:"description" validate:"max=256"`
	DescriptionLong string `json:"description_long" validate:"max=4096"`
	Motd            string `json:"motd" validate:"max=512"`
	Email           string `json:"email" validate:"omitempty,email"`
	Nostr           string `json:"nostr" validate:"omitempty,len=64,hexadecimal"`
}

// POST /admin/mint-info updates the mint's advertised /v1/info metadata.
func UpdateMintInfo(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateMintInfoRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed mint info"})
			return
		}
		if err := h.validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid mint info: %v", err)})
			return
		}

		config, err := h.mint.MintDB.GetConfig()
		if err != nil {
			h.logger.Error("admin.UpdateMintInfo: MintDB.GetConfig", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load mint config"})
			return
		}

		config.NAME = req.Name
		config.DESCRIPTION = req.Description
		config.DESCRIPTION_LONG = req.DescriptionLong
		config.MOTD = req.Motd
		config.EMAIL = req.Email
		config.NOSTR = req.Nostr

		if err := h.mint.MintDB.UpdateConfig(config); err != nil {
			h.logger.Error("admin.UpdateMintInfo: MintDB.UpdateConfig", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not persist mint config"})
			return
		}

		if req.Nostr != "" {
			h.adminPubKey = req.Nostr
		}

		c.JSON(http.StatusOK, config)
	}
}

// GET /admin/keysets summarizes every keyset this mint's signer knows
// about, active or retired, the same NUT-02 rows /v1/keysets returns.
func ListKeysets(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		keysets, err := h.mint.Signer.GetKeysets()
		if err != nil {
			h.logger.Error("admin.ListKeysets: Signer.GetKeysets", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not load keysets"})
			return
		}
		c.JSON(http.StatusOK, keysets)
	}
}

type rotateKeysetRequest struct {
	Unit        string `json:"unit" validate:"required"`
	InputFeePpk uint   `json:"input_fee_ppk"`
	ExpiryLimit uint   `json:"expiry_limit"`
}

// POST /admin/keysets/rotate deactivates the active keyset for a unit and
// generates a fresh one, the operator-triggered analogue of NUT-02 rotation.
func RotateKeyset(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rotateKeysetRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed rotation request"})
			return
		}
		if err := h.validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid rotation request: %v", err)})
			return
		}

		unit, err := cashu.UnitFromString(req.Unit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "unsupported unit"})
			return
		}

		if err := h.mint.Signer.RotateKeyset(unit, req.InputFeePpk, req.ExpiryLimit); err != nil {
			h.logger.Error("admin.RotateKeyset: Signer.RotateKeyset", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not rotate keyset"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
