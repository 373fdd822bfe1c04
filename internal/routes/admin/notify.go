package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nbd-wtf/go-nostr"
)

type buildNoticeRequest struct {
	SecretKey string `json:"secret_key" validate:"required,len=64,hexadecimal"`
	Content   string `json:"content" validate:"required,max=1024"`
}

// POST /admin/notify/preview signs a kind-1 nostr note carrying an admin
// alert (e.g. "signing failed after spent rows committed, see logs") and
// hands back the signed event for the operator to relay themselves. This
// mint has no relay pool wired in, so it never publishes on its own.
func PreviewNotice(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req buildNoticeRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed notice request"})
			return
		}
		if err := h.validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid notice request"})
			return
		}

		pubKey, err := nostr.GetPublicKey(req.SecretKey)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid secret key"})
			return
		}

		event := nostr.Event{
			PubKey:    pubKey,
			CreatedAt: nostr.Now(),
			Kind:      nostr.KindTextNote,
			Tags:      nostr.Tags{},
			Content:   req.Content,
		}

		if err := event.Sign(req.SecretKey); err != nil {
			h.logger.Error("admin.PreviewNotice: event.Sign", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not sign notice"})
			return
		}

		c.JSON(http.StatusOK, event)
	}
}
