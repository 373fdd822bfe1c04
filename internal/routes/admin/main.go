package admin

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SparrowTek/cashu-mint/internal/mint"
)

// AdminRoutes mounts the operator console under /admin. It is entirely
// optional HTTP surface on top of the same *mint.Mint the public v1 routes
// serve; nothing here is reachable from or required by the token-lifecycle
// core. ctx bounds the background sweep of expired admin state.
func AdminRoutes(ctx context.Context, r *gin.Engine, m *mint.Mint, logger *slog.Logger) {
	jwtSecret := make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		logger.Error("admin.AdminRoutes: could not generate session secret", slogErr(err))
		return
	}

	h := newAdminHandler(m, logger, jwtSecret, m.Config.NOSTR)

	go h.sweepExpiredState(ctx)

	admin := r.Group("/admin")

	admin.GET("/login/challenge", LoginChallenge(h))
	admin.POST("/login", Login(h))
	admin.POST("/logout", Logout(h))

	authed := admin.Group("")
	authed.Use(AuthMiddleware(h))

	authed.GET("/mint-info", GetMintInfo(h))
	authed.POST("/mint-info", UpdateMintInfo(h))

	authed.GET("/keysets", ListKeysets(h))
	authed.POST("/keysets/rotate", RotateKeyset(h))

	authed.GET("/activity", GetActivity(h))

	authed.GET("/lightning", GetLightningStatus(h))
	authed.GET("/mint-quote/:id/qr", GetMintQuoteQR(h))

	authed.POST("/notify/preview", PreviewNotice(h))
}
