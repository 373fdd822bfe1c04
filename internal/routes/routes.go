package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	m "github.com/SparrowTek/cashu-mint/internal/mint"
)

func V1Routes(r *gin.Engine, mint *m.Mint, logger *slog.Logger) {
	v1MintRoutes(r, mint)
	v1bolt11Routes(r, mint)
	v1WebSocketRoute(r, mint, logger)
}
