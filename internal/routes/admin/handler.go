// Package admin exposes a small JSON-only operator console on top of the
// same *mint.Mint the public v1 API routes use: mint metadata, keyset and
// balance summaries, and invoice/notification helpers. It sits outside the
// token-lifecycle core this repository's spec targets, so it stays thin —
// no admin business rule here feeds back into swap/mint/melt semantics.
package admin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/SparrowTek/cashu-mint/internal/mint"
)

// AdminAuthCookie is the session cookie name set on successful login.
const AdminAuthCookie = "admin-session"

type adminHandler struct {
	mint      *mint.Mint
	logger    *slog.Logger
	validate  *validator.Validate
	blacklist *sessionBlacklist

	jwtSecret   []byte
	adminPubKey string // 64-hex x-only nostr pubkey; "" disables login entirely

	noncesMu sync.Mutex
	nonces   map[string]time.Time
}

func newAdminHandler(m *mint.Mint, logger *slog.Logger, jwtSecret []byte, adminPubKey string) *adminHandler {
	return &adminHandler{
		mint:        m,
		logger:      logger,
		validate:    validator.New(),
		blacklist:   newSessionBlacklist(),
		jwtSecret:   jwtSecret,
		adminPubKey: adminPubKey,
		nonces:      make(map[string]time.Time),
	}
}

func (h *adminHandler) signSession() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

// sweepExpiredState periodically drops expired login nonces and blacklist
// entries so both maps don't grow for the life of the process; it returns
// once ctx is cancelled.
func (h *adminHandler) sweepExpiredState(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.blacklist.sweepExpired()

			h.noncesMu.Lock()
			for nonce, expiresAt := range h.nonces {
				if now.After(expiresAt) {
					delete(h.nonces, nonce)
				}
			}
			h.noncesMu.Unlock()
		}
	}
}

func (h *adminHandler) parseSession(cookie string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(cookie, claims, func(t *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
