package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
)

const nonceTTL = 2 * time.Minute

// GET /admin/login/challenge issues a one-time nonce the operator's nostr
// key must sign over; it expires quickly and can only be redeemed once.
func LoginChallenge(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce := uuid.NewString()

		h.noncesMu.Lock()
		h.nonces[nonce] = time.Now().Add(nonceTTL)
		h.noncesMu.Unlock()

		c.JSON(http.StatusOK, gin.H{"nonce": nonce, "expires_in": int(nonceTTL.Seconds())})
	}
}

// POST /admin/login verifies a nostr event whose content is an
// unredeemed nonce, signed by the configured admin pubkey, and on success
// mints a short-lived JWT session cookie.
func Login(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminPubKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "admin login is not configured"})
			return
		}

		var event nostr.Event
		if err := c.BindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed login event"})
			return
		}

		if event.PubKey != h.adminPubKey {
			c.JSON(http.StatusForbidden, gin.H{"detail": "event was not signed by the admin key"})
			return
		}

		ok, err := event.CheckSignature()
		if err != nil || !ok {
			h.logger.Warn("admin.Login: invalid nostr signature", slogErr(err))
			c.JSON(http.StatusForbidden, gin.H{"detail": "invalid signature"})
			return
		}

		h.noncesMu.Lock()
		expiresAt, known := h.nonces[event.Content]
		if known {
			delete(h.nonces, event.Content)
		}
		h.noncesMu.Unlock()

		if !known || time.Now().After(expiresAt) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "nonce is unknown or expired"})
			return
		}

		token, err := h.signSession()
		if err != nil {
			h.logger.Error("admin.Login: could not sign session token", slogErr(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not start session"})
			return
		}

		c.SetCookie(AdminAuthCookie, token, 3600, "/admin", "", false, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// POST /admin/logout blacklists the caller's current session token so it
// can't be replayed even though the JWT itself hasn't expired yet.
func Logout(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(AdminAuthCookie)
		if err == nil {
			h.blacklist.revoke(cookie, time.Now().Add(time.Hour))
		}
		c.SetCookie(AdminAuthCookie, "", -1, "/admin", "", false, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// AuthMiddleware rejects every /admin/* request without a valid, non
// blacklisted session cookie. The login/challenge endpoints are mounted
// outside the group this guards.
func AuthMiddleware(h *adminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(AdminAuthCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing admin session"})
			return
		}

		if h.blacklist.isRevoked(cookie) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "session was revoked"})
			return
		}

		if _, err := h.parseSession(cookie); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired session"})
			return
		}

		c.Next()
	}
}
