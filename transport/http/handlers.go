package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

type nonceRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

type nonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type loginRequest struct {
	WalletAddress string         `json:"walletAddress" binding:"required"`
	Signature     string         `json:"signature" binding:"required"`
	Message       string         `json:"message" binding:"required"`
	Metadata      map[string]any `json:"metadata"`
}

type userView struct {
	ID            string `json:"id"`
	WalletAddress string `json:"walletAddress"`
}

type loginResponse struct {
	User      userView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type connectionView struct {
	At         time.Time         `json:"at"`
	Attributes map[string]string `json:"attributes"`
}

type userHistoryView struct {
	userView
	LoginCount        int64            `json:"loginCount"`
	LastLoginAt       *time.Time       `json:"lastLoginAt"`
	ConnectionHistory []connectionView `json:"connectionHistory"`
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return false
	}
	return true
}

// Nonce issues a login challenge for a wallet address
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req nonceRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := h.authService.IssueNonce(c.Request.Context(), req.WalletAddress)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonceResponse{
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		ExpiresAt: challenge.ExpiresAt,
	})
}

// Login exchanges a signed challenge for a session token
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginRequest{
		Address:   req.WalletAddress,
		Signature: req.Signature,
		Message:   req.Message,
		Metadata:  service.ConnectionAttributes(req.Metadata, c.ClientIP(), c.Request.UserAgent()),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		User:      userView{ID: result.User.ID, WalletAddress: result.User.WalletAddress},
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
	})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		abortWithError(c, core.ErrTokenMissing)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userView{ID: session.UserID, WalletAddress: session.Address},
	})
}

// History returns the login bookkeeping of the authenticated user
func (h *AuthHandlers) History(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		abortWithError(c, core.ErrTokenMissing)
		return
	}

	user, err := h.authService.User(c.Request.Context(), session.Identity())
	if err != nil {
		abortWithError(c, err)
		return
	}

	history := make([]connectionView, 0, len(user.ConnectionHistory))
	for _, event := range user.ConnectionHistory {
		history = append(history, connectionView{At: event.At, Attributes: event.Attributes})
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userHistoryView{
			userView:          userView{ID: user.ID, WalletAddress: user.WalletAddress},
			LoginCount:        user.LoginCount,
			LastLoginAt:       user.LastLoginAt,
			ConnectionHistory: history,
		},
	})
}

// Logout revokes the presented session token
func (h *AuthHandlers) Logout(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		abortWithError(c, core.ErrTokenMissing)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), session); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Authorize answers forward-auth checks from a reverse proxy.
// The identity is echoed in response headers for the upstream.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		abortWithError(c, core.ErrTokenMissing)
		return
	}

	c.Header(HeaderUserID, session.UserID)
	c.Header(HeaderWalletAddress, session.Address)
	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"user":       userView{ID: session.UserID, WalletAddress: session.Address},
	})
}

// HealthCheck probes a backing dependency
type HealthCheck func(ctx context.Context) error

// Health reports process and dependency health
func Health(checks ...HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
