package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// DefaultNonceTTL is how long an issued challenge can be consumed
const DefaultNonceTTL = 5 * time.Minute

const nonceBytes = 32

// LoginRequest carries a signed challenge presented for login
type LoginRequest struct {
	Address   string
	Signature string
	Message   string
	Metadata  core.ConnectionMetadata
}

// LoginResult is returned on successful login
type LoginResult struct {
	User    *core.User
	Token   string
	Session *core.Session
}

// AuthService handles authentication business logic
type AuthService struct {
	nonces    ports.NonceStore
	verifier  ports.SignatureVerifier
	tokenizer ports.Tokenizer
	users     ports.UserRepository
	recorder  *LoginRecorder
	eventPub  ports.EventPublisher
	denylist  ports.Denylist
	logger    *slog.Logger

	nonceTTL time.Duration
	now      func() time.Time
}

// Option configures optional AuthService collaborators
type Option func(*AuthService)

// WithDenylist enables token revocation on logout
func WithDenylist(denylist ports.Denylist) Option {
	return func(s *AuthService) { s.denylist = denylist }
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

// WithNonceTTL sets the challenge lifetime
func WithNonceTTL(ttl time.Duration) Option {
	return func(s *AuthService) { s.nonceTTL = ttl }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
		s.recorder.now = now
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	verifier ports.SignatureVerifier,
	tokenizer ports.Tokenizer,
	users ports.UserRepository,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		nonces:    nonces,
		verifier:  verifier,
		tokenizer: tokenizer,
		users:     users,
		recorder:  NewLoginRecorder(users),
		eventPub:  eventPub,
		logger:    slog.Default(),
		nonceTTL:  DefaultNonceTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueNonce creates a fresh challenge for address, replacing any earlier one
func (s *AuthService) IssueNonce(ctx context.Context, address string) (*core.Challenge, error) {
	normalized, err := s.normalize(address)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, nonceBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(raw)

	now := s.now().UTC()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   normalized,
		Nonce:     nonce,
		Message:   core.RenderChallenge(normalized, nonce),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.nonceTTL),
	}

	if err := s.nonces.Issue(ctx, challenge); err != nil {
		return nil, fmt.Errorf("%w: store challenge: %w", core.ErrRepositoryUnavailable, err)
	}

	s.logger.Debug("challenge issued", "address", normalized, "challenge_id", challenge.ID)
	return challenge, nil
}

// Login consumes the challenge, verifies the wallet signature, records the login and mints a session.
// The challenge is consumed before the signature check, so any failure requires a new nonce.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	result, err := s.login(ctx, req)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, core.ErrRepositoryUnavailable) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "login failed", "address", req.Address, "reason", err.Error())
		return nil, err
	}

	s.logger.Info("login succeeded",
		"address", result.User.WalletAddress,
		"user_id", result.User.ID,
		"login_count", result.User.LoginCount,
	)
	return result, nil
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Address == "" || req.Signature == "" || req.Message == "" {
		return nil, fmt.Errorf("%w: walletAddress, signature and message are required", core.ErrInvalidInput)
	}

	address, err := s.normalize(req.Address)
	if err != nil {
		return nil, err
	}

	challenge, err := s.nonces.Consume(ctx, address, req.Message, s.now().UTC())
	if err != nil {
		if core.IsAuthenticationFailure(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: consume challenge: %w", core.ErrRepositoryUnavailable, err)
	}

	if !s.verifier.Verify(address, challenge.Message, req.Signature) {
		return nil, core.ErrSignatureInvalid
	}

	user, err := s.recorder.RecordLogin(ctx, address, req.Metadata)
	if err != nil {
		return nil, err
	}

	token, session, err := s.tokenizer.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	event := ports.LoginEvent{
		UserID:     user.ID,
		Address:    user.WalletAddress,
		LoginCount: user.LoginCount,
		At:         session.IssuedAt,
	}
	if err := s.eventPub.PublishLogin(ctx, event); err != nil {
		s.logger.Warn("failed to publish login event", "address", address, "error", err)
	}

	return &LoginResult{User: user, Token: token, Session: session}, nil
}

func (s *AuthService) normalize(address string) (string, error) {
	normalized, err := s.verifier.NormalizeAddress(address)
	if err != nil && !errors.Is(err, core.ErrInvalidInput) {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return normalized, err
}

// ValidateToken parses the bearer credential and checks it against the denylist when one is configured
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.Parse(token)
	if err != nil {
		return nil, err
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsTokenInvalidated(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: check token revocation: %w", core.ErrRepositoryUnavailable, err)
		}
		if revoked {
			return nil, core.ErrTokenRevoked
		}
	}

	return session, nil
}

// Logout revokes the session until its natural expiry and publishes a logout event
func (s *AuthService) Logout(ctx context.Context, session *core.Session) error {
	if s.denylist != nil {
		remaining := session.ExpiresAt.Sub(s.now())
		if remaining > 0 {
			if err := s.denylist.InvalidateToken(ctx, session.ID, remaining); err != nil {
				return fmt.Errorf("%w: revoke token: %w", core.ErrRepositoryUnavailable, err)
			}
		}
	}

	// Log the error but don't fail the logout operation; the token is already revoked
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		s.logger.Warn("failed to publish logout event", "address", session.Address, "error", err)
	}

	s.logger.Info("logout", "address", session.Address, "user_id", session.UserID)
	return nil
}

// User returns the stored record behind an authenticated identity
func (s *AuthService) User(ctx context.Context, identity core.Identity) (*core.User, error) {
	user, err := s.users.FindByID(ctx, identity.UserID)
	if errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: unknown user", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRepositoryUnavailable, err)
	}
	if user.WalletAddress != identity.Address {
		return nil, fmt.Errorf("%w: address mismatch", core.ErrTokenInvalid)
	}
	return user, nil
}
