// Package services contains server-side business logic. This file implements
// AuthService, which checks credentials, issues and rotates JWTs against the
// user's single refresh-token slot, and hands out the sealed per-user mail
// secret at login.
package services

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailauth/internal/common"
	"github.com/dmitrijs2005/mailauth/internal/cryptox"
	"github.com/dmitrijs2005/mailauth/internal/logging"
	"github.com/dmitrijs2005/mailauth/internal/server/auth"
	"github.com/dmitrijs2005/mailauth/internal/server/config"
	"github.com/dmitrijs2005/mailauth/internal/server/models"
	"github.com/dmitrijs2005/mailauth/internal/server/repositories/users"
)

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenCodec signs and verifies access and refresh tokens.
type TokenCodec interface {
	Sign(claims auth.Claims, p auth.Policy) (string, error)
	Verify(token string, p auth.Policy) (*auth.Claims, error)
}

// SecretSealer turns a small string map into an opaque envelope and back.
type SecretSealer interface {
	Seal(payload map[string]string) (string, error)
	Open(token string) (map[string]string, error)
}

// AuthenticatedUser is the outcome of a successful credential check. Password
// is the plaintext the user just presented; it lives only for the request
// and feeds the mail key derivation at login.
type AuthenticatedUser struct {
	User     *models.User
	Password string
}

// LoginResult is returned by Login.
type LoginResult struct {
	Profile      models.Profile
	SecretToken  string
	AccessToken  string
	RefreshToken string
}

// RefreshResult is returned by Refresh. No secret is sealed on refresh.
type RefreshResult struct {
	Profile      models.Profile
	AccessToken  string
	RefreshToken string
}

// AuthService implements register, credential validation, login, refresh and
// logout.
type AuthService struct {
	repo          users.Repository
	hasher        PasswordHasher
	codec         TokenCodec
	sealer        SecretSealer
	accessPolicy  auth.Policy
	refreshPolicy auth.Policy
	logger        logging.Logger
}

// NewAuthService constructs an AuthService. Token policies are taken from cfg
// and do not change afterwards.
func NewAuthService(repo users.Repository, hasher PasswordHasher, codec TokenCodec, sealer SecretSealer,
	cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		codec:  codec,
		sealer: sealer,
		accessPolicy: auth.Policy{
			Secret: []byte(cfg.SecretKey),
			TTL:    cfg.AccessTokenValidityDuration,
		},
		refreshPolicy: auth.Policy{
			Secret: []byte(cfg.RefreshSecretKey),
			TTL:    cfg.RefreshTokenValidityDuration,
		},
		logger: logger.With("module", "auth_service"),
	}
}

// AccessPolicy is the policy access tokens are signed with. The transport
// uses it to check bearer tokens.
func (s *AuthService) AccessPolicy() auth.Policy {
	return s.accessPolicy
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// internal logs err and returns a classified error for the caller: err itself
// when it already carries a kind, otherwise fallback.
func (s *AuthService) internal(ctx context.Context, msg string, err error, fallback error, args ...any) error {
	if common.IsClassified(err) {
		return err
	}
	s.logger.Error(ctx, msg, append(args, "error", err)...)
	return fallback
}

// Register creates a user with a bcrypt hash and a fresh random salt.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorBadRequest)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, cryptox.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", common.ErrorBadRequest, err)
		}
		return nil, s.internal(ctx, "hashing password", err, common.ErrorInternal)
	}

	salt, err := common.MakeRandHexString(common.SaltSize)
	if err != nil {
		return nil, s.internal(ctx, "generating salt", err, common.ErrorInternal)
	}

	user, err := s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, s.internal(ctx, "creating user", err, common.ErrorInternal)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	p := user.Profile()
	return &p, nil
}

// ValidateCredentials checks email and password. An unknown email and a wrong
// password both yield (nil, nil); callers must not tell them apart.
func (s *AuthService) ValidateCredentials(ctx context.Context, email, password string) (*AuthenticatedUser, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, s.internal(ctx, "looking up user by email", err, common.ErrorInternal)
	}

	withPassword, err := s.repo.FindByIDWithPassword(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "loading password hash", err, common.ErrorInternal, "user_id", user.ID)
	}

	if !s.hasher.Verify(password, withPassword.PasswordHash) {
		return nil, nil
	}

	return &AuthenticatedUser{User: user, Password: password}, nil
}

func (s *AuthService) issuePair(user *models.User) (access, refresh string, err error) {
	claims := auth.Claims{UserID: user.ID, Email: user.Email}

	access, err = s.codec.Sign(claims, s.accessPolicy)
	if err != nil {
		return "", "", fmt.Errorf("signing access token: %w", err)
	}
	refresh, err = s.codec.Sign(claims, s.refreshPolicy)
	if err != nil {
		return "", "", fmt.Errorf("signing refresh token: %w", err)
	}
	return access, refresh, nil
}

// sealSecret derives the per-user mail key and seals it under the master key.
// The derived key is wiped before returning.
func (s *AuthService) sealSecret(password, salt string) (string, error) {
	key, err := cryptox.DeriveKey(password, salt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	return s.sealer.Seal(map[string]string{common.SMTPKeyField: hex.EncodeToString(key)})
}

// Login issues a token pair for an authenticated user and stores the refresh
// token in the user's slot, replacing whatever was there. Any refresh token
// issued earlier stops working immediately.
func (s *AuthService) Login(ctx context.Context, au *AuthenticatedUser) (*LoginResult, error) {
	if au == nil || au.User == nil {
		return nil, common.ErrorUnauthorized
	}
	user := au.User

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, s.internal(ctx, "issuing tokens", err, common.ErrorInternal, "user_id", user.ID)
	}

	secret, err := s.sealSecret(au.Password, user.Salt)
	if err != nil {
		return nil, s.internal(ctx, "sealing user secret", err, common.ErrorInternal, "user_id", user.ID)
	}

	// The slot is written last so a failed login leaves the current session
	// intact.
	if err := s.repo.Update(ctx, user.ID, models.UserUpdate{RefreshToken: &refresh}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "storing refresh token", err, common.ErrorInternal, "user_id", user.ID)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)

	return &LoginResult{
		Profile:      user.Profile(),
		SecretToken:  secret,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The token must verify
// and must be the one currently in the user's slot. The slot is replaced
// with a conditional write, so of several concurrent refreshes presenting
// the same token at most one succeeds.
func (s *AuthService) Refresh(ctx context.Context, token string) (*RefreshResult, error) {
	claims, err := s.codec.Verify(token, s.refreshPolicy)
	if err != nil {
		s.logger.Warn(ctx, "refresh token rejected", "reason", err)
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "looking up user by id", err, common.ErrorInternal, "user_id", claims.UserID)
	}

	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(token)) != 1 {
		s.logger.Warn(ctx, "refresh token is not the active one",
			"user_id", user.ID, "slot_empty", user.RefreshToken == nil)
		return nil, common.ErrorUnauthorized
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		return nil, s.internal(ctx, "issuing tokens", err, common.ErrorInternal, "user_id", user.ID)
	}

	swapped, err := s.repo.SwapRefreshToken(ctx, user.ID, token, refresh)
	if err != nil {
		return nil, s.internal(ctx, "rotating refresh token", err, common.ErrorInternal, "user_id", user.ID)
	}
	if !swapped {
		s.logger.Warn(ctx, "refresh token rotated concurrently", "user_id", user.ID)
		return nil, common.ErrorUnauthorized
	}

	return &RefreshResult{
		Profile:      user.Profile(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Logout clears the user's refresh-token slot. Calling it again, or for a
// user that does not exist, is not an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	err := s.repo.Update(ctx, userID, models.UserUpdate{ClearRefreshToken: true})
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return s.internal(ctx, "clearing refresh token", err, common.ErrorInternal, "user_id", userID)
	}
	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}
