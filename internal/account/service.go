// Package account manages principal accounts: registration, login and the
// balance every registration payment settles against.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/avetrov/namevault/internal/crypto"
	"github.com/avetrov/namevault/internal/errs"
	"github.com/avetrov/namevault/internal/limiter"
	"github.com/avetrov/namevault/internal/model"
	"github.com/avetrov/namevault/internal/repository"
)

// Service defines account and session operations.
type Service interface {
	// Register creates a new principal account with secure password hashing.
	Register(ctx context.Context, username, password string) (uuid.UUID, error)
	// LoginWithIP applies rate-limiting and authenticates the account.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.Account, error)
	// Balance returns the principal's current balance.
	Balance(ctx context.Context, principal uuid.UUID) (int64, error)
	// Credit deposits funds into a principal's balance. Admin only.
	Credit(ctx context.Context, caller, principal uuid.UUID, amount int64) error
}

type ServiceImpl struct {
	accounts  repository.AccountRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	admin     uuid.UUID
}

// NewService constructs the account service with required dependencies.
func NewService(accounts repository.AccountRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, admin uuid.UUID) *ServiceImpl {
	return &ServiceImpl{accounts: accounts, signKey: signKey, accessTTL: accessTTL, lim: lim, admin: admin}
}

// Register creates a new account record with a per-account salt.
func (s *ServiceImpl) Register(ctx context.Context, username, password string) (uuid.UUID, error) {
	if username == "" || password == "" {
		return uuid.Nil, errors.New("empty username/password")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return uuid.Nil, err
	}
	a := &model.Account{
		ID:       id,
		Username: username,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth: salt,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// LoginWithIP authenticates with rate limiting by (username, ip).
func (s *ServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.Account, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Account{}, errs.ErrRateLimited
	}

	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), a.SaltAuth, a.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.Account{}, errs.ErrRateLimited
		}
		// hide account existence on wrong password; lookup errors masked the same
		return model.Tokens{}, model.Account{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, username, ipHash)

	access, exp, err := s.issueAccessToken(a.ID)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *a, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *ServiceImpl) issueAccessToken(principal uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   principal.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// Balance returns the principal's current balance.
func (s *ServiceImpl) Balance(ctx context.Context, principal uuid.UUID) (int64, error) {
	if principal == uuid.Nil {
		return 0, errors.New("validation: empty principal")
	}
	return s.accounts.Balance(ctx, principal)
}

// Credit deposits funds into a principal's balance. Admin only.
func (s *ServiceImpl) Credit(ctx context.Context, caller, principal uuid.UUID, amount int64) error {
	if caller != s.admin {
		return errs.ErrUnauthorized
	}
	if principal == uuid.Nil || amount <= 0 {
		return errors.New("validation: principal/amount")
	}
	return s.accounts.Deposit(ctx, principal, amount)
}
