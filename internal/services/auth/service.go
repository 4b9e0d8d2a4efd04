// Package auth issues and checks the JWTs that front the API.
package auth

import (
	"context"
	"errors"
	"strings"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/repositories"
	"fraudshield/internal/utils"
	"fraudshield/internal/validation"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewAccount describes an account created by Register.
type NewAccount struct {
	Email    string
	Name     string
	Password string
	Role     string
	Balance  decimal.Decimal
}

type Service interface {
	Register(ctx context.Context, in NewAccount) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*models.Account, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Authenticate validates an access token and checks it has not been revoked.
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
	Logout(ctx context.Context, accountID uint) error
}

type service struct {
	accounts repositories.AccountRepository
	tokens   utils.TokenConfig
	cost     int
}

// NewService creates an auth service. cost is the bcrypt cost; zero means bcrypt.DefaultCost.
func NewService(accounts repositories.AccountRepository, tokens utils.TokenConfig, cost int) Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		accounts: accounts,
		tokens:   tokens,
		cost:     cost,
	}
}

func (s *service) Register(ctx context.Context, in NewAccount) (*models.Account, error) {
	in.Email = repositories.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	v := validation.New()
	v.Email("email", in.Email)
	v.Required("name", in.Name)
	v.Password("password", in.Password)
	v.OneOf("role", in.Role, models.RoleUser, models.RoleReviewer, models.RoleAdmin)
	v.Check(!in.Balance.IsNegative(), "balance", "must not be negative")
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}

	account := &models.Account{
		Email:        in.Email,
		Name:         in.Name,
		Password:     string(hash),
		Role:         in.Role,
		Balance:      in.Balance.Round(2),
		TokenVersion: 1,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, apperrors.Validation("email", "is already registered")
		}
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	return account, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*models.Account, *TokenPair, error) {
	log := logger.FromContext(ctx)

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info().Msg("login failed: unknown email")
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, apperrors.ErrPersistence.Wrap(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		log.Info().Uint("account_id", account.ID).Msg("login failed: incorrect password")
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issue(account)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := utils.ParseToken(s.tokens, models.TokenTypeRefresh, refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	account, err := s.current(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.issue(account)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error) {
	claims, err := utils.ParseToken(s.tokens, models.TokenTypeAccess, accessToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if _, err := s.current(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *service) Logout(ctx context.Context, accountID uint) error {
	if err := s.accounts.IncrementTokenVersion(ctx, accountID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.ErrPersistence.Wrap(err)
	}
	return nil
}

// current loads the account behind claims and rejects tokens from an older version.
func (s *service) current(ctx context.Context, claims *models.UserClaims) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	if account.TokenVersion != claims.TokenVersion {
		return nil, apperrors.ErrInvalidToken.WithMessage("token has been revoked")
	}
	return account, nil
}

func (s *service) issue(account *models.Account) (*TokenPair, error) {
	access, refresh, err := utils.GenerateTokens(s.tokens, &models.UserClaims{
		AccountID:    account.ID,
		Email:        account.Email,
		Role:         account.Role,
		TokenVersion: account.TokenVersion,
		Permissions:  models.GetDefaultPermissions(account.Role),
	})
	if err != nil {
		return nil, apperrors.ErrUnavailable.Wrap(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
