package authService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cryptofolio/backend/config"
	"github.com/cryptofolio/backend/data/repository"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Claims struct {
	UserID int64 `json:"user_id"`

	jwt.RegisteredClaims
}

type Repository interface {
	InsertUser(ctx context.Context, email, passwordHash string) (userID int64, err error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

type TokenCache interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService struct {
	repo       Repository
	tokenCache TokenCache
	secret     []byte
	tokenTTL   time.Duration
}

func New(cfg *config.Config, repo Repository, tokenCache TokenCache) *AuthService {
	return &AuthService{
		repo:       repo,
		tokenCache: tokenCache,
		secret:     []byte(cfg.Auth.JwtSecret),
		tokenTTL:   cfg.Auth.TokenTTL,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Register"

	slog.Debug("Register start", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", email))
	defer func() {
		slog.Debug("Register finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", email))
	}()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("got error from bcrypt.GenerateFromPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	userID, err = s.repo.InsertUser(ctx, email, string(passwordHash))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			slog.Warn("user already exists", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", email))
			return 0, service.ErrUserAlreadyExists
		}
		slog.Error("got error from repo.InsertUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return userID, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (token model.AuthToken, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Login"

	slog.Debug("Login start", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", email))
	defer func() {
		slog.Debug("Login finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", email))
	}()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AuthToken{}, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetUserByEmail", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AuthToken{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("password mismatch", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", email))
		return model.AuthToken{}, service.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "cryptofolio",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		slog.Error("got error while signing token", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AuthToken{}, err
	}

	return model.AuthToken{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// Logout blacklists the token id for its remaining lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Logout"

	slog.Debug("Logout start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Logout finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	claims, err := s.Verify(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)

	err = s.tokenCache.RevokeToken(ctx, claims.ID, ttl)
	if err != nil {
		slog.Error("got error from tokenCache.RevokeToken", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *AuthService) Verify(ctx context.Context, token string) (claims Claims, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Verify"

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, service.ErrInvalidToken
	}

	parsedClaims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, service.ErrInvalidToken
	}

	revoked, err := s.tokenCache.IsTokenRevoked(ctx, parsedClaims.ID)
	if err != nil {
		slog.Error("got error from tokenCache.IsTokenRevoked", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Claims{}, err
	}
	if revoked {
		return Claims{}, service.ErrTokenRevoked
	}

	return *parsedClaims, nil
}
