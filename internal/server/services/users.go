// Package services contains the server-side application logic: account
// management, the encrypted-object lifecycle, and the sharing ledger.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/common"
	"github.com/dmitrijs2005/filesafe/internal/cryptox"
	"github.com/dmitrijs2005/filesafe/internal/logging"
	"github.com/dmitrijs2005/filesafe/internal/server/auth"
	"github.com/dmitrijs2005/filesafe/internal/server/models"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/users"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type UserService struct {
	users                users.Repository
	refreshTokens        refreshtokens.Repository
	jwtSecret            []byte
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
	logger               logging.Logger
}

func NewUserService(userRepo users.Repository, refreshTokenRepo refreshtokens.Repository,
	jwtSecret []byte, accessTokenValidity, refreshTokenValidity time.Duration, logger logging.Logger) *UserService {
	return &UserService{
		users:                userRepo,
		refreshTokens:        refreshTokenRepo,
		jwtSecret:            jwtSecret,
		accessTokenValidity:  accessTokenValidity,
		refreshTokenValidity: refreshTokenValidity,
		logger:               logger.With("component", "users"),
	}
}

func (s *UserService) Register(ctx context.Context, userName, password string) (*models.User, error) {
	if userName == "" || password == "" {
		return nil, common.ErrInvalidLoginPassword
	}

	salt := common.GenerateRandByteArray(32)
	user := &models.User{
		UserName: userName,
		Salt:     salt,
		Verifier: cryptox.HashPassword([]byte(password), salt),
	}

	user, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrLoginAlreadyExists) {
			return nil, err
		}
		s.logger.Error(ctx, "user creation failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) checkVerifier(verifier, candidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, candidate) == 1
}

func (s *UserService) Login(ctx context.Context, userName, password string) (*TokenPair, error) {
	user, err := s.users.GetByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidLoginPassword
		}
		return nil, common.ErrorInternal
	}

	candidate := cryptox.HashPassword([]byte(password), user.Salt)
	defer common.WipeByteArray(candidate)
	if !s.checkVerifier(user.Verifier, candidate) {
		return nil, common.ErrInvalidLoginPassword
	}

	return s.issueTokens(ctx, user.ID)
}

// Refresh rotates a refresh token: the presented token is invalidated and a
// fresh pair is issued. Consuming the old token and storing the new one is
// one atomic repository operation, so a token presented twice concurrently
// mints exactly one pair; the loser sees ErrInvalidToken.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	rt, err := s.refreshTokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}

	if time.Now().After(rt.Expires) {
		_ = s.refreshTokens.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	accessToken, err := auth.GenerateToken(rt.UserID, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		s.logger.Error(ctx, "access token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	newRefreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.refreshTokens.Rotate(ctx, refreshToken, rt.UserID, newRefreshToken, s.refreshTokenValidity); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (s *UserService) issueTokens(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		s.logger.Error(ctx, "access token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.refreshTokens.Create(ctx, userID, refreshToken, s.refreshTokenValidity); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
