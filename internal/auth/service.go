// Package auth はパスワードログイン、JWTトークンの発行・ローテーション・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arbaazshaikh08/job-app/internal/metrics"
	"github.com/arbaazshaikh08/job-app/internal/model"
	"github.com/arbaazshaikh08/job-app/internal/repository"
)

// CredentialVerifier はユーザーのパスワード照合のインターフェース。
// user.Serviceが実装する。
type CredentialVerifier interface {
	VerifyPassword(user *model.User, plaintext string) (bool, error)
}

// LoginInput はログイン要求を表す。EmailとUsernameのどちらかが必須。
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// LoginResult はログイン成功時の結果を表す。
type LoginResult struct {
	User   *model.User
	Tokens *model.TokenPair
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	verifier CredentialVerifier
	tokens   *TokenIssuer
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	userRepo repository.UserRepository,
	verifier CredentialVerifier,
	tokens *TokenIssuer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo: userRepo,
		verifier: verifier,
		tokens:   tokens,
		metrics:  metrics.OrNop(collector),
	}
}

// Login はemailまたはusernameとパスワードで認証し、新しいトークンペアを発行する。
// 未登録ユーザーとパスワード不一致はどちらもUnauthorizedErrorを返す。
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if email == "" && username == "" {
		return nil, model.NewValidationError("Username or email is required")
	}
	if in.Password == "" {
		return nil, model.NewValidationError("Password is required")
	}

	user, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuthEvent(metrics.EventLoginFailure)
		return nil, model.NewUnauthorizedError("Invalid user credentials")
	}

	ok, err := s.verifier.VerifyPassword(user, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordAuthEvent(metrics.EventLoginFailure)
		slog.Info("login rejected", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError("Invalid user credentials")
	}

	tokens, err := s.Rotate(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent(metrics.EventLoginSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Rotate は新しいアクセストークンとリフレッシュトークンを発行し、
// リフレッシュトークンのハッシュをユーザーに無条件で保存する。
// 以前のリフレッシュトークンは以後使用できない。
func (s *Service) Rotate(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, HashToken(refresh), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh はリフレッシュトークンを検証し、新しいトークンペアに置き換える。
// 保存済みハッシュとの比較と置き換えは1つの条件付きUPDATEで行うため、
// 同じトークンで同時にリフレッシュしても成功するのは1回のみ。
func (s *Service) Refresh(ctx context.Context, raw string) (*model.TokenPair, error) {
	if raw == "" {
		return nil, model.NewUnauthorizedError("Unauthorized request")
	}

	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventRefreshReject)
		return nil, model.NewUnauthorizedError("Invalid refresh token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuthEvent(metrics.EventRefreshReject)
		return nil, model.NewUnauthorizedError("Invalid refresh token")
	}

	presented := HashToken(raw)
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != presented {
		s.metrics.RecordAuthEvent(metrics.EventRefreshReject)
		slog.Warn("refresh token reuse detected", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError("Refresh token is expired or used")
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.userRepo.SwapRefreshToken(ctx, user.ID, presented, HashToken(refresh), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !swapped {
		s.metrics.RecordAuthEvent(metrics.EventRefreshReject)
		slog.Warn("concurrent refresh lost the race", slog.String("user_id", user.ID))
		return nil, model.NewUnauthorizedError("Refresh token is expired or used")
	}

	s.metrics.RecordAuthEvent(metrics.EventRefreshSuccess)
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess はアクセストークンを検証し、認証済みユーザーの情報を返す。
func (s *Service) VerifyAccess(raw string) (*model.Identity, error) {
	if raw == "" {
		return nil, model.NewUnauthorizedError("Unauthorized request")
	}
	claims, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, model.NewUnauthorizedError("Invalid access token")
		}
		return nil, err
	}
	return &model.Identity{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}

// Logout はユーザーのリフレッシュトークンを破棄する。
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return model.NewUnauthorizedError("Unauthorized request")
	}

	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventLogout)
	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}
