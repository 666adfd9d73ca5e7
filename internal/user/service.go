// Package user はユーザー登録、パスワード照合、プロフィール更新のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/arbaazshaikh08/job-app/internal/metrics"
	"github.com/arbaazshaikh08/job-app/internal/model"
	"github.com/arbaazshaikh08/job-app/internal/repository"
	"github.com/arbaazshaikh08/job-app/internal/security"
	"github.com/arbaazshaikh08/job-app/internal/validation"
)

// RegisterInput はユーザー登録の入力を表す。全項目必須。
type RegisterInput struct {
	Username string `json:"username" validate:"notblank"`
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
	Location string `json:"location" validate:"notblank"`
}

// ProfileInput はプロフィール更新の入力を表す。nilの項目は更新しない。
type ProfileInput struct {
	Username *string `json:"username"`
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	hasher    security.PasswordHasher
	sanitizer security.TextSanitizerService
	validator *validation.Validator
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	hasher security.PasswordHasher,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		sanitizer: sanitizer,
		validator: validation.New(),
		metrics:   metrics.OrNop(collector),
	}
}

// Register は新しいユーザーを登録する。
// パスワードはここで1回だけハッシュ化する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = s.sanitizer.Sanitize(in.Username)
	in.FullName = s.sanitizer.Sanitize(in.FullName)
	in.Location = s.sanitizer.Sanitize(in.Location)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewConflictError("User with this email already exists")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, model.NewInternalError("Failed to hash password")
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Location:     in.Location,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewConflictError("User with this email already exists")
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventRegister)
	slog.Info("user registered", slog.String("user_id", user.ID))

	return withoutSecrets(user), nil
}

// VerifyPassword は平文パスワードがユーザーのハッシュと一致するかを返す。
// 平文またはハッシュが空の場合はInternalErrorを返す。
func (s *Service) VerifyPassword(user *model.User, plaintext string) (bool, error) {
	if user == nil || user.PasswordHash == "" || plaintext == "" {
		return false, model.NewInternalError("Password or stored hash is missing")
	}
	ok, err := s.hasher.Compare(user.PasswordHash, plaintext)
	if err != nil {
		slog.Error("password comparison failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return false, model.NewInternalError("Failed to verify password")
	}
	return ok, nil
}

// UpdateProfile はプロフィール項目を部分更新する。
// パスワードは変更しないため、再ハッシュは発生しない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	var patch model.ProfilePatch
	var blank []string

	clean := func(name string, v *string, fn func(string) string) *string {
		if v == nil {
			return nil
		}
		out := fn(*v)
		if out == "" {
			blank = append(blank, name)
			return nil
		}
		return &out
	}

	patch.Username = clean("username", in.Username, s.sanitizer.Sanitize)
	patch.FullName = clean("fullName", in.FullName, s.sanitizer.Sanitize)
	patch.Location = clean("location", in.Location, s.sanitizer.Sanitize)
	patch.Email = clean("email", in.Email, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})

	if len(blank) > 0 {
		return nil, model.NewValidationError(fmt.Sprintf("Fields must not be blank: %s", strings.Join(blank, ", ")))
	}
	if patch.Username == nil && patch.FullName == nil && patch.Email == nil && patch.Location == nil {
		return nil, model.NewValidationError("At least one field is required")
	}
	if patch.Email != nil {
		if err := s.validator.Struct(struct {
			Email string `json:"email" validate:"email"`
		}{Email: *patch.Email}); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewConflictError("User with this email already exists")
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user profile updated", slog.String("user_id", userID))
	return withoutSecrets(user), nil
}

func withoutSecrets(u *model.User) *model.User {
	out := *u
	out.PasswordHash = ""
	out.RefreshTokenHash = ""
	out.RefreshTokenExpiresAt = nil
	return &out
}
