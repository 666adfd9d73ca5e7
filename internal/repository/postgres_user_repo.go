package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arbaazshaikh08/job-app/internal/model"
)

// userColumns はusersテーブルのSELECT列。scanUserの順序と一致させること。
const userColumns = `id, username, full_name, email, password_hash, location,
	refresh_token_hash, refresh_token_expires_at, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByEmailOrUsername はemailまたはusernameが一致するユーザーを検索する。
// 空文字の条件はNULLとして扱われ、どの行にも一致しない。
func (r *PostgresUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email = $1 OR username = $2
		 ORDER BY created_at ASC
		 LIMIT 1`,
		nullString(strings.ToLower(strings.TrimSpace(email))), nullString(username),
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email or username: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。emailが重複する場合はErrDuplicateEmailを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, full_name, email, password_hash, location, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.FullName, user.Email, user.PasswordHash,
		user.Location, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err, "idx_users_email") {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfile はプロフィール項目を部分更新し、更新後のユーザーを返す。
// nilのフィールドはCOALESCEで既存値を維持する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) (*model.User, error) {
	var email *string
	if patch.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*patch.Email))
		email = &normalized
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET
		    username = COALESCE($2, username),
		    full_name = COALESCE($3, full_name),
		    email = COALESCE($4, email),
		    location = COALESCE($5, location),
		    updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, patch.Username, patch.FullName, email, patch.Location,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if isUniqueViolation(err, "idx_users_email") {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return user, nil
}

// SetRefreshToken はリフレッシュトークンのハッシュを無条件に上書きする。
func (r *PostgresUserRepo) SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = $2, refresh_token_expires_at = $3, updated_at = now()
		 WHERE id = $1`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// SwapRefreshToken は保存済みハッシュがoldHashと一致する場合のみnewHashに置き換える。
// 同じトークンによる同時リフレッシュは片方のみ成功する。
func (r *PostgresUserRepo) SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = $3, refresh_token_expires_at = $4, updated_at = now()
		 WHERE id = $1 AND refresh_token_hash = $2`,
		userID, oldHash, newHash, expiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to swap refresh token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ClearRefreshToken はリフレッシュトークンを削除する。
func (r *PostgresUserRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = now()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var refreshHash sql.NullString
	var refreshExpiresAt sql.NullTime
	if err := row.Scan(
		&user.ID, &user.Username, &user.FullName, &user.Email, &user.PasswordHash, &user.Location,
		&refreshHash, &refreshExpiresAt, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.RefreshTokenHash = nullStringValue(refreshHash)
	if refreshExpiresAt.Valid {
		user.RefreshTokenExpiresAt = &refreshExpiresAt.Time
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
