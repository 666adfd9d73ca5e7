// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/arbaazshaikh08/job-app/internal/model"
)

// ErrDuplicateEmail はemailの一意制約に違反した場合に返される。
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByEmailOrUsername はemailまたはusernameが一致するユーザーを検索する。
	// 空文字の条件は無視する。複数一致した場合は最も古いユーザーを返す。
	// 見つからない場合はnilを返す。
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)

	// Create はユーザーを作成する。emailが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はプロフィール項目を部分更新し、更新後のユーザーを返す。
	// password_hashは更新しない。見つからない場合はnilを返す。
	// emailが重複する場合はErrDuplicateEmailを返す。
	UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) (*model.User, error)

	// SetRefreshToken はリフレッシュトークンのハッシュを無条件に上書きする。
	SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// SwapRefreshToken は保存済みハッシュがoldHashと一致する場合のみnewHashに置き換える。
	// 置き換えた場合はtrueを返す。
	SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) (bool, error)

	// ClearRefreshToken はリフレッシュトークンを削除する。
	ClearRefreshToken(ctx context.Context, userID string) error
}

// JobRepository は求人データの永続化インターフェース。
// 全ての操作は所有者IDで絞り込まれる。
type JobRepository interface {
	// Create は求人を作成する。
	Create(ctx context.Context, job *model.Job) error

	// List は検索条件に一致する求人をページ単位で返す。
	List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)

	// Count は検索条件に一致する求人の総数を返す。Limit、Offset、Sortは無視する。
	Count(ctx context.Context, filter model.JobFilter) (int, error)

	// Update は所有者の求人を部分更新し、更新後の求人を返す。
	// 見つからない場合、または他ユーザーの求人の場合はnilを返す。
	Update(ctx context.Context, ownerID, jobID string, patch model.JobPatch) (*model.Job, error)

	// Delete は所有者の求人を削除し、削除した求人を返す。
	// 見つからない場合、または他ユーザーの求人の場合はnilを返す。
	Delete(ctx context.Context, ownerID, jobID string) (*model.Job, error)

	// CountByStatus は応募状況ごとの件数を返す。存在しない状況は含まれない。
	CountByStatus(ctx context.Context, ownerID string) ([]model.StatusCount, error)

	// CountByMonth は作成年月（UTC）ごとの件数を新しい順に返す。
	CountByMonth(ctx context.Context, ownerID string) ([]model.MonthlyCount, error)
}
