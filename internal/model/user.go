// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashとRefreshTokenHashはレスポンスに含めてはならない。
type User struct {
	ID                    string
	Username              string
	FullName              string
	Email                 string
	PasswordHash          string
	Location              string
	RefreshTokenHash      string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Identity はアクセストークンから復元した認証済みユーザーの情報を表す。
type Identity struct {
	UserID   string
	Email    string
	Username string
}

// TokenPair はアクセストークンとリフレッシュトークンの組を表す。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
