// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/arbaazshaikh08/job-app/internal/model"
)

// トークンを格納するCookie名
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みユーザー情報を格納するためのキー。
var identityContextKey = contextKey("identity")

// AccessVerifier はアクセストークンの検証に必要なインターフェース。
// auth.Serviceが実装する。
type AccessVerifier interface {
	VerifyAccess(raw string) (*model.Identity, error)
}

// NewAuthMiddleware はアクセストークンを検証するミドルウェアを返す。
// トークンはaccessToken Cookie、なければAuthorization: Bearerヘッダーから読み取る。
// 認証済みユーザー情報をリクエストコンテキストに注入する。
// 未認証リクエストには401を返し、後続のハンドラーは実行しない。
func NewAuthMiddleware(verifier AccessVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := AccessTokenFromRequest(r)
			if raw == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Unauthorized request"))
				return
			}

			identity, err := verifier.VerifyAccess(raw)
			if err != nil {
				apiErr, ok := model.AsAPIError(err)
				if !ok {
					apiErr = model.NewUnauthorizedError("Invalid access token")
				}
				WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
				return
			}

			recordUserID(r.Context(), identity.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// AccessTokenFromRequest はリクエストからアクセストークンを取り出す。
// Cookieを優先し、なければBearerヘッダーを使う。見つからない場合は空文字を返す。
func AccessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// IdentityFromContext はリクエストコンテキストから認証済みユーザー情報を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	return identity, ok && identity != nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return identity.UserID, nil
}

// ContextWithIdentity はコンテキストに認証済みユーザー情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
