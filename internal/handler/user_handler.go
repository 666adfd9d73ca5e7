package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/arbaazshaikh08/job-app/internal/auth"
	"github.com/arbaazshaikh08/job-app/internal/middleware"
	"github.com/arbaazshaikh08/job-app/internal/model"
	"github.com/arbaazshaikh08/job-app/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするユーザー管理のサービスインターフェース。
type UserServiceInterface interface {
	Register(ctx context.Context, in user.RegisterInput) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, in user.ProfileInput) (*model.User, error)
}

// AuthServiceInterface はユーザーハンドラーが必要とする認証のサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
	Refresh(ctx context.Context, raw string) (*model.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

// CookieConfig はトークンCookieの属性。
type CookieConfig struct {
	Secure     bool
	Domain     string
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// UserHandler はユーザー管理と認証のHTTPハンドラー。
type UserHandler struct {
	users  UserServiceInterface
	auth   AuthServiceInterface
	cookie CookieConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserServiceInterface, authService AuthServiceInterface, cookie CookieConfig) *UserHandler {
	return &UserHandler{
		users:  users,
		auth:   authService,
		cookie: cookie,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginPayload struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Register はユーザーを登録する。
// POST /api/v1/users/register-user
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	created, err := h.users.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, toUserResponse(created), "User registered successfully")
}

// Login はemailまたはusernameとパスワードで認証し、トークンをCookieとボディの両方で返す。
// POST /api/v1/users/login-user
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, result.Tokens)
	writeSuccess(w, http.StatusOK, loginPayload{
		User:         toUserResponse(result.User),
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// RefreshToken はリフレッシュトークンをローテーションし、新しいトークンペアを返す。
// トークンはCookieを優先し、なければボディのrefreshTokenを使う。
// POST /api/v1/users/refresh-token
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var fromCookie string
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		fromCookie = c.Value
	}

	var req refreshRequest
	if fromCookie == "" {
		if err := decodeBody(r, &req); err != nil {
			writeBodyError(w, r, err)
			return
		}
	}

	raw := firstNonEmpty(fromCookie, req.RefreshToken)
	if raw == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Unauthorized request"))
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	writeSuccess(w, http.StatusOK, tokenPayload{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// Logout は保存済みのリフレッシュトークンを破棄し、トークンCookieを削除する。
// POST /api/v1/users/logout-user
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.auth.Logout(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.clearTokenCookies(w)
	writeSuccess(w, http.StatusOK, struct{}{}, "User logged out")
}

// UpdateUser はログイン中のユーザーのプロフィールを更新する。
// POST /api/v1/users/update-user
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req user.ProfileInput
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, toUserResponse(updated), "Account details updated successfully")
}

func (h *UserHandler) setTokenCookies(w http.ResponseWriter, tokens *model.TokenPair) {
	http.SetCookie(w, h.newCookie(middleware.AccessTokenCookie, tokens.AccessToken, int(h.cookie.AccessTTL.Seconds())))
	http.SetCookie(w, h.newCookie(middleware.RefreshTokenCookie, tokens.RefreshToken, int(h.cookie.RefreshTTL.Seconds())))
}

func (h *UserHandler) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.newCookie(middleware.AccessTokenCookie, "", -1))
	http.SetCookie(w, h.newCookie(middleware.RefreshTokenCookie, "", -1))
}

func (h *UserHandler) newCookie(name, value string, maxAge int) *http.Cookie {
	sameSite := h.cookie.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: sameSite,
	}
}
