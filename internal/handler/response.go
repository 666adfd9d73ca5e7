// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/arbaazshaikh08/job-app/internal/middleware"
	"github.com/arbaazshaikh08/job-app/internal/model"
)

// apiResponse は成功レスポンスの統一フォーマット。
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// writeSuccess は成功レスポンスを書き込む。
func writeSuccess(w http.ResponseWriter, statusCode int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(apiResponse{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーは詳細をログにのみ記録し、500を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		middleware.WriteErrorResponse(w, middleware.StatusForCode(apiErr.Code), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// errRequestTooLarge はボディが上限を超えた場合のエラー。
var errRequestTooLarge = errors.New("request body too large")

// decodeBody はJSONまたはフォーム形式のリクエストボディをdstに読み込む。
// フォーム形式の場合は各項目の最初の値をjsonタグ名で対応付ける。
// 空のボディは何も読み込まずに成功とする。
func decodeBody(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return classifyBodyError(err)
		}
		fields := make(map[string]string, len(r.PostForm))
		for key, values := range r.PostForm {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to encode form: %w", err)
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return model.NewValidationError("Invalid form body")
		}
		return nil
	default:
		if r.Body == nil || r.Body == http.NoBody {
			return nil
		}
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return classifyBodyError(err)
		}
		return nil
	}
}

func classifyBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errRequestTooLarge
	}
	return model.NewValidationError("Invalid request body")
}

// writeBodyError はdecodeBodyのエラーをレスポンスに変換する。
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errRequestTooLarge) {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewValidationError("Request body too large"))
		return
	}
	handleServiceError(w, r, err)
}

// requireUserID は認証ミドルウェアが注入したユーザーIDを返す。
// 見つからない場合は401を書き込み、falseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Unauthorized request"))
		return "", false
	}
	return userID, true
}

// --- レスポンスDTO ---

// userResponse はユーザー情報のレスポンス。パスワードとトークンのハッシュは含まない。
type userResponse struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// jobResponse は求人のレスポンス。
type jobResponse struct {
	ID           string    `json:"_id"`
	Company      string    `json:"company"`
	Position     string    `json:"position"`
	WorkLocation string    `json:"workLocation"`
	Status       string    `json:"status"`
	WorkType     string    `json:"workType"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toJobResponse(j *model.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		Company:      j.Company,
		Position:     j.Position,
		WorkLocation: j.WorkLocation,
		Status:       string(j.Status),
		WorkType:     string(j.WorkType),
		CreatedBy:    j.CreatedBy,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func toJobResponses(jobs []*model.Job) []jobResponse {
	out := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toJobResponse(j)
	}
	return out
}

// firstNonEmpty は空でない最初の値を返す。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
