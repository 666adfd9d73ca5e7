package middleware

import "net/http"

// NewBodyLimitMiddleware はリクエストボディをlimitバイトまでに制限するミドルウェアを返す。
// 超過分を読み込もうとした時点でボディの読み取りがエラーになる。
func NewBodyLimitMiddleware(limit int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
