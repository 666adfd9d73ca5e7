package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arbaazshaikh08/job-app/internal/metrics"
	"github.com/arbaazshaikh08/job-app/internal/middleware"
)

// HealthChecker はヘルスチェック用にデータストアへの疎通を確認する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AccessVerifier    middleware.AccessVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	BodyLimitBytes    int64
	Logger            *slog.Logger

	// 監視
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
	HealthChecker  HealthChecker

	// ユーザー・認証
	UserService UserServiceInterface
	AuthService AuthServiceInterface
	Cookie      CookieConfig

	// 求人
	JobService JobServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS → BodyLimit
//
// 認証が必要なルートには、さらに AuthMiddleware → RateLimit(GeneralMiddleware) を適用する。
// 登録・ログイン・トークン更新にはIP単位のRateLimit(AuthMiddleware)を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewBodyLimitMiddleware(deps.BodyLimitBytes))

	userHandler := NewUserHandler(deps.UserService, deps.AuthService, deps.Cookie)
	jobHandler := NewJobHandler(deps.JobService)

	authLimit := passThrough
	generalLimit := passThrough
	if deps.RateLimiter != nil {
		authLimit = deps.RateLimiter.AuthMiddleware()
		generalLimit = deps.RateLimiter.GeneralMiddleware()
	}
	authGate := middleware.NewAuthMiddleware(deps.AccessVerifier)

	// --- 認証不要のルート ---

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Server is live ✅"))
	})
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register-user", userHandler.Register)
			r.Post("/login-user", userHandler.Login)
			r.Post("/refresh-token", userHandler.RefreshToken)
		})

		// --- 認証必須のルート ---
		r.Group(func(r chi.Router) {
			r.Use(authGate)
			r.Use(generalLimit)
			r.Post("/logout-user", userHandler.Logout)
			r.Post("/update-user", userHandler.UpdateUser)
		})
	})

	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Use(authGate)
		r.Use(generalLimit)
		r.Post("/create-job", jobHandler.CreateJob)
		r.Get("/get-jobs", jobHandler.GetJobs)
		r.Post("/update-job/{jobId}", jobHandler.UpdateJob)
		r.Delete("/delete-job/{jobId}", jobHandler.DeleteJob)
		r.Post("/job-stats", jobHandler.JobStats)
	})

	return r
}

func passThrough(next http.Handler) http.Handler { return next }

// healthHandler はデータストアへの疎通を確認し、結果をJSONで返す。
// checkerがnilの場合は常にokを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
