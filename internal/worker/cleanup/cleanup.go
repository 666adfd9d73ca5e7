// Package cleanup は期限切れリフレッシュトークンの定期削除ジョブを提供する。
// 期限を過ぎたトークンのハッシュをusersテーブルから消去する。
// 有効期限はトークン検証時にも確認するため、このジョブは保存データの整理のみを担う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const clearExpiredTokensQuery = `
	UPDATE users
	SET refresh_token_hash = NULL, refresh_token_expires_at = NULL
	WHERE refresh_token_hash IS NOT NULL AND refresh_token_expires_at < $1`

// CleanupJob は期限切れリフレッシュトークンの削除ジョブ。
// 何度実行しても結果は変わらない。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
	now    func() time.Time
	Grace  time.Duration // 期限切れからの猶予期間（デフォルト: 0）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Run は有効期限がGraceより前に切れたリフレッシュトークンを消去する。
// 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().UTC().Add(-j.Grace)

	result, err := j.db.ExecContext(ctx, clearExpiredTokensQuery, cutoff)
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	cleared, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("消去件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("消去件数の取得に失敗: %w", err)
	}

	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("cleared_count", cleared),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// RunEvery はintervalごとにRunを実行する。ctxがキャンセルされるまで戻らない。
// 起動直後に1回実行する。失敗はログに記録して次回に持ち越す。
func (j *CleanupJob) RunEvery(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
