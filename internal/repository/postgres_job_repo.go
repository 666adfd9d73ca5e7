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

// jobColumns はjobsテーブルのSELECT列。scanJobの順序と一致させること。
const jobColumns = `id, company, position, work_location, status, work_type, created_by, created_at, updated_at`

// PostgresJobRepo はPostgreSQLを使用した求人リポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// Create は求人を作成する。
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, company, position, work_location, status, work_type, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.Company, job.Position, job.WorkLocation,
		job.Status, job.WorkType, job.CreatedBy, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("求人の作成に失敗しました: %w", err)
	}
	return nil
}

// List は検索条件に一致する求人をページ単位で返す。
func (r *PostgresJobRepo) List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	query, args := buildJobListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	jobs := make([]*model.Job, 0, filter.Limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("求人行の読み取りに失敗しました: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("求人一覧の走査に失敗しました: %w", err)
	}

	return jobs, nil
}

// Count は検索条件に一致する求人の総数を返す。
func (r *PostgresJobRepo) Count(ctx context.Context, filter model.JobFilter) (int, error) {
	where, args := buildJobWhere(filter)

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM jobs`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("求人数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Update は所有者の求人を部分更新し、更新後の求人を返す。
// 見つからない場合、または他ユーザーの求人の場合はnilを返す。
func (r *PostgresJobRepo) Update(ctx context.Context, ownerID, jobID string, patch model.JobPatch) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE jobs SET
		    company = COALESCE($3, company),
		    position = COALESCE($4, position),
		    work_location = COALESCE($5, work_location),
		    status = COALESCE($6, status),
		    work_type = COALESCE($7, work_type),
		    updated_at = now()
		 WHERE id = $1 AND created_by = $2
		 RETURNING `+jobColumns,
		jobID, ownerID,
		patch.Company, patch.Position, patch.WorkLocation,
		enumPtr(patch.Status), enumPtr(patch.WorkType),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("求人の更新に失敗しました: %w", err)
	}
	return job, nil
}

// Delete は所有者の求人を削除し、削除した求人を返す。
// 見つからない場合、または他ユーザーの求人の場合はnilを返す。
func (r *PostgresJobRepo) Delete(ctx context.Context, ownerID, jobID string) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND created_by = $2 RETURNING `+jobColumns,
		jobID, ownerID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("求人の削除に失敗しました: %w", err)
	}
	return job, nil
}

// CountByStatus は応募状況ごとの件数を返す。
func (r *PostgresJobRepo) CountByStatus(ctx context.Context, ownerID string) ([]model.StatusCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, count(*) FROM jobs WHERE created_by = $1 GROUP BY status`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("応募状況別の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	var counts []model.StatusCount
	for rows.Next() {
		var c model.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("集計行の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("集計結果の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// CountByMonth は作成年月（UTC）ごとの件数を新しい順に返す。
func (r *PostgresJobRepo) CountByMonth(ctx context.Context, ownerID string) ([]model.MonthlyCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS year,
		        EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month,
		        count(*)
		 FROM jobs
		 WHERE created_by = $1
		 GROUP BY year, month
		 ORDER BY year DESC, month DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("月別の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	var counts []model.MonthlyCount
	for rows.Next() {
		var c model.MonthlyCount
		var month int
		if err := rows.Scan(&c.Year, &month, &c.Count); err != nil {
			return nil, fmt.Errorf("集計行の読み取りに失敗しました: %w", err)
		}
		c.Month = time.Month(month)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("集計結果の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// buildJobWhere は一覧と件数取得で共有するWHERE句と引数を構築する。
// created_byは常に条件に含める。
func buildJobWhere(filter model.JobFilter) (string, []any) {
	var b strings.Builder
	args := []any{filter.OwnerID}
	b.WriteString(" WHERE created_by = $1")

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}
	if filter.WorkType != "" {
		args = append(args, string(filter.WorkType))
		fmt.Fprintf(&b, " AND work_type = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		fmt.Fprintf(&b, " AND position ILIKE $%d", len(args))
	}

	return b.String(), args
}

// buildJobListQuery は一覧取得のSELECT文と引数を構築する。
// 未知のソート指定の場合はORDER BYを付けない。
func buildJobListQuery(filter model.JobFilter) (string, []any) {
	where, args := buildJobWhere(filter)

	var b strings.Builder
	b.WriteString(`SELECT ` + jobColumns + ` FROM jobs`)
	b.WriteString(where)
	if orderBy := jobOrderBy(filter.Sort); orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}

	args = append(args, filter.Limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	fmt.Fprintf(&b, " OFFSET $%d", len(args))

	return b.String(), args
}

// jobOrderBy はソート指定をORDER BY句に変換する。
// 同順位の行はidで並べ、ページ間で順序が揺れないようにする。
func jobOrderBy(sort model.JobSort) string {
	switch sort {
	case model.JobSortLatest:
		return "created_at DESC, id DESC"
	case model.JobSortOldest:
		return "created_at ASC, id ASC"
	case model.JobSortAZ:
		return "position ASC, id ASC"
	case model.JobSortZA:
		return "position DESC, id DESC"
	default:
		return ""
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// enumPtr は文字列型の列挙値ポインタをSQL引数に変換する。
func enumPtr[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func scanJob(row rowScanner) (*model.Job, error) {
	job := &model.Job{}
	if err := row.Scan(
		&job.ID, &job.Company, &job.Position, &job.WorkLocation,
		&job.Status, &job.WorkType, &job.CreatedBy, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return job, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
