// Package job は応募先求人の登録・検索・更新・削除・集計のドメインロジックを提供する。
// 全ての操作は呼び出し元ユーザーが所有する求人に限定される。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arbaazshaikh08/job-app/internal/metrics"
	"github.com/arbaazshaikh08/job-app/internal/model"
	"github.com/arbaazshaikh08/job-app/internal/repository"
	"github.com/arbaazshaikh08/job-app/internal/security"
	"github.com/arbaazshaikh08/job-app/internal/validation"
)

// 一覧取得のページングの既定値
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// monthLabelLayout は月次集計のラベル形式（例: "Mar 2024"）。
const monthLabelLayout = "Jan 2006"

// filterAll は絞り込みを行わない指定値。
const filterAll = "all"

// CreateInput は求人作成の入力を表す。Status、WorkTypeは省略可能。
type CreateInput struct {
	Company      string `json:"company" validate:"notblank"`
	Position     string `json:"position" validate:"notblank,max=100"`
	WorkLocation string `json:"workLocation" validate:"notblank"`
	Status       string `json:"status" validate:"jobstatus"`
	WorkType     string `json:"workType" validate:"worktype"`
}

// UpdateInput は求人更新の入力を表す。nilまたは空白のみの項目は更新しない。
type UpdateInput struct {
	Company      *string `json:"company"`
	Position     *string `json:"position"`
	WorkLocation *string `json:"workLocation"`
	Status       *string `json:"status"`
	WorkType     *string `json:"workType"`
}

// ListQuery は一覧取得の検索条件を表す。
// 0以下のPage、Limitは既定値として扱う。
type ListQuery struct {
	Status   string
	WorkType string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// Service は求人管理のサービス層。
type Service struct {
	jobRepo   repository.JobRepository
	sanitizer security.TextSanitizerService
	validator *validation.Validator
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	jobRepo repository.JobRepository,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		jobRepo:   jobRepo,
		sanitizer: sanitizer,
		validator: validation.New(),
		metrics:   metrics.OrNop(collector),
		now:       time.Now,
	}
}

// Create は呼び出し元ユーザーの求人を作成する。
// Statusの既定値はpending、WorkTypeの既定値はfull-time。
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Job, error) {
	in.Company = s.sanitizer.Sanitize(in.Company)
	in.Position = s.sanitizer.Sanitize(in.Position)
	in.WorkLocation = s.sanitizer.Sanitize(in.WorkLocation)
	in.Status = normalizeStatus(in.Status)
	in.WorkType = strings.ToLower(strings.TrimSpace(in.WorkType))

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	status := model.JobStatusPending
	if in.Status != "" {
		status = model.JobStatus(in.Status)
	}
	workType := model.WorkTypeFullTime
	if in.WorkType != "" {
		workType = model.WorkType(in.WorkType)
	}

	now := s.now().UTC()
	job := &model.Job{
		ID:           uuid.NewString(),
		Company:      in.Company,
		Position:     in.Position,
		WorkLocation: in.WorkLocation,
		Status:       status,
		WorkType:     workType,
		CreatedBy:    ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("求人の作成に失敗しました: %w", err)
	}

	s.metrics.RecordJobCreated()
	slog.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("user_id", ownerID),
	)

	return job, nil
}

// List は検索条件に一致する呼び出し元ユーザーの求人をページ単位で返す。
func (s *Service) List(ctx context.Context, ownerID string, q ListQuery) (*model.JobPage, error) {
	page := q.Page
	if page <= 0 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	filter := model.JobFilter{
		OwnerID: ownerID,
		Search:  strings.TrimSpace(q.Search),
		Sort:    model.JobSort(strings.TrimSpace(q.Sort)),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	if st := strings.TrimSpace(q.Status); st != "" && st != filterAll {
		filter.Status = model.JobStatus(normalizeStatus(st))
	}
	if wt := strings.TrimSpace(q.WorkType); wt != "" && wt != filterAll {
		filter.WorkType = model.WorkType(wt)
	}

	total, err := s.jobRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("求人数の取得に失敗しました: %w", err)
	}

	jobs := []*model.Job{}
	if total > filter.Offset {
		jobs, err = s.jobRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("求人一覧の取得に失敗しました: %w", err)
		}
	}

	return &model.JobPage{
		TotalJobs: total,
		Jobs:      jobs,
		NumOfPage: (total + limit - 1) / limit,
	}, nil
}

// Update は呼び出し元ユーザーの求人を部分更新する。
// 更新対象の項目が1つもない場合はリポジトリを呼ばずにValidationErrorを返す。
func (s *Service) Update(ctx context.Context, ownerID, jobID string, in UpdateInput) (*model.Job, error) {
	var patch model.JobPatch

	patch.Company = s.cleanText(in.Company)
	patch.Position = s.cleanText(in.Position)
	patch.WorkLocation = s.cleanText(in.WorkLocation)

	if in.Status != nil {
		if v := normalizeStatus(*in.Status); v != "" {
			st := model.JobStatus(v)
			if !st.Valid() {
				return nil, model.NewValidationError("status must be one of: pending, reject, interview")
			}
			patch.Status = &st
		}
	}
	if in.WorkType != nil {
		if v := strings.ToLower(strings.TrimSpace(*in.WorkType)); v != "" {
			wt := model.WorkType(v)
			if !wt.Valid() {
				return nil, model.NewValidationError("workType must be one of: full-time, part-time, internship, contract")
			}
			patch.WorkType = &wt
		}
	}

	if patch.IsEmpty() {
		return nil, model.NewValidationError("Please provide at least one field to update")
	}
	if patch.Position != nil && len([]rune(*patch.Position)) > model.MaxPositionLength {
		return nil, model.NewValidationError(fmt.Sprintf("position must be at most %d characters", model.MaxPositionLength))
	}

	if _, err := uuid.Parse(jobID); err != nil {
		return nil, model.NewJobNotFoundError(jobID)
	}

	job, err := s.jobRepo.Update(ctx, ownerID, jobID, patch)
	if err != nil {
		return nil, fmt.Errorf("求人の更新に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(jobID)
	}

	slog.Info("job updated",
		slog.String("job_id", jobID),
		slog.String("user_id", ownerID),
	)
	return job, nil
}

// Delete は呼び出し元ユーザーの求人を削除し、削除した求人を返す。
func (s *Service) Delete(ctx context.Context, ownerID, jobID string) (*model.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, model.NewJobNotFoundError(jobID)
	}

	job, err := s.jobRepo.Delete(ctx, ownerID, jobID)
	if err != nil {
		return nil, fmt.Errorf("求人の削除に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(jobID)
	}

	s.metrics.RecordJobDeleted()
	slog.Info("job deleted",
		slog.String("job_id", jobID),
		slog.String("user_id", ownerID),
	)
	return job, nil
}

// Stats は呼び出し元ユーザーの求人を応募状況別と作成月別に集計する。
// 該当のない応募状況は0で埋める。月次集計は新しい月から並べる。
func (s *Service) Stats(ctx context.Context, ownerID string) (*model.JobStats, error) {
	byStatus, err := s.jobRepo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("応募状況別の集計に失敗しました: %w", err)
	}
	byMonth, err := s.jobRepo.CountByMonth(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("月別の集計に失敗しました: %w", err)
	}

	stats := &model.JobStats{
		DefaultStats:       make(map[model.JobStatus]int, len(model.JobStatuses)),
		MonthlyApplication: make([]model.MonthlyApplication, 0, len(byMonth)),
	}
	for _, st := range model.JobStatuses {
		stats.DefaultStats[st] = 0
	}
	for _, c := range byStatus {
		stats.DefaultStats[c.Status] += c.Count
		stats.TotalJobs += c.Count
	}
	for _, c := range byMonth {
		label := time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC).Format(monthLabelLayout)
		stats.MonthlyApplication = append(stats.MonthlyApplication, model.MonthlyApplication{
			Date:  label,
			Count: c.Count,
		})
	}

	return stats, nil
}

func (s *Service) cleanText(v *string) *string {
	if v == nil {
		return nil
	}
	out := s.sanitizer.Sanitize(*v)
	if out == "" {
		return nil
	}
	return &out
}

// normalizeStatus は応募状況の入力を正規化する。
// "rejected"は"reject"として扱う。
func normalizeStatus(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "rejected" {
		return string(model.JobStatusReject)
	}
	return v
}
