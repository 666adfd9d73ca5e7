package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arbaazshaikh08/job-app/internal/job"
	"github.com/arbaazshaikh08/job-app/internal/model"
)

// JobServiceInterface は求人ハンドラーが必要とするサービスインターフェース。
type JobServiceInterface interface {
	Create(ctx context.Context, ownerID string, in job.CreateInput) (*model.Job, error)
	List(ctx context.Context, ownerID string, q job.ListQuery) (*model.JobPage, error)
	Update(ctx context.Context, ownerID, jobID string, in job.UpdateInput) (*model.Job, error)
	Delete(ctx context.Context, ownerID, jobID string) (*model.Job, error)
	Stats(ctx context.Context, ownerID string) (*model.JobStats, error)
}

// JobHandler は求人管理のHTTPハンドラー。
type JobHandler struct {
	service JobServiceInterface
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(service JobServiceInterface) *JobHandler {
	return &JobHandler{service: service}
}

type jobListPayload struct {
	TotalJobs int           `json:"totalJobs"`
	Jobs      []jobResponse `json:"jobs"`
	NumOfPage int           `json:"numOfPage"`
}

type monthlyPayload struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type jobStatsPayload struct {
	TotalJobs          int              `json:"totalJobs"`
	DefaultStats       map[string]int   `json:"defaultStats"`
	MonthlyApplication []monthlyPayload `json:"monthlyApplication"`
}

// CreateJob は求人を作成する。
// POST /api/v1/jobs/create-job
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req job.CreateInput
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, toJobResponse(created), "Job created successfully")
}

// GetJobs は求人一覧を検索条件とページングを適用して返す。
// GET /api/v1/jobs/get-jobs?status=&workType=&search=&sort=&page=&limit=
func (h *JobHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := parseOptionalInt(q.Get("page"))
	if err != nil {
		handleServiceError(w, r, model.NewValidationError("page must be a number"))
		return
	}
	limit, err := parseOptionalInt(q.Get("limit"))
	if err != nil {
		handleServiceError(w, r, model.NewValidationError("limit must be a number"))
		return
	}

	result, err := h.service.List(r.Context(), userID, job.ListQuery{
		Status:   q.Get("status"),
		WorkType: q.Get("workType"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, jobListPayload{
		TotalJobs: result.TotalJobs,
		Jobs:      toJobResponses(result.Jobs),
		NumOfPage: result.NumOfPage,
	}, "Jobs fetched successfully")
}

// UpdateJob は自分の求人を部分更新する。
// POST /api/v1/jobs/update-job/{jobId}
func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req job.UpdateInput
	if err := decodeBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "jobId"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, toJobResponse(updated), "Job updated successfully")
}

// DeleteJob は自分の求人を削除し、削除した求人を返す。
// DELETE /api/v1/jobs/delete-job/{jobId}
func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "jobId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, toJobResponse(deleted), "Job deleted successfully")
}

// JobStats は応募状況別と月別の集計を返す。
// POST /api/v1/jobs/job-stats
func (h *JobHandler) JobStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	defaults := make(map[string]int, len(stats.DefaultStats))
	for status, count := range stats.DefaultStats {
		defaults[string(status)] = count
	}
	monthly := make([]monthlyPayload, len(stats.MonthlyApplication))
	for i, m := range stats.MonthlyApplication {
		monthly[i] = monthlyPayload{Date: m.Date, Count: m.Count}
	}

	writeSuccess(w, http.StatusOK, jobStatsPayload{
		TotalJobs:          stats.TotalJobs,
		DefaultStats:       defaults,
		MonthlyApplication: monthly,
	}, "Job stats fetched successfully")
}

// parseOptionalInt は空文字を0として扱う。
func parseOptionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
