package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arbaazshaikh08/job-app/internal/model"
)

func TestPostgresJobRepo_ImplementsInterface(t *testing.T) {
	var _ JobRepository = (*PostgresJobRepo)(nil)
}

func TestBuildJobWhere_AlwaysScopesByOwner(t *testing.T) {
	where, args := buildJobWhere(model.JobFilter{OwnerID: "owner-1"})

	if where != " WHERE created_by = $1" {
		t.Errorf("where = %q", where)
	}
	if !reflect.DeepEqual(args, []any{"owner-1"}) {
		t.Errorf("args = %v", args)
	}
}

func TestBuildJobWhere_AllFilters(t *testing.T) {
	where, args := buildJobWhere(model.JobFilter{
		OwnerID:  "owner-1",
		Status:   model.JobStatusInterview,
		WorkType: model.WorkTypeContract,
		Search:   "eng",
	})

	want := " WHERE created_by = $1 AND status = $2 AND work_type = $3 AND position ILIKE $4"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	wantArgs := []any{"owner-1", "interview", "contract", "%eng%"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestBuildJobWhere_EscapesLikeMetacharacters(t *testing.T) {
	_, args := buildJobWhere(model.JobFilter{OwnerID: "o", Search: `50%_off\`})

	if got := args[1]; got != `%50\%\_off\\%` {
		t.Errorf("search arg = %q", got)
	}
}

func TestBuildJobListQuery_SortAndPagination(t *testing.T) {
	tests := []struct {
		sort      model.JobSort
		wantOrder string
	}{
		{model.JobSortLatest, "ORDER BY created_at DESC, id DESC"},
		{model.JobSortOldest, "ORDER BY created_at ASC, id ASC"},
		{model.JobSortAZ, "ORDER BY position ASC, id ASC"},
		{model.JobSortZA, "ORDER BY position DESC, id DESC"},
		{"", ""},
		{"random", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			query, args := buildJobListQuery(model.JobFilter{
				OwnerID: "owner-1",
				Sort:    tt.sort,
				Limit:   10,
				Offset:  20,
			})

			if tt.wantOrder == "" {
				if strings.Contains(query, "ORDER BY") {
					t.Errorf("query should not contain ORDER BY: %s", query)
				}
			} else if !strings.Contains(query, tt.wantOrder) {
				t.Errorf("query = %s, want to contain %q", query, tt.wantOrder)
			}

			if !strings.HasSuffix(query, "LIMIT $2 OFFSET $3") {
				t.Errorf("query should end with LIMIT/OFFSET placeholders: %s", query)
			}
			if !reflect.DeepEqual(args, []any{"owner-1", 10, 20}) {
				t.Errorf("args = %v", args)
			}
		})
	}
}

func TestEnumPtr(t *testing.T) {
	if got := enumPtr[model.JobStatus](nil); got != nil {
		t.Errorf("enumPtr(nil) = %v, want nil", got)
	}
	s := model.JobStatusReject
	if got := enumPtr(&s); got != "reject" {
		t.Errorf("enumPtr(&reject) = %v, want %q", got, "reject")
	}
}

func createTestOwner(t *testing.T, repo *PostgresUserRepo, email string) *model.User {
	t.Helper()
	user := newTestUser(email, strings.Split(email, "@")[0])
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	return user
}

func newTestJob(ownerID, position string, createdAt time.Time) *model.Job {
	return &model.Job{
		ID:           uuid.NewString(),
		Company:      "Acme",
		Position:     position,
		WorkLocation: "Remote",
		Status:       model.JobStatusPending,
		WorkType:     model.WorkTypeFullTime,
		CreatedBy:    ownerID,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestPostgresJobRepo_ListAndCount_Pagination(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresJobRepo(db)
	ctx := context.Background()

	owner := createTestOwner(t, users, "pager@example.com")
	other := createTestOwner(t, users, "other@example.com")

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 23; i++ {
		if err := repo.Create(ctx, newTestJob(owner.ID, fmt.Sprintf("Role %02d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	if err := repo.Create(ctx, newTestJob(other.ID, "Foreign", base)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	filter := model.JobFilter{OwnerID: owner.ID, Sort: model.JobSortOldest, Limit: 10, Offset: 20}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if total != 23 {
		t.Errorf("total = %d, want 23", total)
	}

	jobs, err := repo.List(ctx, filter)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len(jobs) = %d, want 3", len(jobs))
	}
	if jobs[0].Position != "Role 20" {
		t.Errorf("first job on page 3 = %q, want %q", jobs[0].Position, "Role 20")
	}
}

func TestPostgresJobRepo_UpdateAndDelete_EnforceOwnership(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresJobRepo(db)
	ctx := context.Background()

	owner := createTestOwner(t, users, "owner@example.com")
	intruder := createTestOwner(t, users, "intruder@example.com")

	job := newTestJob(owner.ID, "Engineer", time.Now().UTC())
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	company := "Globex"
	got, err := repo.Update(ctx, intruder.ID, job.ID, model.JobPatch{Company: &company})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got != nil {
		t.Fatal("update by another user must not find the job")
	}

	status := model.JobStatusInterview
	got, err = repo.Update(ctx, owner.ID, job.ID, model.JobPatch{Company: &company, Status: &status})
	if err != nil || got == nil {
		t.Fatalf("Update = %v, %v", got, err)
	}
	if got.Company != "Globex" || got.Position != "Engineer" || got.Status != model.JobStatusInterview {
		t.Errorf("unexpected job after update: %+v", got)
	}

	deleted, err := repo.Delete(ctx, owner.ID, job.ID)
	if err != nil || deleted == nil {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	again, err := repo.Delete(ctx, owner.ID, job.ID)
	if err != nil {
		t.Fatalf("second Delete returned error: %v", err)
	}
	if again != nil {
		t.Error("second delete should find nothing")
	}
}

func TestPostgresJobRepo_Aggregations(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresJobRepo(db)
	ctx := context.Background()

	owner := createTestOwner(t, users, "stats@example.com")
	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

	for _, j := range []*model.Job{
		newTestJob(owner.ID, "A", march),
		newTestJob(owner.ID, "B", march),
		newTestJob(owner.ID, "C", april),
	} {
		if err := repo.Create(ctx, j); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	byStatus, err := repo.CountByStatus(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CountByStatus returned error: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Status != model.JobStatusPending || byStatus[0].Count != 3 {
		t.Errorf("byStatus = %+v", byStatus)
	}

	byMonth, err := repo.CountByMonth(ctx, owner.ID)
	if err != nil {
		t.Fatalf("CountByMonth returned error: %v", err)
	}
	want := []model.MonthlyCount{
		{Year: 2024, Month: time.April, Count: 1},
		{Year: 2024, Month: time.March, Count: 2},
	}
	if !reflect.DeepEqual(byMonth, want) {
		t.Errorf("byMonth = %+v, want %+v", byMonth, want)
	}
}
