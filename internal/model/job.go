package model

import "time"

// JobStatus は応募状況を表す。
type JobStatus string

const (
	// JobStatusPending は選考待ち。
	JobStatusPending JobStatus = "pending"
	// JobStatusReject は不採用。
	JobStatusReject JobStatus = "reject"
	// JobStatusInterview は面接段階。
	JobStatusInterview JobStatus = "interview"
)

// JobStatuses は有効な応募状況の一覧。統計のゼロ埋めにも使う。
var JobStatuses = []JobStatus{JobStatusPending, JobStatusReject, JobStatusInterview}

// Valid は定義済みの値かどうかを返す。
func (s JobStatus) Valid() bool {
	for _, v := range JobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// WorkType は雇用形態を表す。
type WorkType string

const (
	WorkTypeFullTime   WorkType = "full-time"
	WorkTypePartTime   WorkType = "part-time"
	WorkTypeInternship WorkType = "internship"
	WorkTypeContract   WorkType = "contract"
)

// WorkTypes は有効な雇用形態の一覧。
var WorkTypes = []WorkType{WorkTypeFullTime, WorkTypePartTime, WorkTypeInternship, WorkTypeContract}

// Valid は定義済みの値かどうかを返す。
func (w WorkType) Valid() bool {
	for _, v := range WorkTypes {
		if w == v {
			return true
		}
	}
	return false
}

// MaxPositionLength は職種名の最大文字数。
const MaxPositionLength = 100

// Job はユーザーが記録する応募先の求人を表す。
type Job struct {
	ID           string
	Company      string
	Position     string
	WorkLocation string
	Status       JobStatus
	WorkType     WorkType
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobSort は一覧の並び順を表す。
type JobSort string

const (
	JobSortLatest JobSort = "latest"
	JobSortOldest JobSort = "oldest"
	JobSortAZ     JobSort = "a-z"
	JobSortZA     JobSort = "z-a"
)

// JobFilter は一覧取得の検索条件を表す。
// OwnerIDは必須で、常に検索条件に含まれる。
// Status、WorkTypeが空の場合は絞り込まない。
// Sortが未知の値の場合は並び順を指定しない。
type JobFilter struct {
	OwnerID  string
	Status   JobStatus
	WorkType WorkType
	Search   string
	Sort     JobSort
	Limit    int
	Offset   int
}

// JobPage は一覧取得の結果を表す。
type JobPage struct {
	TotalJobs int
	Jobs      []*Job
	NumOfPage int
}

// StatusCount は応募状況ごとの件数を表す。
type StatusCount struct {
	Status JobStatus
	Count  int
}

// MonthlyCount は年月ごとの応募件数を表す。
type MonthlyCount struct {
	Year  int
	Month time.Month
	Count int
}

// JobStats はダッシュボード用の集計結果を表す。
type JobStats struct {
	TotalJobs          int
	DefaultStats       map[JobStatus]int
	MonthlyApplication []MonthlyApplication
}

// MonthlyApplication は表示用ラベル付きの月次件数を表す。
type MonthlyApplication struct {
	Date  string
	Count int
}

// JobPatch は求人の部分更新内容を表す。nilのフィールドは更新しない。
type JobPatch struct {
	Company      *string
	Position     *string
	WorkLocation *string
	Status       *JobStatus
	WorkType     *WorkType
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p JobPatch) IsEmpty() bool {
	return p.Company == nil && p.Position == nil && p.WorkLocation == nil &&
		p.Status == nil && p.WorkType == nil
}

// ProfilePatch はユーザープロフィールの部分更新内容を表す。nilのフィールドは更新しない。
type ProfilePatch struct {
	Username *string
	FullName *string
	Email    *string
	Location *string
}
