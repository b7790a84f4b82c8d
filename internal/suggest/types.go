// Package suggest asks an external text-generation model to rank team members
// for a task and sanitises what comes back.
package suggest

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/workload"
)

// TaskDraft is the task being assigned. It need not be persisted yet.
type TaskDraft struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate        *string  `json:"due_date,omitempty" format:"date"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	// DefaultHours is the estimate assumed when EstimatedHours is nil.
	// Zero means workload.DefaultTaskHours.
	DefaultHours float64 `json:"-"`
}

// TaskSummary is the compact form of a member's active task used in prompts.
type TaskSummary struct {
	Title          string  `json:"title"`
	Priority       string  `json:"priority"`
	DueDate        *string `json:"due_date,omitempty"`
	EstimatedHours float64 `json:"estimated_hours"`
	Status         string  `json:"status"`
}

// Candidate is one roster member together with their current workload.
type Candidate struct {
	Member      domain.Member  `json:"member"`
	Workload    workload.Entry `json:"workload"`
	RecentTasks []TaskSummary  `json:"recent_tasks"`
}

type Recommendation struct {
	MemberID               string   `json:"memberId"`
	MemberName             string   `json:"memberName"`
	Score                  float64  `json:"score"`
	Reasons                []string `json:"reasons"`
	Risks                  []string `json:"risks"`
	ProjectedWorkloadAfter float64  `json:"projectedWorkloadAfter"`
}

type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []string         `json:"warnings"`
	Suggestions     []string         `json:"suggestions"`
}

// Recommender ranks candidates for a draft task.
type Recommender interface {
	Recommend(ctx context.Context, draft TaskDraft, roster []Candidate) (Result, error)
}

func members(roster []Candidate) []domain.Member {
	out := make([]domain.Member, 0, len(roster))
	for _, c := range roster {
		out = append(out, c.Member)
	}
	return out
}
