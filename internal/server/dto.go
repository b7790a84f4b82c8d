package server

import (
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/suggest"
	"taskflow/internal/workload"
)

type CreateMemberRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" minLength:"1"`
	Email      string `json:"email" format:"email"`
	Role       string `json:"role,omitempty" enum:"admin,manager,employee"`
	Department string `json:"department,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

type UpdateMemberRequest struct {
	Name       *string `json:"name,omitempty"`
	Role       *string `json:"role,omitempty" enum:"admin,manager,employee"`
	Department *string `json:"department,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

type CreateTeamRequest struct {
	Name        string   `json:"name" minLength:"1"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"member_ids,omitempty"`
}

type AddTeamMemberRequest struct {
	MemberID string `json:"member_id" minLength:"1"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name" minLength:"1"`
	Description string  `json:"description,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
	Status      string  `json:"status,omitempty" enum:"active,paused,archived"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
	Status      *string `json:"status,omitempty" enum:"active,paused,archived"`
}

type CreateTaskRequest struct {
	ID             string   `json:"id,omitempty"`
	ProjectID      string   `json:"project_id,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority,omitempty" enum:"low,medium,high"`
	Status         string   `json:"status,omitempty" enum:"todo,in-progress,review,done"`
	DueDate        string   `json:"due_date,omitempty" example:"2026-03-01"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" minimum:"0"`
	AssigneeID     string   `json:"assignee_id,omitempty"`
}

// UpdateTaskRequest fields are optional; an empty string clears
// project_id, due_date and assignee_id.
type UpdateTaskRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Priority       *string  `json:"priority,omitempty" enum:"low,medium,high"`
	Status         *string  `json:"status,omitempty" enum:"todo,in-progress,review,done"`
	ProjectID      *string  `json:"project_id,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" minimum:"0"`
	ClearEstimate  bool     `json:"clear_estimate,omitempty"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
}

type RescheduleTaskRequest struct {
	DueDate string `json:"due_date" example:"2026-03-01" doc:"New due date (YYYY-MM-DD); empty removes it"`
}

type SuggestRequest struct {
	Task   suggest.TaskDraft `json:"task"`
	TeamID string            `json:"team_id,omitempty"`
}

type WhoAmIResponse struct {
	Member      domain.Member `json:"member"`
	Permissions []string      `json:"permissions"`
	Source      string        `json:"source"`
}

type paginatedTasks struct {
	Items      []domain.Task `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type notificationList struct {
	Items  []domain.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

type markAllResponse struct {
	Updated int64 `json:"updated"`
}

// WorkloadRow flattens engine.MemberWorkload for API clients.
type WorkloadRow struct {
	domain.Member
	workload.Entry
	Status workload.Status `json:"status"`
}

type WorkloadResponse struct {
	TeamID        string              `json:"team_id,omitempty"`
	CapacityHours float64             `json:"capacity_hours"`
	Thresholds    workload.Thresholds `json:"thresholds"`
	Members       []WorkloadRow       `json:"members"`
	Summary       workload.Summary    `json:"summary"`
}

func workloadResponse(r engine.WorkloadReport) WorkloadResponse {
	out := WorkloadResponse{
		TeamID:        r.TeamID,
		CapacityHours: r.Capacity,
		Thresholds:    r.Thresholds,
		Members:       make([]WorkloadRow, 0, len(r.Members)),
		Summary:       r.Summary,
	}
	for _, m := range r.Members {
		out.Members = append(out.Members, WorkloadRow{Member: m.Member, Entry: m.Workload, Status: m.Status})
	}
	return out
}
