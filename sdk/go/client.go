// Package taskflowsdk is a small client for the TaskFlow HTTP API.
package taskflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal TaskFlow HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  30 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID             string   `json:"id"`
	ProjectID      *string  `json:"project_id,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority"`
	Status         string   `json:"status"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
	CreatedBy      string   `json:"created_by"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// NewTask holds the fields accepted when creating a task.
type NewTask struct {
	ProjectID      string   `json:"project_id,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Status         string   `json:"status,omitempty"`
	DueDate        string   `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	AssigneeID     string   `json:"assignee_id,omitempty"`
}

type TaskQuery struct {
	ProjectID  string
	AssigneeID string
	Status     string
	Priority   string
	Limit      int
	Cursor     string
}

type PaginatedTasks struct {
	Items      []Task `json:"items"`
	NextCursor string `json:"next_cursor"`
}

type WorkloadStatus struct {
	Label string `json:"label"`
	Tier  string `json:"tier"`
}

type WorkloadRow struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Email              string         `json:"email"`
	Role               string         `json:"role"`
	Department         string         `json:"department,omitempty"`
	TotalHours         float64        `json:"total_hours"`
	TaskCount          int            `json:"task_count"`
	HighPriorityCount  int            `json:"high_priority_count"`
	InProgressCount    int            `json:"in_progress_count"`
	WorkloadPercentage int            `json:"workload_percentage"`
	Status             WorkloadStatus `json:"status"`
}

type Workload struct {
	TeamID        string        `json:"team_id,omitempty"`
	CapacityHours float64       `json:"capacity_hours"`
	Members       []WorkloadRow `json:"members"`
	Summary       struct {
		Members           int            `json:"members"`
		AveragePercentage int            `json:"average_percentage"`
		TotalHours        float64        `json:"total_hours"`
		ByTier            map[string]int `json:"by_tier"`
	} `json:"summary"`
}

// TaskDraft describes a task to rank members for.
type TaskDraft struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

type Recommendation struct {
	MemberID               string   `json:"memberId"`
	MemberName             string   `json:"memberName"`
	Score                  float64  `json:"score"`
	Reasons                []string `json:"reasons"`
	Risks                  []string `json:"risks"`
	ProjectedWorkloadAfter float64  `json:"projectedWorkloadAfter"`
}

type Suggestions struct {
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []string         `json:"warnings"`
	Suggestions     []string         `json:"suggestions"`
}

type Notification struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Title     string  `json:"title"`
	Message   string  `json:"message,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at"`
}

type Notifications struct {
	Items  []Notification `json:"items"`
	Unread int            `json:"unread"`
}

// APIError wraps non-2xx responses. Code and Message come from the error
// envelope when the body carries one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", t, &resp)
	return resp, err
}

// ListTasks returns one page of tasks visible to the caller.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) (PaginatedTasks, error) {
	v := url.Values{}
	for k, s := range map[string]string{"project_id": q.ProjectID, "assignee_id": q.AssigneeID, "status": q.Status, "priority": q.Priority, "cursor": q.Cursor} {
		if s != "" {
			v.Set(k, s)
		}
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	endpoint := "tasks"
	if len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	var resp PaginatedTasks
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Workload returns per-member workload, optionally for one team.
func (c *Client) Workload(ctx context.Context, teamID string) (Workload, error) {
	endpoint := "workload"
	if teamID != "" {
		endpoint += "?team_id=" + url.QueryEscape(teamID)
	}
	var resp Workload
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SuggestAssignees asks the server to rank members for draft. Upstream
// model failures come back as *APIError with status 502.
func (c *Client) SuggestAssignees(ctx context.Context, draft TaskDraft, teamID string) (Suggestions, error) {
	body := map[string]any{"task": draft}
	if teamID != "" {
		body["team_id"] = teamID
	}
	var resp Suggestions
	err := c.do(ctx, http.MethodPost, "assignee-suggestions", body, &resp)
	return resp, err
}

// Notifications lists the caller's notifications.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) (Notifications, error) {
	endpoint := "notifications"
	if unreadOnly {
		endpoint += "?unread=true"
	}
	var resp Notifications
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
