package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleEmployee}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type Member struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role" enum:"admin,manager,employee"`
	Department string `json:"department,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Team struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"member_ids"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

type Project struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	TeamID      *string `json:"team_id,omitempty"`
	Status      string  `json:"status" enum:"active,paused,archived"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

// Task is a unit of work. AssigneeID is nil for unassigned tasks and
// EstimatedHours is nil when no estimate was given.
type Task struct {
	ID             string   `json:"id"`
	ProjectID      *string  `json:"project_id,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority" enum:"low,medium,high"`
	Status         string   `json:"status" enum:"todo,in-progress,review,done"`
	DueDate        *string  `json:"due_date,omitempty" format:"date"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
	CreatedBy      string   `json:"created_by"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

// AssignedTo reports whether the task is assigned to memberID.
func (t Task) AssignedTo(memberID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == memberID
}

type Notification struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"member_id"`
	Kind      string  `json:"kind"`
	Title     string  `json:"title"`
	Message   string  `json:"message,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	MemberID  string `json:"member_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
