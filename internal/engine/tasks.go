package engine

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/repo"
)

const (
	NotifyAssigned    = "task_assigned"
	NotifyRescheduled = "task_rescheduled"
	NotifyUnassigned  = "task_unassigned"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ID             string
	ProjectID      string
	Title          string
	Description    string
	Priority       string
	Status         string
	DueDate        string
	EstimatedHours *float64
	AssigneeID     string
	ActorID        string
}

// TaskUpdateOptions holds optional changes. A pointer to "" clears the
// field for ProjectID, DueDate and Assign; ClearEstimate drops the estimate.
type TaskUpdateOptions struct {
	ID             string
	Title          *string
	Description    *string
	Priority       *string
	Status         *string
	ProjectID      *string
	DueDate        *string
	EstimatedHours *float64
	ClearEstimate  bool
	Assign         *string
	ActorID        string
}

func validDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func validEstimate(h *float64) bool {
	return h == nil || (*h >= 0 && !math.IsNaN(*h) && !math.IsInf(*h, 0))
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	actor, err := e.require(ctx, opts.ActorID, auth.PermTaskCreate)
	if err != nil {
		return domain.Task{}, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Task{}, invalidf("title is required")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(opts.Priority) {
		return domain.Task{}, invalidf("priority %q is invalid", opts.Priority)
	}
	if opts.Status == "" {
		opts.Status = domain.StatusTodo
	}
	if !domain.ValidStatus(opts.Status) {
		return domain.Task{}, invalidf("status %q is invalid", opts.Status)
	}
	if opts.DueDate != "" && !validDate(opts.DueDate) {
		return domain.Task{}, invalidf("due date %q is invalid, want YYYY-MM-DD", opts.DueDate)
	}
	if !validEstimate(opts.EstimatedHours) {
		return domain.Task{}, invalidf("estimated hours must be a non-negative number")
	}
	if opts.AssigneeID != "" && opts.AssigneeID != actor.ID {
		if err := e.Auth.Require(actor, auth.PermTaskAssign); err != nil {
			return domain.Task{}, err
		}
	}
	if opts.ProjectID != "" {
		if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
			return domain.Task{}, fmt.Errorf("project %s: %w", opts.ProjectID, err)
		}
	}
	now := e.stamp()
	t := domain.Task{
		ID:             opts.ID,
		ProjectID:      optionalString(opts.ProjectID),
		Title:          strings.TrimSpace(opts.Title),
		Description:    opts.Description,
		Priority:       opts.Priority,
		Status:         opts.Status,
		DueDate:        optionalString(opts.DueDate),
		EstimatedHours: opts.EstimatedHours,
		AssigneeID:     optionalString(opts.AssigneeID),
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err = e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if t.AssigneeID != nil {
			if _, err := e.Repo.GetMemberTx(ctx, tx, *t.AssigneeID); err != nil {
				return fmt.Errorf("assignee %s: %w", *t.AssigneeID, err)
			}
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if err := e.writer().Append(ctx, tx, events.TaskCreated, "task", t.ID, actor.ID, taskPayload(t)); err != nil {
			return err
		}
		if t.AssigneeID != nil && *t.AssigneeID != actor.ID {
			return e.notify(ctx, tx, *t.AssigneeID, NotifyAssigned, "New task assigned", fmt.Sprintf("%s assigned you %q", actor.Name, t.Title), t.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	actor, err := e.require(ctx, opts.ActorID, auth.PermTaskUpdate)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, opts.ID)
	if err != nil {
		return t, err
	}
	if err := e.canTouch(actor, t); err != nil {
		return domain.Task{}, err
	}
	prev := t
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return t, invalidf("title must not be empty")
		}
		t.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.Priority != nil {
		if !domain.ValidPriority(*opts.Priority) {
			return t, invalidf("priority %q is invalid", *opts.Priority)
		}
		t.Priority = *opts.Priority
	}
	if opts.Status != nil {
		if !domain.ValidStatus(*opts.Status) {
			return t, invalidf("status %q is invalid", *opts.Status)
		}
		t.Status = *opts.Status
	}
	if opts.ProjectID != nil {
		if *opts.ProjectID != "" {
			if _, err := e.Repo.GetProject(ctx, *opts.ProjectID); err != nil {
				return t, fmt.Errorf("project %s: %w", *opts.ProjectID, err)
			}
		}
		t.ProjectID = optionalString(*opts.ProjectID)
	}
	if opts.DueDate != nil {
		if *opts.DueDate != "" && !validDate(*opts.DueDate) {
			return t, invalidf("due date %q is invalid, want YYYY-MM-DD", *opts.DueDate)
		}
		t.DueDate = optionalString(*opts.DueDate)
	}
	if opts.ClearEstimate {
		t.EstimatedHours = nil
	} else if opts.EstimatedHours != nil {
		if !validEstimate(opts.EstimatedHours) {
			return t, invalidf("estimated hours must be a non-negative number")
		}
		h := *opts.EstimatedHours
		t.EstimatedHours = &h
	}
	reassigned := false
	if opts.Assign != nil {
		next := optionalString(*opts.Assign)
		if !samePtr(next, t.AssigneeID) {
			claim := next != nil && *next == actor.ID && t.AssigneeID == nil
			if !claim {
				if err := e.Auth.Require(actor, auth.PermTaskAssign); err != nil {
					return t, err
				}
			}
			t.AssigneeID = next
			reassigned = true
		}
	}
	t.UpdatedAt = e.stamp()

	err = e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if reassigned && t.AssigneeID != nil {
			if _, err := e.Repo.GetMemberTx(ctx, tx, *t.AssigneeID); err != nil {
				return fmt.Errorf("assignee %s: %w", *t.AssigneeID, err)
			}
		}
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return err
		}
		if err := e.writer().Append(ctx, tx, events.TaskUpdated, "task", t.ID, actor.ID, diffPayload(prev, t)); err != nil {
			return err
		}
		if !reassigned {
			return nil
		}
		if err := e.writer().Append(ctx, tx, events.TaskAssigned, "task", t.ID, actor.ID, events.Payload{"from": prev.AssigneeID, "to": t.AssigneeID}); err != nil {
			return err
		}
		if t.AssigneeID != nil && *t.AssigneeID != actor.ID {
			if err := e.notify(ctx, tx, *t.AssigneeID, NotifyAssigned, "New task assigned", fmt.Sprintf("%s assigned you %q", actor.Name, t.Title), t.ID); err != nil {
				return err
			}
		}
		if prev.AssigneeID != nil && *prev.AssigneeID != actor.ID {
			return e.notify(ctx, tx, *prev.AssigneeID, NotifyUnassigned, "Task reassigned", fmt.Sprintf("%q is no longer assigned to you", t.Title), t.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// RescheduleTask moves a task to another day, as when it is dragged across
// the calendar. An empty dueDate removes the date.
func (e Engine) RescheduleTask(ctx context.Context, id, dueDate, actorID string) (domain.Task, error) {
	actor, err := e.require(ctx, actorID, auth.PermTaskUpdate)
	if err != nil {
		return domain.Task{}, err
	}
	if dueDate != "" && !validDate(dueDate) {
		return domain.Task{}, invalidf("due date %q is invalid, want YYYY-MM-DD", dueDate)
	}
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	if err := e.canTouch(actor, t); err != nil {
		return domain.Task{}, err
	}
	from := t.DueDate
	t.DueDate = optionalString(dueDate)
	if samePtr(from, t.DueDate) {
		return t, nil
	}
	t.UpdatedAt = e.stamp()
	err = e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return err
		}
		if err := e.writer().Append(ctx, tx, events.TaskRescheduled, "task", t.ID, actor.ID, events.Payload{"from": from, "to": t.DueDate}); err != nil {
			return err
		}
		if t.AssigneeID != nil && *t.AssigneeID != actor.ID {
			when := "no due date"
			if t.DueDate != nil {
				when = *t.DueDate
			}
			return e.notify(ctx, tx, *t.AssigneeID, NotifyRescheduled, "Task rescheduled", fmt.Sprintf("%q is now due %s", t.Title, when), t.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask needs task.delete unless the actor created the task.
func (e Engine) DeleteTask(ctx context.Context, id, actorID string) error {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := e.canTouch(actor, t); err != nil {
		return err
	}
	if t.CreatedBy != actor.ID {
		if err := e.Auth.Require(actor, auth.PermTaskDelete); err != nil {
			return err
		}
	}
	return e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.TaskDeleted, "task", id, actor.ID, events.Payload{"title": t.Title})
	})
}

// VisibleTasks applies role-based visibility on top of f: members without
// task.read.all only see tasks assigned to or created by them.
func (e Engine) VisibleTasks(ctx context.Context, actorID string, f repo.TaskFilters) ([]domain.Task, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !e.Auth.Can(actor.Role, auth.PermTaskReadAll) {
		f.VisibleTo = actor.ID
	}
	if f.DueFrom != "" && !validDate(f.DueFrom) {
		return nil, invalidf("due_from %q is invalid", f.DueFrom)
	}
	if f.DueTo != "" && !validDate(f.DueTo) {
		return nil, invalidf("due_to %q is invalid", f.DueTo)
	}
	return e.Repo.ListTasks(ctx, f)
}

// VisibleTask returns ErrNotFound rather than forbidden for hidden tasks.
func (e Engine) VisibleTask(ctx context.Context, actorID, id string) (domain.Task, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	if err := e.canTouch(actor, t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// canTouch hides tasks outside the actor's view behind ErrNotFound so
// mutations do not reveal that they exist.
func (e Engine) canTouch(actor domain.Member, t domain.Task) error {
	if e.Auth.Can(actor.Role, auth.PermTaskReadAll) || t.AssignedTo(actor.ID) || t.CreatedBy == actor.ID {
		return nil
	}
	return fmt.Errorf("task %s: %w", t.ID, repo.ErrNotFound)
}

func (e Engine) notify(ctx context.Context, tx *sql.Tx, memberID, kind, title, message, taskID string) error {
	n := domain.Notification{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		TaskID:    optionalString(taskID),
		CreatedAt: e.stamp(),
	}
	if err := e.Repo.InsertNotification(ctx, tx, n); err != nil {
		return fmt.Errorf("notify %s: %w", memberID, err)
	}
	return nil
}

func taskPayload(t domain.Task) events.Payload {
	return events.Payload{
		"title":           t.Title,
		"priority":        t.Priority,
		"status":          t.Status,
		"assignee_id":     t.AssigneeID,
		"due_date":        t.DueDate,
		"estimated_hours": t.EstimatedHours,
		"project_id":      t.ProjectID,
	}
}

func diffPayload(before, after domain.Task) events.Payload {
	out := events.Payload{}
	b, a := taskPayload(before), taskPayload(after)
	for k, v := range a {
		if fmt.Sprint(deref(b[k])) != fmt.Sprint(deref(v)) {
			out[k] = v
		}
	}
	return out
}

func deref(v any) any {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
