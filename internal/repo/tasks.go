package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskflow/internal/domain"
)

const taskColumns = `id,project_id,title,description,priority,status,due_date,estimated_hours,assignee_id,created_by,created_at,updated_at`

type TaskFilters struct {
	ProjectID  string
	AssigneeID string
	Status     string
	Priority   string
	CreatedBy  string
	DueFrom    string
	DueTo      string
	// VisibleTo limits results to tasks assigned to or created by this member.
	VisibleTo string
	// OpenOnly excludes done tasks.
	OpenOnly        bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func scanTask(s interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var projectID, desc, due, assignee sql.NullString
	var hours sql.NullFloat64
	err := s.Scan(&t.ID, &projectID, &t.Title, &desc, &t.Priority, &t.Status, &due, &hours, &assignee, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.ProjectID = stringPtr(projectID)
	t.Description = desc.String
	t.DueDate = stringPtr(due)
	t.AssigneeID = stringPtr(assignee)
	if hours.Valid {
		h := hours.Float64
		t.EstimatedHours = &h
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, nullableStringPtr(t.ProjectID), t.Title, nullable(t.Description), t.Priority, t.Status,
		nullableStringPtr(t.DueDate), nullableFloatPtr(t.EstimatedHours), nullableStringPtr(t.AssigneeID),
		t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTask overwrites every mutable column of an existing task.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE tasks SET project_id=?,title=?,description=?,priority=?,status=?,due_date=?,estimated_hours=?,assignee_id=?,updated_at=? WHERE id=?`,
		nullableStringPtr(t.ProjectID), t.Title, nullable(t.Description), t.Priority, t.Status,
		nullableStringPtr(t.DueDate), nullableFloatPtr(t.EstimatedHours), nullableStringPtr(t.AssigneeID), t.UpdatedAt, t.ID))
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

// ListTasks returns tasks newest first. Cursor values come from the last
// row of the previous page.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var (
		clauses []string
		args    []any
	)
	eq := func(col, v string) {
		if v != "" {
			clauses = append(clauses, col+"=?")
			args = append(args, v)
		}
	}
	eq("project_id", f.ProjectID)
	eq("assignee_id", f.AssigneeID)
	eq("status", f.Status)
	eq("priority", f.Priority)
	eq("created_by", f.CreatedBy)
	if f.DueFrom != "" {
		clauses = append(clauses, "due_date >= ?")
		args = append(args, f.DueFrom)
	}
	if f.DueTo != "" {
		clauses = append(clauses, "due_date <= ?")
		args = append(args, f.DueTo)
	}
	if f.VisibleTo != "" {
		clauses = append(clauses, "(assignee_id=? OR created_by=?)")
		args = append(args, f.VisibleTo, f.VisibleTo)
	}
	if f.OpenOnly {
		clauses = append(clauses, "status != ?")
		args = append(args, domain.StatusDone)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// CountTasksByStatus returns a status -> count map, optionally for one project.
func (r Repo) CountTasksByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM tasks`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id=?`
		args = append(args, projectID)
	}
	query += ` GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		res[status] = n
	}
	return res, rows.Err()
}
