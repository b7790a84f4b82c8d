package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/domain"
)

func scanProject(s interface{ Scan(...any) error }) (domain.Project, error) {
	var p domain.Project
	var desc, teamID sql.NullString
	err := s.Scan(&p.ID, &p.Name, &desc, &teamID, &p.Status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	p.Description = desc.String
	p.TeamID = stringPtr(teamID)
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO projects(id,name,description,team_id,status,created_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Description), nullableStringPtr(p.TeamID), p.Status, p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT id,name,description,team_id,status,created_at FROM projects WHERE id=?`, id))
}

// ListProjects returns projects newest first, optionally restricted to a team.
func (r Repo) ListProjects(ctx context.Context, teamID string) ([]domain.Project, error) {
	query := `SELECT id,name,description,team_id,status,created_at FROM projects`
	var args []any
	if teamID != "" {
		query += ` WHERE team_id=?`
		args = append(args, teamID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

type ProjectUpdate struct {
	Name        *string
	Description *string
	Status      *string
	TeamID      *string
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, id string, u ProjectUpdate) error {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*u.Description))
	}
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *u.Status)
	}
	if u.TeamID != nil {
		fields = append(fields, "team_id=?")
		args = append(args, nullable(*u.TeamID))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	return affectedOne(r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...))
}

func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id string) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id))
}
