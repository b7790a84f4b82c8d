package repo

import (
	"context"
	"database/sql"

	"taskflow/internal/domain"
)

func (r Repo) InsertNotification(ctx context.Context, tx *sql.Tx, n domain.Notification) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO notifications(id,member_id,kind,title,message,task_id,read,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		n.ID, n.MemberID, n.Kind, n.Title, nullable(n.Message), nullableStringPtr(n.TaskID), n.Read, n.CreatedAt)
	return err
}

// ListNotifications returns a member's notifications newest first.
func (r Repo) ListNotifications(ctx context.Context, memberID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `SELECT id,member_id,kind,title,COALESCE(message,''),task_id,read,created_at FROM notifications WHERE member_id=?`
	args := []any{memberID}
	if unreadOnly {
		query += ` AND read=0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var taskID sql.NullString
		if err := rows.Scan(&n.ID, &n.MemberID, &n.Kind, &n.Title, &n.Message, &taskID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.TaskID = stringPtr(taskID)
		res = append(res, n)
	}
	return res, rows.Err()
}

// MarkNotificationRead flags one notification owned by memberID.
func (r Repo) MarkNotificationRead(ctx context.Context, memberID, id string) error {
	return affectedOne(r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE id=? AND member_id=?`, id, memberID))
}

// MarkAllNotificationsRead returns how many notifications changed.
func (r Repo) MarkAllNotificationsRead(ctx context.Context, memberID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=1 WHERE member_id=? AND read=0`, memberID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
