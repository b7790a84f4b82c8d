package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TaskCreated     = "task.created"
	TaskUpdated     = "task.updated"
	TaskAssigned    = "task.assigned"
	TaskRescheduled = "task.rescheduled"
	TaskDeleted     = "task.deleted"
	MemberCreated   = "member.created"
	MemberUpdated   = "member.updated"
	TeamCreated     = "team.created"
	TeamMemberAdded = "team.member_added"
	TeamMemberGone  = "team.member_removed"
	ProjectCreated  = "project.created"
	ProjectUpdated  = "project.updated"
	ProjectDeleted  = "project.deleted"
	APIKeyCreated   = "apikey.created"
	SuggestionRun   = "suggestion.requested"
)

// Writer appends audit events inside the caller's transaction.
type Writer struct {
	Now func() time.Time
}

type Payload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload Payload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
