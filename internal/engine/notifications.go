package engine

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/repo"
)

// Notifications lists the actor's own notifications.
func (e Engine) Notifications(ctx context.Context, actorID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListNotifications(ctx, actor.ID, unreadOnly, limit)
}

func (e Engine) MarkNotificationRead(ctx context.Context, actorID, id string) error {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	return e.Repo.MarkNotificationRead(ctx, actor.ID, id)
}

func (e Engine) MarkAllNotificationsRead(ctx context.Context, actorID string) (int64, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return 0, err
	}
	return e.Repo.MarkAllNotificationsRead(ctx, actor.ID)
}

func (e Engine) ListEvents(ctx context.Context, actorID string, f repo.EventFilters) ([]domain.Event, error) {
	if _, err := e.require(ctx, actorID, auth.PermEventsRead); err != nil {
		return nil, err
	}
	return e.Repo.LatestEvents(ctx, f)
}
