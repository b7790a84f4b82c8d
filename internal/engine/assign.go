package engine

import (
	"context"
	"errors"
	"strings"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/suggest"
	"taskflow/internal/workload"
)

const defaultRecentTasks = 10

// ErrAssistantDisabled is returned when no recommender is configured.
var ErrAssistantDisabled = errors.New("assignee suggestions are not configured")

// Candidates builds the recommender roster: each member with their workload
// and their most recent open tasks.
func (e Engine) Candidates(ctx context.Context, teamID string) ([]suggest.Candidate, error) {
	members, err := e.roster(ctx, teamID)
	if err != nil {
		return nil, err
	}
	tasks, err := e.workloadTasks(ctx)
	if err != nil {
		return nil, err
	}
	opts := e.Config.Workload.Options()
	entries := workload.Aggregate(members, tasks, opts)
	limit := e.Config.Assistant.RecentTasksLimit
	if limit <= 0 {
		limit = defaultRecentTasks
	}
	recent := map[string][]suggest.TaskSummary{}
	// tasks arrive newest first
	for _, t := range tasks {
		if t.AssigneeID == nil || t.Status == domain.StatusDone {
			continue
		}
		id := *t.AssigneeID
		if len(recent[id]) >= limit {
			continue
		}
		hours := float64(workload.DefaultTaskHours)
		if opts.DefaultTaskHours > 0 {
			hours = opts.DefaultTaskHours
		}
		if t.EstimatedHours != nil {
			hours = *t.EstimatedHours
		}
		recent[id] = append(recent[id], suggest.TaskSummary{
			Title:          t.Title,
			Priority:       t.Priority,
			DueDate:        t.DueDate,
			EstimatedHours: hours,
			Status:         t.Status,
		})
	}
	out := make([]suggest.Candidate, 0, len(members))
	for i, m := range members {
		out = append(out, suggest.Candidate{Member: m, Workload: entries[i], RecentTasks: recent[m.ID]})
	}
	return out, nil
}

// SuggestAssignees asks the configured recommender to rank the roster for
// draft. It makes exactly one upstream call and never falls back to a local
// ranking when that call fails.
func (e Engine) SuggestAssignees(ctx context.Context, draft suggest.TaskDraft, teamID, actorID string) (suggest.Result, error) {
	actor, err := e.require(ctx, actorID, auth.PermSuggestRun)
	if err != nil {
		return suggest.Result{}, err
	}
	if strings.TrimSpace(draft.Title) == "" {
		return suggest.Result{}, invalidf("title is required")
	}
	if draft.Priority != "" && !domain.ValidPriority(draft.Priority) {
		return suggest.Result{}, invalidf("priority %q is invalid", draft.Priority)
	}
	if draft.DueDate != nil && *draft.DueDate != "" && !validDate(*draft.DueDate) {
		return suggest.Result{}, invalidf("due date %q is invalid, want YYYY-MM-DD", *draft.DueDate)
	}
	if !validEstimate(draft.EstimatedHours) {
		return suggest.Result{}, invalidf("estimated hours must be a non-negative number")
	}
	if e.Assistant == nil {
		return suggest.Result{}, ErrAssistantDisabled
	}
	roster, err := e.Candidates(ctx, teamID)
	if err != nil {
		return suggest.Result{}, err
	}
	if draft.EstimatedHours == nil {
		draft.DefaultHours = e.Config.Workload.DefaultTaskHours
	}
	res, err := e.Assistant.Recommend(ctx, draft, roster)
	if err != nil {
		e.logger().Warn("assignee suggestion failed", "actor", actor.ID, "team", teamID, "err", err)
		return suggest.Result{}, err
	}
	e.logger().Debug("assignee suggestion finished", "actor", actor.ID, "team", teamID, "recommendations", len(res.Recommendations), "warnings", len(res.Warnings))
	if err := e.recordSuggestion(ctx, actor.ID, teamID, draft, res); err != nil {
		e.logger().Warn("record suggestion event", "err", err)
	}
	return res, nil
}

func (e Engine) recordSuggestion(ctx context.Context, actorID, teamID string, draft suggest.TaskDraft, res suggest.Result) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ids := make([]string, 0, len(res.Recommendations))
	for _, r := range res.Recommendations {
		ids = append(ids, r.MemberID)
	}
	if err := e.writer().Append(ctx, tx, events.SuggestionRun, "suggestion", teamID, actorID, events.Payload{"title": draft.Title, "ranked": ids}); err != nil {
		return err
	}
	return tx.Commit()
}
