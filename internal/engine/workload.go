package engine

import (
	"context"
	"errors"
	"fmt"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/repo"
	"taskflow/internal/workload"
)

// MemberWorkload is one roster row of a workload report.
type MemberWorkload struct {
	Member   domain.Member   `json:"member"`
	Workload workload.Entry  `json:"workload"`
	Status   workload.Status `json:"status"`
}

type WorkloadReport struct {
	TeamID     string              `json:"team_id,omitempty"`
	Capacity   float64             `json:"capacity_hours"`
	Thresholds workload.Thresholds `json:"thresholds"`
	Members    []MemberWorkload    `json:"members"`
	Summary    workload.Summary    `json:"summary"`
}

// roster returns a team's members, or every member when teamID is empty.
func (e Engine) roster(ctx context.Context, teamID string) ([]domain.Member, error) {
	if teamID == "" {
		return e.Repo.ListMembers(ctx, "")
	}
	members, err := e.Repo.TeamMembers(ctx, teamID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("team %s: %w", teamID, err)
	}
	return members, err
}

// workloadTasks loads the tasks that count towards workload. Done tasks are
// left out unless the config includes them.
func (e Engine) workloadTasks(ctx context.Context) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, repo.TaskFilters{OpenOnly: !e.Config.Workload.IncludeDone})
}

// TeamWorkload aggregates and classifies the current workload of a roster.
func (e Engine) TeamWorkload(ctx context.Context, teamID, actorID string) (WorkloadReport, error) {
	if _, err := e.require(ctx, actorID, auth.PermWorkloadRead); err != nil {
		return WorkloadReport{}, err
	}
	members, err := e.roster(ctx, teamID)
	if err != nil {
		return WorkloadReport{}, err
	}
	tasks, err := e.workloadTasks(ctx)
	if err != nil {
		return WorkloadReport{}, err
	}
	opts := e.Config.Workload.Options()
	th := e.Config.Thresholds()
	entries := workload.Aggregate(members, tasks, opts)
	report := WorkloadReport{
		TeamID:     teamID,
		Capacity:   capacityOf(opts),
		Thresholds: th,
		Members:    make([]MemberWorkload, 0, len(entries)),
		Summary:    workload.Summarize(members, entries, th),
	}
	for i, entry := range entries {
		report.Members = append(report.Members, MemberWorkload{
			Member:   members[i],
			Workload: entry,
			Status:   th.Classify(float64(entry.WorkloadPercentage)),
		})
	}
	return report, nil
}

func capacityOf(opts workload.Options) float64 {
	if opts.CapacityHours > 0 {
		return opts.CapacityHours
	}
	return workload.DefaultCapacityHours
}
