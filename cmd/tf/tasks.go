package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"taskflow/internal/app"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/repo"
	"taskflow/internal/suggest"
	"taskflow/internal/workload"
)

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskCreateCmd(), taskListCmd(), taskShowCmd(), taskUpdateCmd(), taskMoveCmd(), taskDeleteCmd())
	return t
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var estimate float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("estimate") {
				opts.EstimatedHours = &estimate
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				opts.ActorID = a.Actor.ID
				t, err := a.Engine.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t, func(tw table.Writer) { taskRows(tw, []domain.Task{t}) })
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "task id (generated when empty)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Priority, "priority", domain.PriorityMedium, "low, medium or high")
	cmd.Flags().StringVar(&opts.Status, "status", domain.StatusTodo, "todo, in-progress, review or done")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated hours")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee", "", "assignee member id")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tasks, err := a.Engine.VisibleTasks(ctx, a.Actor.ID, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(tasks, func(tw table.Writer) { taskRows(tw, tasks) })
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assignee member id")
	cmd.Flags().StringVar(&f.Status, "status", "", "status")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority")
	cmd.Flags().BoolVar(&f.OpenOnly, "open", false, "hide done tasks")
	cmd.Flags().IntVar(&f.Limit, "limit", 100, "max tasks")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.VisibleTask(ctx, a.Actor.ID, args[0])
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, desc, priority, status, due, assignee, project string
	var estimate float64
	var clearEstimate bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task; empty --due, --assignee or --project clears them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := func(name string, v *string) *string {
				if cmd.Flags().Changed(name) {
					return v
				}
				return nil
			}
			opts := engine.TaskUpdateOptions{
				ID:            args[0],
				Title:         changed("title", &title),
				Description:   changed("description", &desc),
				Priority:      changed("priority", &priority),
				Status:        changed("status", &status),
				DueDate:       changed("due", &due),
				Assign:        changed("assignee", &assignee),
				ProjectID:     changed("project", &project),
				ClearEstimate: clearEstimate,
			}
			if cmd.Flags().Changed("estimate") {
				opts.EstimatedHours = &estimate
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				opts.ActorID = a.Actor.ID
				t, err := a.Engine.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t, func(tw table.Writer) { taskRows(tw, []domain.Task{t}) })
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&status, "status", "", "todo, in-progress, review or done")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee member id")
	cmd.Flags().StringVar(&project, "project", "", "project id")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated hours")
	cmd.Flags().BoolVar(&clearEstimate, "clear-estimate", false, "remove the estimate")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <YYYY-MM-DD|none>",
		Short: "Reschedule a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			due := args[1]
			if due == "none" {
				due = ""
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.RescheduleTask(ctx, args[0], due, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(t, func(tw table.Writer) { taskRows(tw, []domain.Task{t}) })
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.DeleteTask(ctx, args[0], a.Actor.ID)
			})
		},
	}
}

func taskRows(tw table.Writer, tasks []domain.Task) {
	tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Status", "Due", "Hours", "Assignee"})
	for _, t := range tasks {
		hours := "-"
		if t.EstimatedHours != nil {
			hours = fmt.Sprintf("%g", *t.EstimatedHours)
		}
		tw.AppendRow(table.Row{t.ID, t.Title, t.Priority, t.Status, deref(t.DueDate), hours, deref(t.AssigneeID)})
	}
}

var tierColors = map[workload.Tier]text.Colors{
	workload.TierOverloaded: {text.FgRed, text.Bold},
	workload.TierBusy:       {text.FgYellow},
	workload.TierNormal:     {text.FgGreen},
	workload.TierIdle:       {text.FgHiBlack},
}

func workloadCmd() *cobra.Command {
	var team string
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Show workload per member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				report, err := a.Engine.TeamWorkload(ctx, team, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(report, func(tw table.Writer) {
					tw.SetTitle(fmt.Sprintf("Capacity %gh per member", report.Capacity))
					tw.AppendHeader(table.Row{"Member", "Role", "Tasks", "High", "In progress", "Hours", "Load", "Status"})
					for _, m := range report.Members {
						w := m.Workload
						status := tierColors[m.Status.Tier].Sprint(m.Status.Label)
						tw.AppendRow(table.Row{m.Member.Name, m.Member.Role, w.TaskCount, w.HighPriorityCount, w.InProgressCount, w.TotalHours, fmt.Sprintf("%d%%", w.WorkloadPercentage), status})
					}
					s := report.Summary
					tw.AppendFooter(table.Row{"Team", "", "", "", "", "", fmt.Sprintf("avg %d%%", s.AveragePercentage), fmt.Sprintf("%d overloaded", s.ByTier[workload.TierOverloaded])})
				})
			})
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "limit to one team")
	return cmd
}

func suggestCmd() *cobra.Command {
	var draft suggest.TaskDraft
	var due, team string
	var estimate float64
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask the assistant who should take a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.DueDate = optionalString(due)
			if cmd.Flags().Changed("estimate") {
				draft.EstimatedHours = &estimate
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.SuggestAssignees(ctx, draft, team, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(res, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"#", "Member", "Score", "After", "Reasons", "Risks"})
					for i, r := range res.Recommendations {
						tw.AppendRow(table.Row{i + 1, r.MemberName, r.Score, fmt.Sprintf("%g%%", r.ProjectedWorkloadAfter), joinLines(r.Reasons), joinLines(r.Risks)})
					}
					for _, w := range res.Warnings {
						tw.AppendFooter(table.Row{"!", w})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "task title")
	cmd.Flags().StringVar(&draft.Description, "description", "", "task description")
	cmd.Flags().StringVar(&draft.Priority, "priority", domain.PriorityMedium, "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated hours")
	cmd.Flags().StringVar(&team, "team", "", "rank only this team's members")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func joinLines(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "\n"
		}
		out += "- " + s
	}
	return out
}
