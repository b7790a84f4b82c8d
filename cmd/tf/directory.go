package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"taskflow/internal/app"
	"taskflow/internal/config"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/repo"
)

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage taskflow.yml"}
	cfg.AddCommand(configInitCmd(), configShowCmd(), configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default taskflow.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "taskflow", "workspace name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default("taskflow")
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Path(viper.GetString("workspace"))
			}
			if _, err := config.FromFile(file); err != nil {
				return err
			}
			fmt.Printf("%s is valid\n", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "config file (default: workspace taskflow.yml)")
	return cmd
}

func memberCmd() *cobra.Command {
	m := &cobra.Command{Use: "member", Short: "Manage members"}
	m.AddCommand(memberAddCmd(), memberListCmd(), memberWhoamiCmd())
	return m
}

func memberAddCmd() *cobra.Command {
	var opts engine.MemberCreateOptions
	var role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				opts.Role = domain.Role(role)
				opts.ActorID = a.Actor.ID
				m, err := a.Engine.CreateMember(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m, func(tw table.Writer) { memberRows(tw, []domain.Member{m}) })
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "member id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "employee", "admin, manager or employee")
	cmd.Flags().StringVar(&opts.Department, "department", "", "department")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func memberListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				members, err := a.Engine.Members(ctx, a.Actor.ID, role)
				if err != nil {
					return err
				}
				return printJSONOrTable(members, func(tw table.Writer) { memberRows(tw, members) })
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	return cmd
}

func memberWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the acting member and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return printJSON(map[string]any{
					"member":      a.Actor,
					"permissions": a.Engine.Auth.Permissions(a.Actor.Role),
				})
			})
		},
	}
}

func memberRows(tw table.Writer, members []domain.Member) {
	tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Department"})
	for _, m := range members {
		tw.AppendRow(table.Row{m.ID, m.Name, m.Email, m.Role, m.Department})
	}
}

func teamCmd() *cobra.Command {
	t := &cobra.Command{Use: "team", Short: "Manage teams"}
	t.AddCommand(teamCreateCmd(), teamAddCmd(), teamRemoveCmd(), teamListCmd())
	return t
}

func teamCreateCmd() *cobra.Command {
	var name, desc string
	var members []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				team, err := a.Engine.CreateTeam(ctx, name, desc, members, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSON(team)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "team name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringSliceVar(&members, "member", nil, "member id (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func teamAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <team-id> <member-id>",
		Short: "Add a member to a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				team, err := a.Engine.AddTeamMember(ctx, args[0], args[1], a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSON(team)
			})
		},
	}
}

func teamRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <team-id> <member-id>",
		Short: "Remove a member from a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				team, err := a.Engine.RemoveTeamMember(ctx, args[0], args[1], a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSON(team)
			})
		},
	}
}

func teamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				teams, err := a.Engine.Teams(ctx, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(teams, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Name", "Members"})
					for _, t := range teams {
						tw.AppendRow(table.Row{t.ID, t.Name, len(t.MemberIDs)})
					}
				})
			})
		},
	}
}

func projectCmd() *cobra.Command {
	p := &cobra.Command{Use: "project", Short: "Manage projects"}
	p.AddCommand(projectCreateCmd(), projectListCmd(), projectStatsCmd(), projectUpdateCmd(), projectDeleteCmd())
	return p
}

func projectCreateCmd() *cobra.Command {
	var p domain.Project
	var team string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p.TeamID = optionalString(team)
				created, err := a.Engine.CreateProject(ctx, p, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSON(created)
			})
		},
	}
	cmd.Flags().StringVar(&p.ID, "id", "", "project id (generated when empty)")
	cmd.Flags().StringVar(&p.Name, "name", "", "project name")
	cmd.Flags().StringVar(&p.Description, "description", "", "description")
	cmd.Flags().StringVar(&p.Status, "status", "active", "active, paused or archived")
	cmd.Flags().StringVar(&team, "team", "", "owning team id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var team string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				projects, err := a.Engine.Projects(ctx, a.Actor.ID, team)
				if err != nil {
					return err
				}
				return printJSONOrTable(projects, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Name", "Status", "Team"})
					for _, p := range projects {
						tw.AppendRow(table.Row{p.ID, p.Name, p.Status, deref(p.TeamID)})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "filter by team id")
	return cmd
}

func projectStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [project-id]",
		Short: "Count tasks by status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				counts, err := a.Engine.ProjectTaskCounts(ctx, a.Actor.ID, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(counts, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"Status", "Tasks"})
					for _, s := range []string{domain.StatusTodo, domain.StatusInProgress, domain.StatusReview, domain.StatusDone} {
						tw.AppendRow(table.Row{s, counts[s]})
					}
				})
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var name, desc, status, team string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u repo.ProjectUpdate
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("description") {
				u.Description = &desc
			}
			if cmd.Flags().Changed("status") {
				u.Status = &status
			}
			if cmd.Flags().Changed("team") {
				u.TeamID = &team
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.UpdateProject(ctx, args[0], u, a.Actor.ID)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "active, paused or archived")
	cmd.Flags().StringVar(&team, "team", "", "owning team id (empty clears)")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project; its tasks are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.DeleteProject(ctx, args[0], a.Actor.ID)
			})
		},
	}
}
