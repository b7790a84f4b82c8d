package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskflow/internal/app"
	"taskflow/internal/repo"
	"taskflow/internal/server"
)

func notifyCmd() *cobra.Command {
	n := &cobra.Command{Use: "notify", Short: "Your notifications"}
	n.AddCommand(notifyListCmd(), notifyReadCmd())
	return n
}

func notifyListCmd() *cobra.Command {
	var unread bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.Notifications(ctx, a.Actor.ID, unread, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "When", "Title", "Message", "Read"})
					for _, n := range items {
						tw.AppendRow(table.Row{n.ID, n.CreatedAt, n.Title, n.Message, n.Read})
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread")
	cmd.Flags().IntVar(&limit, "limit", 50, "max notifications")
	return cmd
}

func notifyReadCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark a notification (or --all) read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("notification id or --all required")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if all {
					n, err := a.Engine.MarkAllNotificationsRead(ctx, a.Actor.ID)
					if err != nil {
						return err
					}
					fmt.Printf("Marked %d notifications read\n", n)
					return nil
				}
				return a.Engine.MarkNotificationRead(ctx, a.Actor.ID, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "mark every notification read")
	return cmd
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	k.AddCommand(apiKeyCreateCmd(), apiKeyListCmd(), apiKeyRevokeCmd())
	return k
}

func apiKeyCreateCmd() *cobra.Command {
	var member, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the plaintext is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				key, plain, err := a.Engine.CreateAPIKey(ctx, member, name, a.Actor.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": key, "api_key": plain})
				}
				fmt.Printf("API key %s for %s:\n%s\n", key.ID, key.MemberID, plain)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "owner (default: acting member)")
	cmd.Flags().StringVar(&name, "name", "", "label")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	var member string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				keys, err := a.Engine.APIKeys(ctx, a.Actor.ID, member)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Member", "Name", "Created"})
					for _, k := range keys {
						tw.AppendRow(table.Row{k.ID, k.MemberID, k.Name, k.CreatedAt})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "owner (default: acting member)")
	return cmd
}

func apiKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.Engine.RevokeAPIKey(ctx, args[0], a.Actor.ID)
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	t := &cobra.Command{Use: "token", Short: "Bearer tokens for the HTTP API"}
	var member string
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a JWT with TASKFLOW_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if member == "" {
					member = a.Actor.ID
				}
				if _, err := a.Engine.Member(ctx, a.Actor.ID, member); err != nil {
					return err
				}
				token, err := server.IssueToken(viper.GetString("jwt-secret"), member, ttl)
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&member, "member", "", "token subject (default: acting member)")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 for none)")
	t.AddCommand(issue)
	return t
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	var f repo.EventFilters
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				events, err := a.Engine.ListEvents(ctx, a.Actor.ID, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(events, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "When", "Type", "Entity", "Actor"})
					for _, e := range events {
						tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + ":" + e.EntityID, e.ActorID})
					}
				})
			})
		},
	}
	tail.Flags().IntVarP(&f.Limit, "n", "n", 20, "number of events")
	tail.Flags().StringVar(&f.Type, "type", "", "event type")
	tail.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	tail.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	l.AddCommand(tail)
	return l
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				logger := log.Default()
				authCfg := server.AuthConfig{
					JWTSecret:        viper.GetString("jwt-secret"),
					AllowActorHeader: allowActorHeader,
					Logger:           logger,
				}
				if authCfg.JWTSecret == "" {
					logger.Warn("TASKFLOW_JWT_SECRET not set; bearer tokens will be rejected")
				}
				handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Auth: authCfg, Logger: logger})
				if err != nil {
					return err
				}
				dispatcher := server.NewDispatcher(a.Engine.Repo, a.Config.Webhooks, logger)
				go dispatcher.Run(ctx)

				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving TaskFlow API", "addr", "http://"+addr+basePath, "docs", "http://"+addr+"/docs")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				logger.Info("server stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", server.DefaultBasePath, "API base path")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "accept unauthenticated X-Actor-Id (local use only)")
	return cmd
}
