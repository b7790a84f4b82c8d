package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskflow/internal/app"
	"taskflow/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "tf",
	Short: "TaskFlow CLI",
	Long: `TaskFlow tracks team tasks and keeps an eye on who is overloaded.
- Workspace: a directory holding taskflow.yml and the .taskflow database.
- Members have a role (admin, manager, employee) that decides what they may do.
- Workload: open task hours per member against a weekly capacity, shown as a percentage and a tier.
- Suggestions: a language model ranks members for a new task; its answer is checked before you see it.
- Event log: every change is recorded, view it with 'tf log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format"))
		if err != nil {
			return err
		}
		log.SetDefault(logger)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "local-user", "member acting on this command")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, logfmt, json)")
	for _, name := range []string{"workspace", "json", "actor-id", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(workloadCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

// withApp opens the workspace as --actor-id.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		ActorID:   viper.GetString("actor-id"),
		Logger:    log.Default(),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printJSONOrTable prints v as JSON when --json is set, otherwise renders
// the table built by render.
func printJSONOrTable(v any, render func(table.Writer)) error {
	if viper.GetBool("json") || render == nil {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	render(tw)
	tw.Render()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
