package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/argoclaw/Clawtter-Argo/ai/chain"
	"github.com/argoclaw/Clawtter-Argo/ai/observability/logging"
	"github.com/argoclaw/Clawtter-Argo/internal/profile"
	"github.com/argoclaw/Clawtter-Argo/internal/version"
	"github.com/argoclaw/Clawtter-Argo/server"
	"github.com/argoclaw/Clawtter-Argo/server/service/schedule"
)

var (
	rootCmd = &cobra.Command{
		Use:   "clawtter",
		Short: `An autonomous micro-blogging agent. Run it from cron; it decides on its own whether to post.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Systemd units provide their environment through EnvironmentFile.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
			defer stop()

			cycle, err := a.scheduler(ctx).RunOnce(ctx, schedule.Options{
				Force:       viper.GetBool("force"),
				SummaryOnly: viper.GetBool("summary"),
			})
			if err != nil {
				return err
			}
			printCycle(cycle)
			return nil
		},
		SilenceUsage: true,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the persisted schedule record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			raw, err := a.records.Raw()
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		},
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Write a health report marking every configured model healthy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			report := chain.BuildHealthReport(a.registry, time.Now())
			if err := report.Save(a.profile.HealthReport); err != nil {
				return err
			}
			fmt.Printf("Health report written to %s\n", a.profile.HealthReport)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve schedule, mood, artifacts, feed and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
			defer stop()

			s := server.NewServer(&server.Server{
				Records: a.records,
				Lock:    a.lock,
				Mood:    a.moodFile,
				Store:   a.store,
				Feed:    a.deployer,
				Metrics: a.metrics,
				Now:     a.now,
			})
			printGreetings(a.profile)
			return s.Start(ctx, a.profile.Addr)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Println(version.StringFull())
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", ":8087")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the agent, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", "", "data directory holding posts and state files")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("force", false, "skip the due check and the act decision")
	rootCmd.Flags().Bool("summary", false, "only produce rollups and deploy")
	serveCmd.Flags().String("addr", ":8087", "listen address")

	for _, name := range []string{"mode", "data", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"force", "summary"} {
		if err := viper.BindPFlag(name, rootCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	if err := viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("clawtter")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(statusCmd, modelsCmd, serveCmd, versionCmd)
}

// bootstrap resolves the profile, installs the logger and builds the app.
func bootstrap() (*app, error) {
	p := &profile.Profile{
		Mode:     viper.GetString("mode"),
		Data:     viper.GetString("data"),
		Addr:     viper.GetString("addr"),
		LogLevel: viper.GetString("log-level"),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, p.Mode, logging.ParseLevel(p.LogLevel))
	return newApp(p)
}

func printCycle(c *schedule.Cycle) {
	fmt.Printf("Cycle %s: %s\n", c.ID, c.Outcome)
	if c.Path != "" {
		fmt.Printf("Published: %s\n", c.Path)
	}
	if c.Record != nil {
		fmt.Printf("Next run: %s (in %d minutes)\n", c.Record.NextRun.Format(schedule.RecordTimeLayout), c.Record.DelayMinutes)
	}
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Clawtter %s serving on %s\n", version.String(), p.Addr)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Mode: %s\n", p.Mode)
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("clawtter failed", "error", err)
		os.Exit(1)
	}
}
