package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nightwatch/internal/bootstrap"
	"nightwatch/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "nightwatch",
		Short:         "Day timer overlay with automatic phase detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", defaultDataDir(), "data directory (config, run log, plugins)")

	root.AddCommand(newTUICmd(&dataDir))
	root.AddCommand(newServeCmd(&dataDir))
	root.AddCommand(newClassifyCmd(&dataDir))
	root.AddCommand(newRunsCmd(&dataDir))
	root.AddCommand(newPluginCmd(&dataDir))
	return root
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "nightwatch")
}

func loadApp(dataDir string, opts bootstrap.Options) (*bootstrap.App, error) {
	cfg, err := config.New(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, opts)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newTUICmd(dataDir *string) *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal timer overlay",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("tui needs an interactive terminal; use serve for headless runs")
			}
			app, err := loadApp(*dataDir, bootstrap.Options{Quiet: true})
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			return bootstrap.RunTUI(ctx, app, serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the HTTP overlay")
	return cmd
}

func newServeCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run headless behind the HTTP/WebSocket overlay",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signalContext()
			defer stop()
			return bootstrap.Serve(ctx, app)
		},
	}
}

func newClassifyCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Capture and classify the screen once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.TrackerCLI.ClassifyOnce(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%dms)\n", out.Label, out.Duration.Milliseconds())
			return nil
		},
	}
}

func newRunsCmd(dataDir *string) *cobra.Command {
	runs := &cobra.Command{Use: "runs", Short: "Archived session runs"}

	var limit int
	var outcome string
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			items, err := app.RunsCLI.List(cmd.Context(), limit, outcome)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs")
				return nil
			}
			for _, r := range items {
				marks := make([]string, 0, len(r.Marks))
				for _, m := range r.Marks {
					marks = append(marks, m.Display)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Outcome, r.Total, strings.Join(marks, " "))
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	list.Flags().StringVar(&outcome, "outcome", "", "filter: victory|defeat|expired")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			r, err := app.RunsCLI.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "id: %s\nstarted: %s\nended: %s\noutcome: %s\ntotal: %s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.EndedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, r.Total)
			for _, m := range r.Marks {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", m.Label, m.Display)
			}
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a run as a markdown note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.RunsCLI.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", out.RunID, out.Path)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarise all runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			s, err := app.RunsCLI.Stats(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "runs: %d\nvictories: %d\ndefeats: %d\nexpired: %d\nbest victory: %s\n", s.Runs, s.Victories, s.Defeats, s.Expired, s.BestVictory)
			return nil
		},
	}

	runs.AddCommand(list, show, export, stats)
	return runs
}

func newPluginCmd(dataDir *string) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Classifier plugin operations"}
	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List classifier plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			plugins, err := app.VisionCLI.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t binary=%s capabilities=%s\n", p.Name, p.Version, p.Enabled, p.Binary, strings.Join(p.Capabilities, ","))
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin checksums, lifecycle and label sets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.VisionCLI.Doctor(cmd.Context())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t labels=%s", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK, strings.Join(r.Labels, ","))
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})
	return plugin
}
