package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tidy-go/internal/app"
	"tidy-go/internal/config"
	"tidy-go/internal/tidy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file at the default location.
func loadConfig() (*config.Config, string, error) {
	loc, err := config.DefaultLocations()
	if err != nil {
		return nil, "", fmt.Errorf("locating config: %w", err)
	}
	path := loc.ConfigPath
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading config (run 'tidy config init' first?): %w", err)
	}
	return cfg, path, nil
}

// newApp reads the config and creates a TidyApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. app.OpApply, app.OpUndo).
func newApp(operation, parameters string) (*app.TidyApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewTidyApp(cfg, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "tidy",
	Short:        "Organize a folder into category subfolders",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := config.DefaultLocations()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}

		cfg := config.NewConfig(loc.BaseDir)
		if err := config.Init(loc.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", loc.ConfigPath)
		fmt.Printf("Base Dir:   %s\n", loc.BaseDir)
		fmt.Printf("Categories: %d\n", len(cfg.Rules))
		fmt.Println("Run 'tidy config keys' to encrypt undo log snapshots.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("# Configuration from %s\n\n", path)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair that encrypts undo log snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpKeys, "")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.KeysConfigured() {
			fmt.Println("Encryption keys already exist.")
			return nil
		}
		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("creating keys: %w", err)
		}
		fmt.Println("Encryption keys created. Keep the passphrase safe: restoring a snapshot needs it.")
		return nil
	},
}

// assign command
var assignCmd = &cobra.Command{
	Use:   "assign PATH [CATEGORY]",
	Short: "Always file PATH under CATEGORY",
	Long:  "Records a manual category for a file. Manual assignments win over tags, extensions and dates. Omit CATEGORY with --remove to drop an assignment.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remove, _ := cmd.Flags().GetBool("remove")

		category := ""
		switch {
		case remove && len(args) == 2:
			return fmt.Errorf("--remove takes no CATEGORY")
		case !remove && len(args) != 2:
			return fmt.Errorf("CATEGORY is required")
		case !remove:
			category = args[1]
		}

		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		if err := cfg.Assign(abs, category); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}

		if remove {
			fmt.Printf("Removed assignment for %s\n", abs)
		} else {
			fmt.Printf("%s -> %s\n", abs, category)
		}
		return nil
	},
}

// preview command
var previewCmd = &cobra.Command{
	Use:   "preview [ROOT]",
	Short: "Show what organizing ROOT would do",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")
		format, _ := cmd.Flags().GetString("format")

		opts, err := runOptions(cmd, args)
		if err != nil {
			return err
		}

		a, err := newApp(app.OpPreview, opts.String())
		if err != nil {
			return err
		}
		defer a.Close()

		pv, err := a.Preview(cmd.Context(), opts, save)
		if err != nil {
			return err
		}

		if err := printPlan(os.Stdout, pv, format); err != nil {
			return err
		}
		if save {
			fmt.Fprintf(os.Stderr, "Staged plan %s. Run 'tidy apply --latest' to execute it.\n", pv.Plan.ID)
		}
		return nil
	},
}

// apply command
var applyCmd = &cobra.Command{
	Use:   "apply [ROOT]",
	Short: "Organize ROOT, or execute a staged plan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, _ := cmd.Flags().GetString("plan")
		latest, _ := cmd.Flags().GetBool("latest")
		staged := planID != "" || latest
		if staged && len(args) > 0 {
			return fmt.Errorf("ROOT cannot be combined with --plan or --latest")
		}

		opts, err := runOptions(cmd, args)
		if err != nil {
			return err
		}
		params := opts.String()
		if staged {
			params = "plan=" + planID
		}

		a, err := newApp(app.OpApply, params)
		if err != nil {
			return err
		}
		defer a.Close()

		progress, done := showProgress("Organizing")
		var report *tidy.Report
		if staged {
			var p *tidy.Plan
			p, err = a.StagedPlan(planID)
			if err != nil {
				close(progress)
				<-done
				return err
			}
			report, err = a.ApplyStaged(cmd.Context(), p, progress)
			<-done
			if err != nil && report == nil {
				return err
			}
		} else {
			_, report, err = a.Organize(cmd.Context(), opts, progress)
			<-done
			if err != nil && report == nil {
				return err
			}
		}

		printReport(os.Stdout, report)
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %d action(s) not started; 'tidy undo --all' reverts the completed ones", report.Canceled)
		}
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d action(s) failed", report.Failed)
		}
		return nil
	},
}

// dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes [ROOT]",
	Short: "List identical files under ROOT",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd, args)
		if err != nil {
			return err
		}

		a, err := newApp(app.OpDuplicates, opts.String())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Duplicates(cmd.Context(), opts)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return printDuplicates(os.Stdout, report, format)
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats [ROOT]",
	Short: "Summarize the files under ROOT",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions(cmd, args)
		if err != nil {
			return err
		}

		a, err := newApp(app.OpStats, opts.String())
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Stats(cmd.Context(), opts)
		if err != nil {
			return err
		}
		printStats(os.Stdout, st)
		return nil
	},
}

// undo command
var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the most recent actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("count")
		all, _ := cmd.Flags().GetBool("all")

		params := fmt.Sprintf("count=%d", n)
		if all {
			params = "all"
		}
		a, err := newApp(app.OpUndo, params)
		if err != nil {
			return err
		}
		defer a.Close()

		rr, err := a.Undo(n, all)
		if err != nil {
			return err
		}
		printRevert(os.Stdout, rr)
		if rr.Failed > 0 {
			return fmt.Errorf("%d action(s) could not be reverted", rr.Failed)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect and manage the undo log",
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the undo log",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpHistory, "")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Undo log is empty.")
			return nil
		}
		printHistory(os.Stdout, entries)
		return nil
	},
}

var logClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every undo log entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("clearing the log makes past actions irreversible; pass --yes to confirm")
		}

		a, err := newApp(app.OpClearLog, "")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearLog(); err != nil {
			return err
		}
		fmt.Println("Undo log cleared.")
		return nil
	},
}

var logSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List archived undo log snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpRestoreLog, "")
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.Snapshots()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No snapshots archived.")
			return nil
		}
		for _, it := range items {
			fmt.Printf("%-24s  %s  %8s\n", it.Name, it.ModTime.Format("2006-01-02 15:04:05"), humanize.Bytes(uint64(it.Size)))
		}
		return nil
	},
}

var logRestoreCmd = &cobra.Command{
	Use:   "restore SNAPSHOT DEST",
	Short: "Write an archived undo log snapshot to DEST",
	Long:  "Writes the snapshot to DEST, which must not exist. Stop using tidy and move DEST over the database file to restore it.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(app.OpRestoreLog, args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.SnapshotNeedsPassphrase(args[0]) {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}
		if err := a.RestoreSnapshot(args[0], args[1], passphrase); err != nil {
			return err
		}
		fmt.Printf("Restored %s to %s\n", args[0], args[1])
		return nil
	},
}

// runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "View the history of organize and undo runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(app.OpHistory, "")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.Runs(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-8s  ok:%-5d failed:%-5d %s\n",
				r.ID,
				r.Operation,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status,
				r.Succeeded,
				r.Failed,
				duration,
			)
		}
		return nil
	},
}

// runOptions collects the organize flags shared by preview, apply, dupes and stats.
func runOptions(cmd *cobra.Command, args []string) (app.RunOptions, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return app.RunOptions{}, fmt.Errorf("resolving path: %w", err)
	}

	f := cmd.Flags()
	o := app.RunOptions{Root: abs}
	o.DestRoot, _ = f.GetString("dest")
	o.Mode, _ = f.GetString("mode")
	o.DateMode, _ = f.GetString("date")
	o.Tags, _ = f.GetStringSlice("tag")
	o.MinSize, _ = f.GetString("min-size")
	o.MaxSize, _ = f.GetString("max-size")
	o.After, _ = f.GetString("after")
	o.Before, _ = f.GetString("before")

	boolFlag := func(name string, invert bool) *bool {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetBool(name)
		if invert {
			v = !v
		}
		return &v
	}
	o.Recursive = boolFlag("recursive", false)
	o.SkipHidden = boolFlag("hidden", true)
	o.SkipDuplicates = boolFlag("skip-duplicates", false)

	if o.DestRoot != "" {
		if o.DestRoot, err = filepath.Abs(o.DestRoot); err != nil {
			return app.RunOptions{}, fmt.Errorf("resolving destination: %w", err)
		}
	}
	return o, nil
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("dest", "", "Create category folders here instead of under ROOT")
	f.String("mode", "", "move or copy (default from config)")
	f.String("date", "", "Date folders: off, category or subfolder")
	f.BoolP("recursive", "r", false, "Include files in subfolders")
	f.Bool("hidden", false, "Include hidden files")
	f.Bool("skip-duplicates", false, "Leave all but one copy of identical files in place")
	f.StringSlice("tag", nil, "Filename tags to sort by (repeatable)")
	f.String("min-size", "", "Only files at least this large (e.g. 10MB)")
	f.String("max-size", "", "Only files at most this large")
	f.String("after", "", "Only files modified on or after this date (YYYY-MM-DD)")
	f.String("before", "", "Only files modified before this date")
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// log subcommands
	logCmd.AddCommand(logListCmd)
	logCmd.AddCommand(logClearCmd)
	logClearCmd.Flags().Bool("yes", false, "Confirm clearing the log")
	logCmd.AddCommand(logSnapshotsCmd)
	logCmd.AddCommand(logRestoreCmd)

	// organize commands
	for _, c := range []*cobra.Command{previewCmd, applyCmd, dupesCmd, statsCmd} {
		addRunFlags(c)
	}
	previewCmd.Flags().Bool("save", false, "Stage the plan for 'tidy apply --latest'")
	previewCmd.Flags().StringP("format", "o", "table", "Output format: table, yaml or json")
	dupesCmd.Flags().StringP("format", "o", "table", "Output format: table, yaml or json")
	applyCmd.Flags().String("plan", "", "Execute the staged plan with this id")
	applyCmd.Flags().Bool("latest", false, "Execute the most recently staged plan")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(assignCmd)
	assignCmd.Flags().Bool("remove", false, "Remove the assignment for PATH")
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(undoCmd)
	undoCmd.Flags().IntP("count", "n", 1, "Number of actions to revert")
	undoCmd.Flags().Bool("all", false, "Revert every pending action")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
