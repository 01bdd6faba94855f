// Command joml-runner checks a JOML parser against a directory of
// conformance fixtures.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lattice-substrate/joml-conformance/config"
	"github.com/lattice-substrate/joml-conformance/executil"
	"github.com/lattice-substrate/joml-conformance/history"
	"github.com/lattice-substrate/joml-conformance/logger"
	"github.com/lattice-substrate/joml-conformance/report"
	"github.com/lattice-substrate/joml-conformance/runerr"
	"github.com/lattice-substrate/joml-conformance/runner"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// errFixturesFailed reports a completed run with failing fixtures. It maps
// to runerr.ExitFailed and prints nothing beyond the summary.
var errFixturesFailed = errors.New("fixtures failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return runerr.ExitPassed
	case errors.Is(err, errFixturesFailed):
		return runerr.ExitFailed
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return runerr.ClassOf(err).ExitCode()
}

type rootFlags struct {
	root        string
	timeout     time.Duration
	jobs        int
	logLevel    string
	color       string
	summaryJSON string
	reportHTML  string
	historyDB   string
	verbose     bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "joml-runner [flags] <subject-binary> [case-path ...]",
		Short: "Run JOML conformance fixtures against a parser",
		Long: `joml-runner invokes the subject parser once per fixture as
"<subject-binary> <fixture>/input.joml" and compares the result with the
fixture's output.json or error reference.

The run root (current directory or --root) must contain runner.yaml.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return runerr.New(runerr.CLIUsage, "", "missing subject binary\nusage: "+cmd.UseLine())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixtures(cmd, f, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return runerr.Wrap(runerr.CLIUsage, "", "invalid flags", err)
	})

	fl := cmd.Flags()
	fl.SortFlags = false
	cmd.PersistentFlags().StringVar(&f.root, "root", "", "fixture root containing runner.yaml (default: current directory)")
	fl.DurationVar(&f.timeout, "timeout", 0, "per-fixture subject timeout, 0 disables")
	fl.IntVarP(&f.jobs, "jobs", "j", 1, "number of fixtures run concurrently")
	fl.StringVar(&f.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	fl.StringVar(&f.color, "color", "", "colorize output: auto, always, never")
	fl.StringVar(&f.summaryJSON, "summary-json", "", "write a JSON run summary to this path")
	fl.StringVar(&f.reportHTML, "report-html", "", "write an HTML report to this path")
	cmd.PersistentFlags().StringVar(&f.historyDB, "history-db", "", "SQLite database recording run history")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "show structural diffs for differing output")

	cmd.AddCommand(newHistoryCommand(&f, stdout))
	return cmd
}

// loadConfig resolves the run root and merges runner.yaml with the flags
// the user actually set.
func loadConfig(cmd *cobra.Command, f rootFlags) (string, *config.Config, error) {
	root := f.root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", nil, runerr.Wrap(runerr.InternalIO, f.root, "resolve root", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return "", nil, err
	}

	var o config.Overrides
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("timeout") {
		o.Timeout = &f.timeout
	}
	if changed("jobs") {
		o.Jobs = &f.jobs
	}
	if changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if changed("color") {
		o.Color = &f.color
	}
	if changed("summary-json") {
		o.SummaryJSON = &f.summaryJSON
	}
	if changed("report-html") {
		o.ReportHTML = &f.reportHTML
	}
	if changed("history-db") {
		o.HistoryDB = &f.historyDB
	}
	if changed("verbose") {
		o.Verbose = &f.verbose
	}
	if err := cfg.Merge(o); err != nil {
		return "", nil, err
	}
	cfg.Resolve(root)
	return root, cfg, nil
}

func runFixtures(cmd *cobra.Command, f rootFlags, args []string, stdout, stderr io.Writer) error {
	root, cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return runerr.Wrap(runerr.InvalidConfig, "", "log level", err)
	}
	log := logger.New(stderr, level, report.UseColor(cfg.Color, stderr))

	subject, err := resolveSubject(args[0])
	if err != nil {
		return err
	}

	console := report.NewConsole(stdout, stderr, cfg.Color, cfg.Verbose)
	sum, err := runner.Run(cmd.Context(), runner.Options{
		Root:      root,
		Subject:   subject,
		Selection: args[1:],
		Jobs:      cfg.Jobs,
		Runner:    executil.OSRunner{Timeout: cfg.Timeout, Env: cfg.Env, Dir: root},
		Console:   console,
		Log:       log,
	})
	if err != nil {
		return err
	}
	console.Summary(sum)

	if err := writeArtifacts(cmd.Context(), cfg, sum, log); err != nil {
		return err
	}
	if !sum.Passed() {
		return errFixturesFailed
	}
	return nil
}

func writeArtifacts(ctx context.Context, cfg *config.Config, sum *report.Summary, log *logger.Console) error {
	if cfg.SummaryJSON != "" {
		if err := report.WriteJSON(cfg.SummaryJSON, sum); err != nil {
			return err
		}
		log.Infof("wrote summary %s", cfg.SummaryJSON)
	}
	if cfg.ReportHTML != "" {
		if err := report.WriteHTML(cfg.ReportHTML, sum); err != nil {
			return err
		}
		log.Infof("wrote report %s", cfg.ReportHTML)
	}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return runerr.Wrap(runerr.InternalIO, cfg.HistoryDB, "open history", err)
		}
		defer store.Close()
		if err := store.RecordRun(ctx, sum); err != nil {
			return runerr.Wrap(runerr.InternalIO, cfg.HistoryDB, "record run", err)
		}
		log.Infof("recorded run %s in %s", sum.RunID, store.Path())
	}
	return nil
}

// resolveSubject turns the subject argument into an absolute path. A bare
// name that does not exist in the current directory is looked up on PATH.
func resolveSubject(arg string) (string, error) {
	if arg == "" {
		return "", runerr.New(runerr.CLIUsage, "", "empty subject binary")
	}
	if !strings.ContainsRune(arg, os.PathSeparator) && !strings.ContainsRune(arg, '/') {
		if _, err := os.Stat(arg); err != nil {
			p, lookErr := exec.LookPath(arg)
			if lookErr != nil {
				return "", runerr.Wrap(runerr.SubjectLaunch, arg, "subject binary not found", lookErr)
			}
			arg = p
		}
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", runerr.Wrap(runerr.InternalIO, arg, "resolve subject", err)
	}
	return abs, nil
}
