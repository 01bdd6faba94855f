// Package runner drives a conformance run: discover fixtures, execute the
// subject once per fixture, evaluate and report each verdict in discovery
// order.
package runner

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/lattice-substrate/joml-conformance/evaluate"
	"github.com/lattice-substrate/joml-conformance/executil"
	"github.com/lattice-substrate/joml-conformance/fixture"
	"github.com/lattice-substrate/joml-conformance/logger"
	"github.com/lattice-substrate/joml-conformance/report"
	"github.com/lattice-substrate/joml-conformance/runerr"
)

// Options configures a run.
type Options struct {
	// Root is the fixture root.
	Root string
	// Subject is the parser binary invoked as `Subject <input-path>`.
	Subject string
	// Selection restricts the run to the given fixture paths, in order.
	Selection []string
	// Jobs bounds the number of concurrent subject processes. Values
	// below one mean sequential.
	Jobs int

	Runner  executil.Runner
	Console *report.Console
	Log     *logger.Console
	Now     func() time.Time
}

type outcome struct {
	verdict  evaluate.Verdict
	duration time.Duration
	err      error
}

// Run executes every selected fixture and returns the accumulated summary.
// A configuration error, whether raised by discovery or by a subject that
// cannot be launched, aborts the run and is returned instead.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	if opts.Runner == nil {
		return nil, runerr.New(runerr.InternalError, "", "runner: nil executil.Runner")
	}
	if opts.Console == nil {
		return nil, runerr.New(runerr.InternalError, "", "runner: nil report.Console")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	if err := checkSubject(opts.Subject); err != nil {
		return nil, err
	}

	fixtures, err := fixture.Discover(opts.Root, opts.Selection)
	if err != nil {
		return nil, err
	}
	log.Infof("discovered %d fixtures under %s", len(fixtures), opts.Root)

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	if jobs > len(fixtures) {
		jobs = max(len(fixtures), 1)
	}

	summary := report.NewSummary(opts.Subject, now())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]chan outcome, len(fixtures))
	for i := range slots {
		slots[i] = make(chan outcome, 1)
	}
	queue := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				slots[i] <- execute(ctx, opts.Runner, opts.Subject, fixtures[i], log)
			}
		}()
	}
	go func() {
		defer close(queue)
		for i := range fixtures {
			select {
			case queue <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var runErr error
	for i, f := range fixtures {
		opts.Console.Begin(f.ID)
		var o outcome
		select {
		case o = <-slots[i]:
		case <-ctx.Done():
			o = outcome{err: ctx.Err()}
		}
		if o.err != nil {
			opts.Console.Abort(f.ID)
			log.Errorf("%s: run aborted: %v", f.ID, o.err)
			runErr = o.err
			break
		}
		opts.Console.Finish(f.ID, o.verdict)
		summary.Record(f.ID, o.verdict, o.duration)
	}
	cancel()
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}
	summary.Finish(now())
	log.Debugf("run %s finished in %s", summary.RunID, summary.Duration)
	return summary, nil
}

func execute(ctx context.Context, r executil.Runner, subject string, f fixture.Fixture, log *logger.Console) outcome {
	argv := []string{subject, f.InputPath}
	log.Debugf("%s: exec %q", f.ID, argv)

	res, err := r.Run(ctx, argv)
	if err != nil {
		return outcome{err: err}
	}
	if res.TimedOut {
		log.Warnf("%s: subject timed out after %s", f.ID, res.Duration.Round(time.Millisecond))
	}
	log.Debugf("%s: exit %d in %s", f.ID, res.ExitCode, res.Duration.Round(time.Millisecond))
	return outcome{verdict: evaluate.Evaluate(f, res), duration: res.Duration}
}

// checkSubject rejects a subject path that does not name a regular file,
// before any fixture is reported.
func checkSubject(path string) error {
	if path == "" {
		return runerr.New(runerr.CLIUsage, "", "subject binary is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return runerr.Wrap(runerr.SubjectLaunch, path, "subject binary not found", err)
	}
	if info.IsDir() {
		return runerr.New(runerr.SubjectLaunch, path, "subject binary is a directory")
	}
	return nil
}
