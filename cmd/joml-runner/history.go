package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lattice-substrate/joml-conformance/history"
	"github.com/lattice-substrate/joml-conformance/runerr"
)

func newHistoryCommand(root *rootFlags, stdout io.Writer) *cobra.Command {
	var (
		limit     int
		fixtureID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or one fixture's verdicts across runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig(cmd, *root)
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return runerr.New(runerr.CLIUsage, "", "no history database configured (set history_db or --history-db)")
			}

			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return runerr.Wrap(runerr.InternalIO, cfg.HistoryDB, "open history", err)
			}
			defer store.Close()

			w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			if fixtureID != "" {
				results, err := store.FixtureHistory(cmd.Context(), fixtureID, limit)
				if err != nil {
					return runerr.Wrap(runerr.InternalIO, cfg.HistoryDB, "query history", err)
				}
				fmt.Fprintln(w, "RUN\tSTARTED\tVERDICT\tREASON\tDURATION")
				for _, r := range results {
					verdict := "PASS"
					if !r.Pass {
						verdict = "FAIL"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.RunID, stamp(r.StartedAt), verdict, r.Reason, r.Duration.Round(time.Millisecond))
				}
				return w.Flush()
			}

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return runerr.Wrap(runerr.InternalIO, cfg.HistoryDB, "query history", err)
			}
			fmt.Fprintln(w, "RUN\tSTARTED\tTOTAL\tFAILED\tDURATION\tSUBJECT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", r.RunID, stamp(r.StartedAt), r.Total, r.Failed, r.Duration.Round(time.Millisecond), r.Subject)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of rows, 0 for all")
	cmd.Flags().StringVar(&fixtureID, "fixture", "", "show the verdict history of one fixture id")
	return cmd
}

func stamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
