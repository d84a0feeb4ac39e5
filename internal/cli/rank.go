package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"

	"github.com/spf13/cobra"
)

// NewRankCmd prints the ranking report for the configured result store.
func NewRankCmd(configPath *string) *cobra.Command {
	var tieBreak string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank stored results and print the winner, top 3 and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), *configPath, tieBreak, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&tieBreak, "tie-break", "", "time_spent or timestamp (defaults to results.tie_break)")
	return cmd
}

func runRank(ctx context.Context, configPath, tieBreakName string, out io.Writer) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	if tieBreakName == "" {
		tieBreakName = cfg.Results.TieBreak
	}
	tieBreak, err := app.TieBreakByName(tieBreakName)
	if err != nil {
		return err
	}

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	store, err := d.resultStore(ctx)
	if err != nil {
		return err
	}
	results, err := store.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}

	ranked := app.Rank(results, tieBreak)
	return writeReport(out, ranked, app.Summarize(ranked), tieBreak.Name)
}

// writeReport renders the ranking table, the winner, the top three and statistics.
func writeReport(out io.Writer, ranked []domain.RankedResult, summary domain.Summary, tieBreak string) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(out, "No test results found.")
		return err
	}

	fmt.Fprintf(out, "RESULTS (%d participants, ties broken by %s)\n\n", len(ranked), tieBreak)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Rank\tName\tPhone\tScore\t%\tTime\tTimestamp\t")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%d%%\t%s\t%s\t\n",
			r.Rank, r.Name, r.Phone, r.Score, r.TotalQuestions, r.Percentage,
			clock(r.TimeSpent), r.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	w := summary.Winner
	fmt.Fprintf(out, "\nWINNER\n  %s (%s)\n  Score: %d/%d (%d%%)\n  Time: %s\n  Completed: %s\n",
		w.Name, w.Phone, w.Score, w.TotalQuestions, w.Percentage, clock(w.TimeSpent),
		w.Timestamp.Local().Format(time.DateTime))

	fmt.Fprintln(out, "\nTOP 3")
	for i, r := range ranked {
		if i == 3 {
			break
		}
		fmt.Fprintf(out, "  %d. %s - %d/%d (%d%%)\n", r.Rank, r.Name, r.Score, r.TotalQuestions, r.Percentage)
	}

	total := ranked[0].TotalQuestions
	var b strings.Builder
	fmt.Fprintf(&b, "\nSTATISTICS\n")
	fmt.Fprintf(&b, "  Participants: %d\n", summary.Participants)
	fmt.Fprintf(&b, "  Average score: %d/%d (%d%%)\n", summary.AverageScore, total, summary.AveragePercentage)
	fmt.Fprintf(&b, "  Highest score: %d/%d\n", summary.HighestScore, total)
	fmt.Fprintf(&b, "  Fastest time: %s\n", clock(summary.FastestTime))
	_, err := io.WriteString(out, b.String())
	return err
}

// clock formats seconds as m:ss.
func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
