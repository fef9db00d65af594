package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hoanghonghuy/commitlab/internal/runlog"
	"github.com/hoanghonghuy/commitlab/internal/score"
)

func newReportCommand(root *RootOptions) *cobra.Command {
	var experimentID string
	var latest bool
	cmd := &cobra.Command{
		Use:   "report <log>",
		Short: "Score and rank the configurations recorded in a run log",
		Long: `Read a JSONL run log, group records by provider, model and strategy,
and rank the configurations by

  score = valid_rate*100 - retry_rate*20 - average_latency_ms/1000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := runlog.ReadFile(args[0])
			if err != nil {
				return err
			}
			if latest {
				experimentID = latestExperiment(records)
			}
			if experimentID != "" {
				records = filterExperiment(records, experimentID)
			}
			return writeReport(cmd.OutOrStdout(), root.Format, experimentID, score.SummarizeAll(records))
		},
	}
	cmd.Flags().StringVar(&experimentID, "experiment", "", "only include records of this experiment id")
	cmd.Flags().BoolVar(&latest, "latest", false, "only include records of the last experiment in the log")
	return cmd
}

func latestExperiment(records []runlog.Record) string {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ExperimentID != "" {
			return records[i].ExperimentID
		}
	}
	return ""
}

func filterExperiment(records []runlog.Record, id string) []runlog.Record {
	var out []runlog.Record
	for _, r := range records {
		if r.ExperimentID == id {
			out = append(out, r)
		}
	}
	return out
}

type reportJSON struct {
	ExperimentID string          `json:"experiment_id,omitempty"`
	Summaries    []score.Summary `json:"summaries"`
}

func writeReport(w io.Writer, format, experimentID string, summaries []score.Summary) error {
	if format == "json" {
		if summaries == nil {
			summaries = []score.Summary{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reportJSON{ExperimentID: experimentID, Summaries: summaries})
	}

	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	if experimentID != "" {
		fmt.Fprintln(w, titleStyle.Render("Experiment "+experimentID))
	}
	_, err := fmt.Fprintln(w, reportTable(summaries).Render())
	return err
}

func reportTable(summaries []score.Summary) *table.Table {
	rows := make([][]string, 0, len(summaries))
	for i, s := range summaries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.Key.Provider,
			s.Key.Model,
			s.Key.Strategy,
			orDash(s.Key.Constraints),
			strconv.Itoa(s.Runs),
			fmt.Sprintf("%.0f%%", s.ValidRate*100),
			fmt.Sprintf("%.2f", s.RetryRate),
			fmt.Sprintf("%.0f", s.AverageLatency),
			fmt.Sprintf("%.1f", s.AverageWords),
			topReason(s.Reasons),
			formatScore(s),
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers("#", "PROVIDER", "MODEL", "STRATEGY", "CONSTRAINTS", "RUNS", "VALID", "RETRIES", "LATENCY MS", "WORDS", "TOP FAILURE", "SCORE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatScore(s score.Summary) string {
	if !s.Scored() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", s.Score)
}

// topReason returns the most frequent failure reason, ties broken by name.
func topReason(reasons map[string]int) string {
	if len(reasons) == 0 {
		return "-"
	}
	names := make([]string, 0, len(reasons))
	for r := range reasons {
		names = append(names, r)
	}
	sort.Slice(names, func(i, j int) bool {
		if reasons[names[i]] != reasons[names[j]] {
			return reasons[names[i]] > reasons[names[j]]
		}
		return names[i] < names[j]
	})
	return fmt.Sprintf("%s (%d)", names[0], reasons[names[0]])
}
