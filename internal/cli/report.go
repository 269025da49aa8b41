package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mushtrack/internal/models"
	"mushtrack/internal/report"
	"mushtrack/internal/service"
)

func newReportCommand(a *app) *cobra.Command {
	var (
		maxTemp float64
		minHum  float64
	)
	cmd := &cobra.Command{
		Use:   "report <growth_log.csv>",
		Short: "Summarize an exported growth log",
		Long: `Reads a CSV exported from the dashboard and prints the number of entries,
the entries per growth stage and every entry that breaks the thresholds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := report.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			a.logger.Debug("Growth log loaded", zap.String("file", args[0]), zap.Int("entries", len(entries)))

			out := cmd.OutOrStdout()
			summary := report.Summarize(entries)
			fmt.Fprintf(out, "Entries: %d\n", summary.Entries)
			if summary.Entries == 0 {
				return nil
			}
			if !summary.First.IsZero() {
				fmt.Fprintf(out, "Period: %s to %s\n", summary.First, summary.Last)
			}
			fmt.Fprintln(out, "Stages:")
			for _, stage := range models.GrowthStages {
				if n := summary.StageCounts[stage]; n > 0 {
					fmt.Fprintf(out, "  %-10s %d\n", stage, n)
				}
			}

			settings := models.AlertSettings{MaxTemperature: maxTemp, MinHumidity: minHum}
			fmt.Fprintln(out, "Alerts:")
			alerting := 0
			for _, e := range entries {
				for _, alert := range service.EvaluateAlerts(e, settings) {
					alerting++
					fmt.Fprintf(out, "  %s  %s°C  %s%%  %s\n", e.Date, report.FormatNumber(e.Temperature), report.FormatNumber(e.Humidity), alert.Message)
				}
			}
			if alerting == 0 {
				fmt.Fprintln(out, "  none")
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&maxTemp, "max-temp", models.DefaultMaxTemperature, "High temperature threshold (°C)")
	cmd.Flags().Float64Var(&minHum, "min-humidity", models.DefaultMinHumidity, "Low humidity threshold (%)")
	return cmd
}
