package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/concierge/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print per-model totals of recorded agent metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), cfg, newLogger(false))
		if err != nil {
			return err
		}
		defer a.Close()

		if a.recorder == nil {
			fmt.Println("Metrics are disabled (metrics.driver: none).")
			return nil
		}

		totals, err := a.recorder.Summary(cmd.Context())
		if err != nil {
			return err
		}
		if len(totals) == 0 {
			fmt.Println("No metrics recorded yet.")
			return nil
		}
		return printTotals(totals)
	},
}

func printTotals(totals []metrics.Total) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tMETRIC\tCOUNT\tTOTAL")
	var cost float64
	for _, t := range totals {
		value := fmt.Sprintf("%.0f", t.Sum)
		if t.Metric == metrics.CostUSD {
			value = fmt.Sprintf("$%.4f", t.Sum)
			cost += t.Sum
		}
		if strings.HasPrefix(t.Metric, "tool_") || t.Metric == metrics.LLMCall || t.Metric == metrics.LLMError {
			value = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.LLM, t.Metric, t.Count, value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nEstimated spend: $%.4f\n", cost)
	return nil
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
