package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/keybench/internal/store"
	"github.com/andresmejia3/keybench/internal/utils"
	"github.com/spf13/cobra"
)

var (
	listRunID   int64
	listAllRuns bool
)

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List stored benchmark results (latest run by default)",
	Annotations: map[string]string{dbAnnotation: "required"},
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd.Context())
	},
}

func init() {
	listCmd.Flags().Int64Var(&listRunID, "run", 0, "Run ID to show (default: latest)")
	listCmd.Flags().BoolVar(&listAllRuns, "runs", false, "List runs instead of results")
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) {
	if listAllRuns {
		runs, err := DB.ListRuns(ctx)
		if err != nil {
			utils.Die("Failed to list runs", err)
		}
		if len(runs) == 0 {
			fmt.Println("No benchmark runs found in database.")
			return
		}
		printRuns(os.Stdout, runs)
		return
	}

	runID := listRunID
	if runID <= 0 {
		latest, err := DB.LatestRunID(ctx)
		if err != nil {
			utils.Die("Failed to find latest run", err)
		}
		if latest < 0 {
			fmt.Println("No benchmark runs found in database.")
			return
		}
		runID = latest
	}

	results, err := DB.ListResults(ctx, runID)
	if err != nil {
		utils.Die("Failed to list results", err)
	}
	if len(results) == 0 {
		fmt.Printf("No results stored for run %d.\n", runID)
		return
	}
	fmt.Printf("Run %d\n", runID)
	printResults(os.Stdout, results)
}

func printRuns(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFRAMES\tPAIRS\tSTARTED")
	fmt.Fprintln(w, "--\t----\t------\t-----\t-------")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", r.ID, r.Name, r.FrameCount, r.Results, r.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func printResults(out io.Writer, results []store.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DETECTOR\tDESCRIPTOR\tSTATUS\tKEYPOINTS\tDESCRIBED\tDETECT MS\tTOTAL MS\tMATCHES")
	fmt.Fprintln(w, "--------\t----------\t------\t---------\t---------\t---------\t--------\t-------")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\t%.3f\t%.3f\t%.1f\n",
			r.Detector, r.Descriptor, r.Status,
			r.AvgKeypointsDetected, r.AvgKeypointsDescribed,
			r.AvgDetectorMs, r.AvgTotalMs, r.AvgMatches)
	}
	w.Flush()
}
