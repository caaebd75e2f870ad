package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresmejia3/keybench/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetDB          bool
	resetReports     bool
	resetDebug       bool
	resetReportFiles []string
	resetDebugDir    string
)

var resetCmd = &cobra.Command{
	Use:         "reset",
	Short:       "Reset system state (Database, CSV Reports, Debug Screenshots)",
	Long:        "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Annotations: map[string]string{dbAnnotation: "optional"},
	Run: func(cmd *cobra.Command, args []string) {
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetReports && !resetDebug {
			resetDB = true
			resetReports = true
			resetDebug = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetDB {
			if DB == nil {
				fmt.Println("ℹ️  No database configured, skipping (use --db or POSTGRES_HOST).")
			} else if confirm(reader, os.Stdout, "⚠️  Are you sure you want to DROP all database tables?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.Die("Failed to reset database", err)
				}
			}
		}

		if resetReports {
			if confirm(reader, os.Stdout, "⚠️  Are you sure you want to delete the CSV reports?") {
				fmt.Println("🗑️  Clearing CSV Reports...")
				for _, f := range resetReportFiles {
					removePath(f)
				}
			}
		}

		if resetDebug {
			if confirm(reader, os.Stdout, "⚠️  Are you sure you want to delete all debug screenshots?") {
				fmt.Println("🗑️  Clearing Debug Screenshots...")
				removePath(resetDebugDir)
			}
		}

		fmt.Println("✨ System Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "database", false, "Clear PostgreSQL database")
	resetCmd.Flags().BoolVar(&resetReports, "reports", false, "Clear CSV reports")
	resetCmd.Flags().BoolVar(&resetDebug, "debug", false, "Clear debug screenshots")
	resetCmd.Flags().StringSliceVar(&resetReportFiles, "report-files", []string{"task7.csv", "task8_task9.csv"}, "CSV reports removed by --reports")
	resetCmd.Flags().StringVar(&resetDebugDir, "screenshot-dir", "debug_frames", "Screenshot directory removed by --debug")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removePath(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}
