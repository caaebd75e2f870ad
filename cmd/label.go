package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/andresmejia3/keybench/internal/utils"
	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:         "label <run_id> <name>",
	Short:       "Assign a name to a stored benchmark run",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{dbAnnotation: "required"},
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			utils.Die("Invalid run ID", err)
		}
		runLabel(cmd.Context(), id, args[1])
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}

func runLabel(ctx context.Context, id int64, name string) {
	// Database is initialized in Root PersistentPreRun
	if err := DB.RenameRun(ctx, id, name); err != nil {
		utils.Die("Failed to label run", err)
	}

	fmt.Printf("✅ Run %d labeled as '%s'\n", id, name)
}
