package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rollbackTarget string

func init() {
	rollbackCmd.Flags().StringVar(&rollbackTarget, "to", "", "Migration to roll back to (bare or full name)")
	rollbackCmd.MarkFlagRequired("to")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back applied migrations to a named target",
	Long: `Revert every applied migration after the target, most recent first,
each inside its own transaction. The target itself stays applied.

Examples:
  schemaflow rollback --to add_users
  schemaflow rollback --to 20240101120000_add_users
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		run, err := newRunner(ctx)
		if err != nil {
			fmt.Println("❌ Rollback failed:", err)
			os.Exit(1)
		}

		rolledBack, err := run.RollbackTo(ctx, rollbackTarget)
		if err != nil {
			fmt.Println("❌ Rollback failed:", err)
			os.Exit(1)
		}
		if rolledBack == 0 {
			fmt.Println("✅ Nothing to roll back.")
			return
		}
		fmt.Printf("✅ Rolled back %d migration(s).\n", rolledBack)
	},
}
