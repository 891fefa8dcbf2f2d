package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/database"
	"github.com/schemaflow/schemaflow/loader"
	"github.com/schemaflow/schemaflow/runner"
)

var (
	migrateTarget string
	dryRunMigrate bool
)

func init() {
	migrateCmd.Flags().StringVar(&migrateTarget, "to", "", "Stop after applying this migration (bare or full name)")
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations in order, each inside its own transaction.

Examples:
  schemaflow migrate                 # Apply everything pending
  schemaflow migrate --to add_users  # Stop after the named migration
  schemaflow migrate --dry-run       # Preview without applying
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		run, err := newRunner(ctx)
		if err != nil {
			fmt.Println("❌ Migration failed:", err)
			os.Exit(1)
		}

		if dryRunMigrate {
			preview, order, err := run.Preview(ctx, migrateTarget)
			if err != nil {
				fmt.Println("❌ Dry run failed:", err)
				os.Exit(1)
			}
			if len(order) == 0 {
				fmt.Println("✅ No pending migrations.")
				return
			}
			fmt.Println("\n================ DRY RUN: Migration Preview ================")
			for _, name := range order {
				fmt.Printf("\n-- Migration: %s --\n", name)
				for _, stmt := range preview[name] {
					fmt.Println(stmt)
				}
			}
			fmt.Println("============================================================")
			fmt.Println("(Dry run only. No migrations were applied.)")
			return
		}

		applied, err := run.ApplyPending(ctx, migrateTarget)
		if err != nil {
			fmt.Println("❌ Migration failed:", err)
			os.Exit(1)
		}
		if applied == 0 {
			fmt.Println("✅ No pending migrations.")
			return
		}
		fmt.Printf("✅ Applied %d migration(s).\n", applied)
	},
}

func newRunner(ctx context.Context) (*runner.Runner, error) {
	registry, err := loader.LoadMigrations(defaultMigrationDir)
	if err != nil {
		return nil, err
	}
	pool, err := database.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	return runner.New(pool, registry), nil
}
