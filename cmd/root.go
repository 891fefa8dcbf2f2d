package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Default locations relative to the project root.
const (
	defaultSchemaFile   = "schema.yaml"
	defaultMigrationDir = "migrations"
)

var rootCmd = &cobra.Command{
	Use:   "schemaflow",
	Short: "A declarative schema migration engine for PostgreSQL",
	Long: `schemaflow reconciles a declared data model with a live database:
it diffs the two schemas, generates dependency-ordered migrations and
applies or reverts them transactionally.

A single process is assumed to run migrations against a database at a
time; there is no cross-process lock.

Examples:

  schemaflow init
  schemaflow generate
  schemaflow migrate
`,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
}
