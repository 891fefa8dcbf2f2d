package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/database"
	"github.com/schemaflow/schemaflow/diff"
	"github.com/schemaflow/schemaflow/generator"
	"github.com/schemaflow/schemaflow/introspect"
	"github.com/schemaflow/schemaflow/loader"
	"github.com/schemaflow/schemaflow/planner"
	"github.com/schemaflow/schemaflow/runner"
)

var (
	generateSchemaFile string
	generateLabel      string
	dryRunGenerate     bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateSchemaFile, "file", "f", defaultSchemaFile, "Schema YAML file to load")
	generateCmd.Flags().StringVarP(&generateLabel, "label", "l", "migration", "Label embedded in the migration filename")
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the SQL without writing a migration file")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a migration from the declared schema",
	Long: `Diff the declared schema against the live database and write the
resulting operations into a timestamped migration file.

Changes already captured by generated-but-unapplied migrations are not
generated a second time.

Examples:
  schemaflow generate
  schemaflow generate -f custom.yaml -l add_orders
  schemaflow generate --dry-run
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		model, err := loader.LoadModelSnapshot(generateSchemaFile)
		if err != nil {
			fmt.Println("❌ Loading schema:", err)
			os.Exit(1)
		}

		pool, err := database.GetPool(ctx)
		if err != nil {
			fmt.Println("❌ Connecting to database:", err)
			os.Exit(1)
		}

		live, err := introspect.ReadLiveSnapshot(ctx, pool)
		if err != nil {
			fmt.Println("❌ Introspecting database:", err)
			os.Exit(1)
		}

		registry, err := loader.LoadMigrations(defaultMigrationDir)
		if err != nil {
			fmt.Println("❌ Loading migrations:", err)
			os.Exit(1)
		}

		committed, err := committedOps(ctx, pool, registry)
		if err != nil {
			fmt.Println("❌ Reading migration history:", err)
			os.Exit(1)
		}

		// Pending migrations are folded into the live snapshot before
		// diffing, so the new migration builds on the schema as it will
		// be once they run.
		projected := diff.Project(live, committed)

		ops := diff.Diff(model, projected, committed)
		if len(ops) == 0 {
			fmt.Println("✅ No changes detected.")
			return
		}

		up := planner.Sort(ops)
		down := generator.Inverse(up, projected)

		if dryRunGenerate {
			previewSQL(up, down)
			return
		}

		filename, err := generator.WriteMigrationFile(defaultMigrationDir, generateLabel, up, down)
		if err != nil {
			fmt.Println("❌ Writing migration file:", err)
			os.Exit(1)
		}
		fmt.Println("✅ Migration generated:", filename)
	},
}

// committedOps collects the operations of migrations that exist on disk
// but have not run against this database yet.
func committedOps(ctx context.Context, pool *pgxpool.Pool, registry *runner.Registry) ([]diff.Operation, error) {
	run := runner.New(pool, registry)
	_, pending, err := run.Status(ctx)
	if err != nil {
		return nil, err
	}

	pendingSet := make(map[string]bool, len(pending))
	for _, name := range pending {
		pendingSet[name] = true
	}

	var ops []diff.Operation
	for _, m := range registry.Migrations() {
		if pendingSet[m.Name] {
			ops = append(ops, m.Up...)
		}
	}
	return ops, nil
}

func previewSQL(up, down []diff.Operation) {
	fmt.Println("\n================ DRY RUN: Migration Preview ================")
	fmt.Println("-- Up Migration SQL --")
	printStatements(up)
	fmt.Println("\n-- Down Migration (Rollback) SQL --")
	printStatements(down)
	fmt.Println("============================================================")
	fmt.Println("(Dry run only. No files were written.)")
}

func printStatements(ops []diff.Operation) {
	stmts, err := generator.EmitAll(ops)
	if err != nil {
		fmt.Println("❌ Generating SQL:", err)
		os.Exit(1)
	}
	for _, stmt := range stmts {
		fmt.Println(stmt)
	}
}
