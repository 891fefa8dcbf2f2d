package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/database"
	"github.com/schemaflow/schemaflow/diff"
	"github.com/schemaflow/schemaflow/generator"
	"github.com/schemaflow/schemaflow/introspect"
	"github.com/schemaflow/schemaflow/loader"
	"github.com/schemaflow/schemaflow/planner"
)

var (
	diffVisual bool
	diffFile   string
)

func init() {
	diffCmd.Flags().BoolVarP(&diffVisual, "visual", "v", false, "Show changes grouped by table with colors")
	diffCmd.Flags().StringVarP(&diffFile, "file", "f", defaultSchemaFile, "Schema file to use")
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between the declared schema and the database",
	Long: `Show what would change if the declared schema were applied to the
current database.

Examples:
  schemaflow diff            # Execution-ordered operation list
  schemaflow diff --visual   # Grouped per table, with colors
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		model, err := loader.LoadModelSnapshot(diffFile)
		if err != nil {
			fmt.Println("❌ Error loading schema:", err)
			os.Exit(1)
		}

		pool, err := database.GetPool(ctx)
		if err != nil {
			fmt.Println("❌ Error connecting to database:", err)
			os.Exit(1)
		}

		live, err := introspect.ReadLiveSnapshot(ctx, pool)
		if err != nil {
			fmt.Println("❌ Error introspecting database:", err)
			os.Exit(1)
		}

		ops := planner.Sort(diff.Diff(model, live, nil))
		if len(ops) == 0 {
			fmt.Println("✅ No differences found between schema and database")
			return
		}

		if diffVisual {
			showVisualDiff(ops)
		} else {
			showTextDiff(ops)
		}
	},
}

func showTextDiff(ops []diff.Operation) {
	fmt.Println("📋 Schema Changes")
	fmt.Println(strings.Repeat("=", 40))
	for i, op := range ops {
		stmt, err := generator.EmitDDL(op)
		if err != nil {
			fmt.Println("❌ Rendering operation:", err)
			os.Exit(1)
		}
		fmt.Printf("%d. %s\n", i+1, stmt)
	}
}

func showVisualDiff(ops []diff.Operation) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Println("🌳 Schema Changes (Visual Diff)")
	fmt.Println(strings.Repeat("=", 50))

	byTable := map[string][]diff.Operation{}
	var order []string
	for _, op := range ops {
		key := op.TableKey()
		if op.Type == diff.CreateSchema {
			key = op.Schema
		}
		if _, seen := byTable[key]; !seen {
			order = append(order, key)
		}
		byTable[key] = append(byTable[key], op)
	}

	for _, key := range order {
		fmt.Printf("\n📋 %s:\n", key)
		for _, op := range byTable[key] {
			switch op.Type {
			case diff.CreateSchema:
				green.Printf("  ➕ CREATE SCHEMA %s\n", op.Schema)
			case diff.CreateTable:
				green.Printf("  ➕ CREATE TABLE %s\n", op.TableKey())
			case diff.AddColumn:
				green.Printf("  ➕ ADD %s (%s)", op.Column, op.SQLType)
				if !op.Nullable {
					green.Print(" NOT NULL")
				}
				if op.Default != nil {
					green.Printf(" DEFAULT %s", *op.Default)
				}
				green.Println()
			case diff.AddUnique:
				green.Printf("  ➕ UNIQUE %s\n", op.Column)
			case diff.AddForeignKey:
				green.Printf("  ➕ FK %s → %s.%s\n", op.Column, op.RefTableKey(), op.RefColumn)
			case diff.AlterColumnType:
				blue.Printf("  🔄 TYPE %s → %s\n", op.Column, op.SQLType)
			case diff.AlterNullability:
				if op.Nullable {
					blue.Printf("  🔄 %s DROP NOT NULL\n", op.Column)
				} else {
					blue.Printf("  🔄 %s SET NOT NULL\n", op.Column)
				}
			case diff.SetDefault:
				blue.Printf("  🔧 DEFAULT %s = %s\n", op.Column, *op.Default)
			case diff.DropDefault:
				blue.Printf("  🔧 DROP DEFAULT %s\n", op.Column)
			case diff.DropConstraint:
				red.Printf("  ❌ DROP CONSTRAINT %s\n", op.Constraint)
			case diff.DropColumn:
				red.Printf("  ❌ DROP %s\n", op.Column)
			case diff.DropTable:
				red.Printf("  ❌ DROP TABLE %s\n", op.TableKey())
			}
		}
	}
}
