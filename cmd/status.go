package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		run, err := newRunner(ctx)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		records, pending, err := run.Status(ctx)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		fmt.Println("✅ Applied migrations:")
		for _, rec := range records {
			fmt.Printf("   - %s (%s)\n", rec.Name, rec.AppliedAt.Format("2006-01-02 15:04:05"))
		}

		fmt.Println("\n🕒 Pending migrations:")
		for _, name := range pending {
			fmt.Println("   -", name)
		}
	},
}
