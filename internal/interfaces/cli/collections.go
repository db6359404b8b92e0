package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/application/services"
)

// NewCollectionsCommand creates the collections command
func NewCollectionsCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "Mirror the curated plugin collections",
		Long: `Collections retrieves the marketplace's curated collection index, saves it
as collections.json, then walks every collection: its member listing goes to
collections/<name>.json and each member's latest package is downloaded into
difypkg/<name>/.

A collection that cannot be retrieved is logged and skipped; the command
fails only when the collection index itself is unreachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := container.CollectionsService.MirrorAll(cmd.Context(), nil)
			if err != nil {
				return err
			}

			printCollectionReports(reports)
			return nil
		},
	}
}

// printCollectionReports writes one summary line per mirrored collection
func printCollectionReports(reports []services.CollectionReport) {
	for _, report := range reports {
		name := report.Name
		if name == "" {
			name = "(unnamed)"
		}
		if report.Err != nil {
			fmt.Printf("❌ %s: %v\n", name, report.Err)
			continue
		}
		fmt.Printf("✅ %s: %d plugins, %s\n", name, report.Count, report.Batch.String())
	}
}
