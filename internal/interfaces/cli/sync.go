package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/application/services"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
)

// NewSyncCommand creates the sync command
func NewSyncCommand(container *CLIContainer) *cobra.Command {
	var categoryFlags []string
	var dashboard bool

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror marketplace categories: listings plus plugin packages",
		Long: `Sync retrieves the complete plugin listing of each category, saves it
under plugins/<category>.json, and downloads every listed plugin's latest
package into difypkg/<category>/.

Categories are mirrored in parallel; packages already on disk are skipped.
The command fails only when every category fails.

Examples:
  # Mirror all marketplace categories
  difymirror sync

  # Mirror a subset
  difymirror sync --categories tool,model

  # Watch progress in a live dashboard
  difymirror sync --dashboard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := resolveCategories(container, categoryFlags)
			if err != nil {
				return err
			}

			var reports []services.CategoryReport
			if dashboard {
				reports, err = RunDashboard(cmd.Context(), container.SyncService, categories)
				if err != nil {
					return err
				}
			} else {
				reports = container.SyncService.SyncAll(cmd.Context(), categories, nil)
			}

			printCategoryReports(reports)

			if services.AllFailed(reports) {
				return fmt.Errorf("all %d categories failed", len(reports))
			}
			return nil
		},
	}

	syncCmd.Flags().StringSliceVar(&categoryFlags, "categories", nil,
		"Comma-separated categories to mirror (default: the configured set)")
	syncCmd.Flags().BoolVar(&dashboard, "dashboard", false,
		"Show a live progress dashboard instead of plain logs")

	return syncCmd
}

// resolveCategories picks the explicit flag set when given, the configured
// set otherwise
func resolveCategories(container *CLIContainer, flags []string) ([]domain.Category, error) {
	if len(flags) > 0 {
		categories, err := domain.ParseCategories(flags)
		if err != nil {
			return nil, fmt.Errorf("invalid --categories value: %w", err)
		}
		return categories, nil
	}
	categories, err := container.Config.ParsedCategories()
	if err != nil {
		return nil, fmt.Errorf("invalid categories in configuration: %w", err)
	}
	return categories, nil
}

// printCategoryReports writes one summary line per mirrored category
func printCategoryReports(reports []services.CategoryReport) {
	for _, report := range reports {
		if report.Err != nil {
			fmt.Printf("❌ %s: %v\n", report.Category.Value(), report.Err)
			continue
		}
		fmt.Printf("✅ %s: %d plugins, %s\n",
			report.Category.Value(), report.Listing.Count(), report.Batch.String())
	}
}
