package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/application/services"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	SyncService        *services.SyncService
	CollectionsService *services.CollectionsService
	ConfigRepo         *config.CompositeConfigRepository
	Config             *ports.Configuration
	Logger             ports.LoggingGateway
	MainContainer      interface{} // Set to *di.Container, avoiding circular import
}

// NewRootCommand creates the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "difymirror",
		Short: "Dify Marketplace mirror - listings, collections and plugin packages",
		Long: `difymirror walks the Dify Marketplace, saves the plugin listing of every
category as JSON, and downloads each plugin's latest .difypkg package into a
local mirror tree.

Runs are idempotent: packages already on disk are never downloaded again, so
repeated invocations only fetch what changed since the last run.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigurationOverrides(cmd, container); err != nil {
				return fmt.Errorf("failed to apply configuration overrides: %w", err)
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $HOME/.config/difymirror/config.json)")
	rootCmd.PersistentFlags().String("base-url", "", "Marketplace base URL (default https://marketplace.dify.ai)")
	rootCmd.PersistentFlags().String("output-dir", "", "Directory the mirror tree is written to (default current directory)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Maximum simultaneous package downloads (default 5)")
	rootCmd.PersistentFlags().Int("timeout", 0, "Per-request timeout in seconds (default 10)")

	rootCmd.AddCommand(NewSyncCommand(container))
	rootCmd.AddCommand(NewCollectionsCommand(container))
	rootCmd.AddCommand(NewConfigCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// applyConfigurationOverrides applies configuration overrides from command line flags
func applyConfigurationOverrides(cmd *cobra.Command, container *CLIContainer) error {
	mainContainer, ok := container.MainContainer.(interface {
		ApplyConfigPathOverride(string) error
		ApplyBaseURLOverride(string) error
		ApplyOutputDirOverride(string) error
		ApplyConcurrencyOverride(int) error
		ApplyTimeoutOverride(int) error
		ApplyDebugOverride() error
	})
	if !ok {
		// Silently continue if container doesn't support overrides
		return nil
	}

	// The config path override must run first so the other overrides land on
	// top of the right file.
	if cmd.Flags().Changed("config") {
		path, _ := cmd.Flags().GetString("config")
		if err := mainContainer.ApplyConfigPathOverride(path); err != nil {
			return fmt.Errorf("failed to override config path: %w", err)
		}
	}

	if cmd.Flags().Changed("base-url") {
		baseURL, _ := cmd.Flags().GetString("base-url")
		if err := mainContainer.ApplyBaseURLOverride(baseURL); err != nil {
			return fmt.Errorf("failed to override base URL: %w", err)
		}
	}

	if cmd.Flags().Changed("output-dir") {
		outputDir, _ := cmd.Flags().GetString("output-dir")
		if err := mainContainer.ApplyOutputDirOverride(outputDir); err != nil {
			return fmt.Errorf("failed to override output directory: %w", err)
		}
	}

	if cmd.Flags().Changed("concurrency") {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if err := mainContainer.ApplyConcurrencyOverride(concurrency); err != nil {
			return fmt.Errorf("failed to override concurrency: %w", err)
		}
	}

	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetInt("timeout")
		if err := mainContainer.ApplyTimeoutOverride(timeout); err != nil {
			return fmt.Errorf("failed to override timeout: %w", err)
		}
	}

	if debugFlag, _ := cmd.Flags().GetBool("debug"); debugFlag {
		if err := mainContainer.ApplyDebugOverride(); err != nil {
			return fmt.Errorf("failed to enable debug logging: %w", err)
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context, container *CLIContainer) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
