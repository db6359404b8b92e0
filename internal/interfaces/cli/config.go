package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// NewConfigCommand creates the config command
func NewConfigCommand(container *CLIContainer) *cobra.Command {
	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage configuration settings for the marketplace mirror.

Settings merge from three sources: DIFYMIRROR_* environment variables win
over the config file, which wins over built-in defaults.`,
	}

	configCmd.AddCommand(NewConfigShowCommand(container))
	configCmd.AddCommand(NewConfigSetCommand(container))
	configCmd.AddCommand(NewConfigPathCommand(container))

	return configCmd
}

// NewConfigShowCommand creates the show subcommand
func NewConfigShowCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := container.ConfigRepo.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			printConfig(config)
			return nil
		},
	}
}

func printConfig(config *ports.Configuration) {
	fmt.Println("Current Configuration:")
	fmt.Printf("Base URL: %s\n", config.BaseURL)
	fmt.Printf("Output Directory: %s\n", config.OutputDir)
	fmt.Printf("Categories: %s\n", strings.Join(config.Categories, ", "))
	fmt.Printf("Page Size: %d\n", config.PageSize)
	fmt.Printf("Download Concurrency: %d\n", config.DownloadConcurrency)
	fmt.Printf("Jitter: %d-%ds\n", config.JitterMinSeconds, config.JitterMaxSeconds)
	fmt.Printf("Request Timeout: %ds\n", config.RequestTimeout)
	fmt.Printf("Debug: %t\n", config.Debug)
}

// NewConfigSetCommand creates the set subcommand
func NewConfigSetCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value and persist it to the config file.

Keys: base-url, output-dir, categories (comma-separated), page-size,
concurrency, jitter-min, jitter-max, timeout, debug.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := container.ConfigRepo.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			updated := *config
			if err := applyConfigValue(&updated, args[0], args[1]); err != nil {
				return err
			}

			if err := container.ConfigRepo.Save(&updated); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

// applyConfigValue sets one configuration field addressed by its CLI key
func applyConfigValue(config *ports.Configuration, key, value string) error {
	switch key {
	case "base-url":
		config.BaseURL = value
	case "output-dir":
		config.OutputDir = value
	case "categories":
		parts := strings.Split(value, ",")
		for i, part := range parts {
			parts[i] = strings.TrimSpace(part)
		}
		config.Categories = parts
	case "page-size":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("page-size must be an integer: %w", err)
		}
		config.PageSize = size
	case "concurrency":
		limit, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("concurrency must be an integer: %w", err)
		}
		config.DownloadConcurrency = limit
	case "jitter-min":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("jitter-min must be an integer: %w", err)
		}
		config.JitterMinSeconds = seconds
	case "jitter-max":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("jitter-max must be an integer: %w", err)
		}
		config.JitterMaxSeconds = seconds
	case "timeout":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout must be an integer: %w", err)
		}
		config.RequestTimeout = seconds
	case "debug":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("debug must be true or false: %w", err)
		}
		config.Debug = enabled
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// NewConfigPathCommand creates the path subcommand
func NewConfigPathCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := container.ConfigRepo.GetConfigPath()
			fmt.Printf("Configuration file path: %s\n", path)
			return nil
		},
	}
}
