package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// CompositeConfigRepository implements the ConfigurationRepository interface
type CompositeConfigRepository struct {
	sources    []ConfigSource
	cache      *ConfigCache
	configPath string
}

// ConfigSource defines the interface for configuration sources
type ConfigSource interface {
	Load() (*ports.Configuration, error)
	Priority() int
	Name() string
}

// ConfigCache provides caching for configuration
type ConfigCache struct {
	config    *ports.Configuration
	timestamp time.Time
	ttl       time.Duration
}

// NewCompositeConfigRepository creates a new configuration repository
func NewCompositeConfigRepository() *CompositeConfigRepository {
	// Check for config file from environment variable first
	configPath := os.Getenv("DIFYMIRROR_CONFIG_FILE")
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	return NewCompositeConfigRepositoryAt(configPath)
}

// NewCompositeConfigRepositoryAt creates a configuration repository pinned to
// an explicit config file path, bypassing the environment and default lookup
func NewCompositeConfigRepositoryAt(configPath string) *CompositeConfigRepository {
	repo := &CompositeConfigRepository{
		sources: make([]ConfigSource, 0),
		cache: &ConfigCache{
			ttl: 5 * time.Minute,
		},
		configPath: configPath,
	}

	// Add default sources in priority order
	repo.AddSource(NewEnvironmentConfigSource())
	repo.AddSource(NewFileConfigSource(repo.configPath))

	return repo
}

// AddSource adds a configuration source
func (r *CompositeConfigRepository) AddSource(source ConfigSource) {
	r.sources = append(r.sources, source)
}

// Load retrieves the current configuration
func (r *CompositeConfigRepository) Load() (*ports.Configuration, error) {
	// Check cache first
	if r.cache.config != nil && time.Since(r.cache.timestamp) < r.cache.ttl {
		return r.cache.config, nil
	}

	// Start with default configuration
	config := r.LoadDefault()

	// Sort sources by priority, lowest priority first (lower number = higher
	// priority), so the highest-priority source is applied last and wins
	sortedSources := make([]ConfigSource, len(r.sources))
	copy(sortedSources, r.sources)

	for i := 0; i < len(sortedSources)-1; i++ {
		for j := 0; j < len(sortedSources)-i-1; j++ {
			if sortedSources[j].Priority() < sortedSources[j+1].Priority() {
				sortedSources[j], sortedSources[j+1] = sortedSources[j+1], sortedSources[j]
			}
		}
	}

	for _, source := range sortedSources {
		sourceConfig, err := source.Load()
		if err != nil {
			// A broken source falls back to the remaining ones
			continue
		}

		if sourceConfig != nil {
			config = r.mergeConfigurations(config, sourceConfig)
		}
	}

	// Validate final configuration
	if err := r.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Cache the result
	r.cache.config = config
	r.cache.timestamp = time.Now()

	return config, nil
}

// Save persists the configuration
func (r *CompositeConfigRepository) Save(config *ports.Configuration) error {
	if err := r.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(r.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	// Write to file
	if err := os.WriteFile(r.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	// Invalidate cache
	r.cache.config = nil

	return nil
}

// LoadDefault returns the default configuration. The defaults reproduce the
// original scraper's behavior: marketplace base URL, all categories, five
// concurrent downloads, 1-3s jitter, 10s request timeout.
func (r *CompositeConfigRepository) LoadDefault() *ports.Configuration {
	return &ports.Configuration{
		BaseURL:             "https://marketplace.dify.ai",
		OutputDir:           ".",
		Categories:          []string{"agent-strategy", "extension", "model", "tool", "bundle"},
		PageSize:            100,
		DownloadConcurrency: 5,
		JitterMinSeconds:    1,
		JitterMaxSeconds:    3,
		RequestTimeout:      10,
		Debug:               false,
	}
}

// Validate validates the configuration
func (r *CompositeConfigRepository) Validate(config *ports.Configuration) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if config.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", config.BaseURL)
	}

	if config.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}

	if config.PageSize <= 0 {
		return fmt.Errorf("page size must be greater than 0")
	}

	if config.DownloadConcurrency <= 0 {
		return fmt.Errorf("download concurrency must be greater than 0")
	}

	if config.JitterMinSeconds < 0 {
		return fmt.Errorf("jitter minimum cannot be negative")
	}

	if config.JitterMaxSeconds < config.JitterMinSeconds {
		return fmt.Errorf("jitter maximum must be at least the jitter minimum")
	}

	if config.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	for _, category := range config.Categories {
		if _, err := domain.NewCategory(category); err != nil {
			return fmt.Errorf("invalid category in configuration: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the path to the configuration file
func (r *CompositeConfigRepository) GetConfigPath() string {
	return r.configPath
}

// mergeConfigurations merges two configurations (source overwrites target)
func (r *CompositeConfigRepository) mergeConfigurations(target, source *ports.Configuration) *ports.Configuration {
	if source == nil {
		return target
	}
	if target == nil {
		return source
	}

	result := *target

	// String fields - override if not empty
	if source.BaseURL != "" {
		result.BaseURL = source.BaseURL
	}
	if source.OutputDir != "" {
		result.OutputDir = source.OutputDir
	}

	// Slice fields - override if not empty
	if len(source.Categories) > 0 {
		result.Categories = source.Categories
	}

	// Integer fields - override if not zero
	if source.PageSize != 0 {
		result.PageSize = source.PageSize
	}
	if source.DownloadConcurrency != 0 {
		result.DownloadConcurrency = source.DownloadConcurrency
	}
	if source.JitterMinSeconds != 0 {
		result.JitterMinSeconds = source.JitterMinSeconds
	}
	if source.JitterMaxSeconds != 0 {
		result.JitterMaxSeconds = source.JitterMaxSeconds
	}
	if source.RequestTimeout != 0 {
		result.RequestTimeout = source.RequestTimeout
	}

	// Debug only switches on; sources that omit it keep the current value
	if source.Debug {
		result.Debug = true
	}

	return &result
}

// FileConfigSource loads configuration from a JSON file
type FileConfigSource struct {
	filePath string
}

// NewFileConfigSource creates a new file configuration source
func NewFileConfigSource(filePath string) *FileConfigSource {
	return &FileConfigSource{
		filePath: filePath,
	}
}

// Load loads configuration from file
func (f *FileConfigSource) Load() (*ports.Configuration, error) {
	if _, err := os.Stat(f.filePath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist, return nil config
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ports.Configuration
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Priority returns the priority of this source (lower number = higher priority)
func (f *FileConfigSource) Priority() int {
	return 100 // Low priority
}

// Name returns the name of this source
func (f *FileConfigSource) Name() string {
	return "file"
}

// EnvironmentConfigSource loads configuration from environment variables
type EnvironmentConfigSource struct{}

// NewEnvironmentConfigSource creates a new environment configuration source
func NewEnvironmentConfigSource() *EnvironmentConfigSource {
	return &EnvironmentConfigSource{}
}

// Load loads configuration from environment variables
func (e *EnvironmentConfigSource) Load() (*ports.Configuration, error) {
	config := &ports.Configuration{}

	if val := os.Getenv("DIFYMIRROR_BASE_URL"); val != "" {
		config.BaseURL = val
	}
	if val := os.Getenv("DIFYMIRROR_OUTPUT_DIR"); val != "" {
		config.OutputDir = val
	}
	if val := os.Getenv("DIFYMIRROR_CATEGORIES"); val != "" {
		config.Categories = strings.Split(val, ",")
		for i, category := range config.Categories {
			config.Categories[i] = strings.TrimSpace(category)
		}
	}
	if val := os.Getenv("DIFYMIRROR_PAGE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			config.PageSize = size
		}
	}
	if val := os.Getenv("DIFYMIRROR_CONCURRENCY"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
			config.DownloadConcurrency = limit
		}
	}
	if val := os.Getenv("DIFYMIRROR_JITTER_MIN"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil && seconds >= 0 {
			config.JitterMinSeconds = seconds
		}
	}
	if val := os.Getenv("DIFYMIRROR_JITTER_MAX"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil && seconds >= 0 {
			config.JitterMaxSeconds = seconds
		}
	}
	if val := os.Getenv("DIFYMIRROR_TIMEOUT"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			config.RequestTimeout = seconds
		}
	}
	if val := os.Getenv("DIFYMIRROR_DEBUG"); val == "true" {
		config.Debug = true
	}

	return config, nil
}

// Priority returns the priority of this source (lower number = higher priority)
func (e *EnvironmentConfigSource) Priority() int {
	return 10 // High priority
}

// Name returns the name of this source
func (e *EnvironmentConfigSource) Name() string {
	return "environment"
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory
		return ".difymirror-config.json"
	}

	return filepath.Join(homeDir, ".config", "difymirror", "config.json")
}

// Interface guard
var _ ports.ConfigurationRepository = (*CompositeConfigRepository)(nil)
