package ports

import (
	"time"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
)

// Configuration represents the application configuration
type Configuration struct {
	BaseURL             string   `json:"base_url"`
	OutputDir           string   `json:"output_dir"`
	Categories          []string `json:"categories"`
	PageSize            int      `json:"page_size"`
	DownloadConcurrency int      `json:"download_concurrency"`
	JitterMinSeconds    int      `json:"jitter_min_seconds"`
	JitterMaxSeconds    int      `json:"jitter_max_seconds"`
	RequestTimeout      int      `json:"request_timeout"`
	Debug               bool     `json:"debug"`
}

// Timeout returns the per-request timeout as a duration
func (c *Configuration) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// JitterBounds returns the jitter sleep interval as durations
func (c *Configuration) JitterBounds() (time.Duration, time.Duration) {
	return time.Duration(c.JitterMinSeconds) * time.Second,
		time.Duration(c.JitterMaxSeconds) * time.Second
}

// ParsedCategories returns the configured category set as domain values
func (c *Configuration) ParsedCategories() ([]domain.Category, error) {
	if len(c.Categories) == 0 {
		return domain.DefaultCategories(), nil
	}
	return domain.ParseCategories(c.Categories)
}

// ConfigurationRepository defines the interface for configuration persistence
type ConfigurationRepository interface {
	// Load retrieves the current configuration
	Load() (*Configuration, error)

	// Save persists the configuration
	Save(config *Configuration) error

	// LoadDefault returns the default configuration
	LoadDefault() *Configuration

	// Validate validates the configuration
	Validate(config *Configuration) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string
}
