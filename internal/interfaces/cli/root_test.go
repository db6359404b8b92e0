package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// overrideRecorder implements the container override interface and records
// what the flag layer forwarded
type overrideRecorder struct {
	calls       []string
	configPath  string
	baseURL     string
	outputDir   string
	concurrency int
	timeout     int
	debug       bool
	err         error
}

func (r *overrideRecorder) ApplyConfigPathOverride(path string) error {
	r.calls = append(r.calls, "config-path")
	r.configPath = path
	return r.err
}

func (r *overrideRecorder) ApplyBaseURLOverride(baseURL string) error {
	r.calls = append(r.calls, "base-url")
	r.baseURL = baseURL
	return r.err
}

func (r *overrideRecorder) ApplyOutputDirOverride(outputDir string) error {
	r.calls = append(r.calls, "output-dir")
	r.outputDir = outputDir
	return r.err
}

func (r *overrideRecorder) ApplyConcurrencyOverride(concurrency int) error {
	r.calls = append(r.calls, "concurrency")
	r.concurrency = concurrency
	return r.err
}

func (r *overrideRecorder) ApplyTimeoutOverride(seconds int) error {
	r.calls = append(r.calls, "timeout")
	r.timeout = seconds
	return r.err
}

func (r *overrideRecorder) ApplyDebugOverride() error {
	r.calls = append(r.calls, "debug")
	r.debug = true
	return r.err
}

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	rootCmd := NewRootCommand(&CLIContainer{})

	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "sync")
	assert.Contains(t, names, "collections")
	assert.Contains(t, names, "config")
}

func TestConfigCommandRegistersSubcommands(t *testing.T) {
	configCmd := NewConfigCommand(&CLIContainer{})

	names := make([]string, 0)
	for _, cmd := range configCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"show", "set", "path"}, names)
}

func TestRootCommandPersistentFlags(t *testing.T) {
	rootCmd := NewRootCommand(&CLIContainer{})

	for _, name := range []string{"debug", "config", "base-url", "output-dir", "concurrency", "timeout"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "persistent flag %q should be registered", name)
	}
}

func TestVersionOutput(t *testing.T) {
	rootCmd := NewRootCommand(&CLIContainer{})
	rootCmd.SetArgs([]string{"--version"})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	require.NoError(t, rootCmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "difymirror version "+Version)
	assert.Contains(t, output, "Build time: "+BuildTime)
}

func TestResolveCategories(t *testing.T) {
	tests := []struct {
		name        string
		flags       []string
		configured  []string
		expected    []string
		expectError bool
	}{
		{
			name:       "explicit flags win over configuration",
			flags:      []string{"tool", "model"},
			configured: []string{"bundle"},
			expected:   []string{"tool", "model"},
		},
		{
			name:       "empty flags fall back to configuration",
			flags:      nil,
			configured: []string{"extension", "bundle"},
			expected:   []string{"extension", "bundle"},
		},
		{
			name:        "invalid flag entry fails",
			flags:       []string{"tool", "bad/name"},
			configured:  []string{"tool"},
			expectError: true,
		},
		{
			name:        "invalid configured entry fails",
			flags:       nil,
			configured:  []string{"bad/name"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := &CLIContainer{
				Config: &ports.Configuration{Categories: tt.configured},
			}

			categories, err := resolveCategories(container, tt.flags)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			values := make([]string, 0, len(categories))
			for _, category := range categories {
				values = append(values, category.Value())
			}
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestApplyConfigurationOverridesForwardsFlags(t *testing.T) {
	recorder := &overrideRecorder{}
	container := &CLIContainer{MainContainer: recorder}

	rootCmd := NewRootCommand(container)
	require.NoError(t, rootCmd.ParseFlags([]string{
		"--config", "/tmp/override.json",
		"--base-url", "http://localhost:5280",
		"--output-dir", "/tmp/mirror",
		"--concurrency", "7",
		"--timeout", "30",
		"--debug",
	}))

	require.NoError(t, applyConfigurationOverrides(rootCmd, container))

	assert.Equal(t, "/tmp/override.json", recorder.configPath)
	assert.Equal(t, "http://localhost:5280", recorder.baseURL)
	assert.Equal(t, "/tmp/mirror", recorder.outputDir)
	assert.Equal(t, 7, recorder.concurrency)
	assert.Equal(t, 30, recorder.timeout)
	assert.True(t, recorder.debug)

	require.NotEmpty(t, recorder.calls)
	assert.Equal(t, "config-path", recorder.calls[0],
		"the config path override must land before the others")
}

func TestApplyConfigurationOverridesSkipsUnchangedFlags(t *testing.T) {
	recorder := &overrideRecorder{}
	container := &CLIContainer{MainContainer: recorder}

	rootCmd := NewRootCommand(container)
	require.NoError(t, rootCmd.ParseFlags(nil))

	require.NoError(t, applyConfigurationOverrides(rootCmd, container))
	assert.Empty(t, recorder.calls, "no flag set means no override call")
}

func TestApplyConfigurationOverridesWithoutSupport(t *testing.T) {
	container := &CLIContainer{MainContainer: nil}

	rootCmd := NewRootCommand(container)
	require.NoError(t, rootCmd.ParseFlags([]string{"--base-url", "http://localhost:5280"}))

	assert.NoError(t, applyConfigurationOverrides(rootCmd, container),
		"a container without override support is not an error")
}

func TestApplyConfigurationOverridesPropagatesFailure(t *testing.T) {
	recorder := &overrideRecorder{err: errors.New("invalid value")}
	container := &CLIContainer{MainContainer: recorder}

	rootCmd := NewRootCommand(container)
	require.NoError(t, rootCmd.ParseFlags([]string{"--concurrency", "0"}))

	assert.Error(t, applyConfigurationOverrides(rootCmd, container))
}
