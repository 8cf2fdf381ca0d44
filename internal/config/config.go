package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the scheme and host of the remote game server API.
	APIBaseURL string `json:"api_base_url"`

	// RequestDelayMs is the minimum spacing between outbound requests, in milliseconds.
	// Negative disables pacing entirely; 0 means "not set" and keeps the lower layer's value.
	RequestDelayMs int `json:"request_delay_ms,omitempty"`

	// BackoffFactor is the base retry backoff in seconds.
	// Retry n sleeps BackoffFactor * 2^(n-1), capped at two minutes.
	BackoffFactor float64 `json:"backoff_factor,omitempty"`

	// MaxAttempts is the total number of attempts per request, first try included.
	MaxAttempts int `json:"max_attempts,omitempty"`

	// StoreName is the file name of the cache store inside the output directory.
	StoreName string `json:"store_name,omitempty"`

	// FileExt is the extension of mirrored game files, without the dot.
	FileExt string `json:"file_ext,omitempty"`

	// OutputDir is where game files and the cache store are written when no --out is given.
	OutputDir string `json:"output_dir,omitempty"`

	// DefaultLimit caps the number of games found per player. Negative means unbounded.
	DefaultLimit int `json:"default_limit,omitempty"`

	// LogLevel is the minimum log level: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is console or json.
	LogFormat string `json:"log_format,omitempty"`

	// UserAgent is sent on every request.
	UserAgent string `json:"user_agent,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "https://online-go.com",
		RequestDelayMs: 500,
		BackoffFactor:  0.5,
		MaxAttempts:    5,
		StoreName:      "kifu.db",
		FileExt:        "sgf",
		OutputDir:      "games",
		DefaultLimit:   -1,
		LogLevel:       "info",
		LogFormat:      "console",
		UserAgent:      "kifu",
	}
}

// RequestDelay returns the pacing interval as a duration (0 when disabled).
func (c *Config) RequestDelay() time.Duration {
	if c.RequestDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// BackoffBase returns BackoffFactor as a duration.
func (c *Config) BackoffBase() time.Duration {
	if c.BackoffFactor <= 0 {
		return 0
	}
	return time.Duration(c.BackoffFactor * float64(time.Second))
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.kifu.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithOutput loads configuration from the global (~/.kifu) directory and
// from the output directory being mirrored into.
// Output-directory config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithOutput(globalDir, outputDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	local := &Config{}
	if outputDir != "" {
		local, err = loadFileRaw(filepath.Join(outputDir, "config.json"))
		if err != nil {
			return nil, err
		}
	}

	// Apply defaults, then global, then output dir
	return Merge(Merge(DefaultConfig(), global), local), nil
}

// ApplyEnv overrides config values from KIFU_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("KIFU_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("KIFU_API_BASE_URL")); v != "" {
		cfg.APIBaseURL = v
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.APIBaseURL = pickString(overlay.APIBaseURL, base.APIBaseURL)
	result.StoreName = pickString(overlay.StoreName, base.StoreName)
	result.FileExt = strings.TrimPrefix(pickString(overlay.FileExt, base.FileExt), ".")
	result.OutputDir = pickString(overlay.OutputDir, base.OutputDir)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)
	result.UserAgent = pickString(overlay.UserAgent, base.UserAgent)

	result.RequestDelayMs = overlay.RequestDelayMs
	if result.RequestDelayMs == 0 {
		result.RequestDelayMs = base.RequestDelayMs
	}

	result.BackoffFactor = overlay.BackoffFactor
	if result.BackoffFactor == 0 {
		result.BackoffFactor = base.BackoffFactor
	}

	result.MaxAttempts = overlay.MaxAttempts
	if result.MaxAttempts == 0 {
		result.MaxAttempts = base.MaxAttempts
	}

	result.DefaultLimit = overlay.DefaultLimit
	if result.DefaultLimit == 0 {
		result.DefaultLimit = base.DefaultLimit
	}

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
