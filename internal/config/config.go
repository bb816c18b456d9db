// config/config.go
//
// Package config loads the flat tunable surface chunkcast exposes (see
// the configuration table in the specification): chunk sizing, silence
// detection thresholds, retry policy, and per-request limits. A default
// config is generated on first run and merged with CHUNKCAST_-prefixed
// environment variables and CLI flags bound via viper.BindPFlags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RetryPolicy is the pure backoff configuration consumed by the Dispatcher.
type RetryPolicy struct {
	MaxAttempts    int
	InitialDelayMs int
	Multiplier     float64
	MaxDelayMs     int
}

// Delay returns the backoff wait before the attempt following k failed
// attempts (k is 0-based), capped at MaxDelayMs.
func (p RetryPolicy) Delay(k int) time.Duration {
	d := float64(p.InitialDelayMs) * pow(p.Multiplier, k)
	if d > float64(p.MaxDelayMs) {
		d = float64(p.MaxDelayMs)
	}
	return time.Duration(d) * time.Millisecond
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// Settings is the full tunable surface, grouped by the component each
// tunable feeds.
type Settings struct {
	Debug bool // bound to the debug key and --debug flag; no code reads it (the log level comes from Log.Level)

	Planner struct {
		ChunkLengthSeconds   float64 // target logical chunk size, seconds
		SilenceWindowSeconds float64 // probe window half-width around each ideal cut
		RMSThreshold         float64 // frame is "silent" when RMS < this
		MinSilenceDurationMs int     // minimum silence run length
		OverlapSeconds       float64 // per-side extension into neighbor
	}

	Extract struct {
		MaxChunkBytes int64 // per-payload ceiling
	}

	Dispatch struct {
		PerRequestTimeoutMs int // single-attempt timeout
		InterChunkDelayMs   int // quiescent pause between chunks
		Retry               RetryPolicy
	}

	Service struct {
		BaseURL string // transcription service base URL
		Model   string // model name, e.g. whisper-large-v3
	}

	Notify struct {
		Enabled bool
		URLs    []string // shoutrrr service URLs
	}

	Archive struct {
		Enabled bool
		Target  string // ftp:// or sftp:// destination for the merged transcript
	}

	Metrics struct {
		Enabled bool
		Addr    string // e.g. ":9120"
	}

	Log struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// Load initializes viper, reads (or creates) the config file, and
// unmarshals it into a fresh Context.
func Load() (*Context, error) {
	ctx := &Context{Settings: &Settings{}}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(ctx.Settings, viper.DecodeHook(nil)); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := Validate(ctx.Settings); err != nil {
		return nil, err
	}

	return ctx, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("CHUNKCAST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// getDefaultConfigPaths returns a list of default config search paths
// for the current OS, checked in order by viper.
func getDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	switch {
	case os.Getenv("OS") == "Windows_NT":
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Local", "chunkcast"),
		}, nil
	default:
		return []string{
			filepath.Join(homeDir, ".config", "chunkcast"),
			"/etc/chunkcast",
			".",
		}, nil
	}
}

// createDefaultConfig writes a default config file to the first default
// path and re-reads it into viper.
func createDefaultConfig() error {
	configPaths, err := getDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

const defaultConfigYAML = `# chunkcast configuration

debug: false

planner:
  chunk_length_seconds: 600      # target logical chunk size
  silence_window_seconds: 30     # probe window around each ideal cut
  rms_threshold: 0.01            # frame is "silent" when RMS < this
  min_silence_duration_ms: 300   # minimum silence run length
  overlap_seconds: 10            # per-side extension into neighbor

extract:
  max_chunk_bytes: 26214400      # 25 MiB

dispatch:
  per_request_timeout_ms: 120000
  inter_chunk_delay_ms: 500
  retry:
    max_attempts: 5
    initial_delay_ms: 1000
    multiplier: 2
    max_delay_ms: 60000

service:
  base_url: https://api.groq.com/openai/v1/audio/transcriptions
  model: whisper-large-v3

notify:
  enabled: false
  urls: []

archive:
  enabled: false
  target: ""

metrics:
  enabled: false
  addr: ":9120"

log:
  level: info
  path: logs/chunkcast.log
  max_size_mb: 100
  max_backups: 3
  max_age_days: 28
`

// ConfigError marks an invalid configuration value (error taxonomy).
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate enforces the Planner invariants before any probing begins —
// the Planner itself never retries or recovers from a bad config.
func Validate(s *Settings) error {
	if s.Planner.ChunkLengthSeconds <= 0 {
		return &ConfigError{Field: "planner.chunk_length_seconds", Reason: "must be > 0"}
	}
	if s.Planner.OverlapSeconds < 0 {
		return &ConfigError{Field: "planner.overlap_seconds", Reason: "must be >= 0"}
	}
	if s.Planner.SilenceWindowSeconds <= 0 {
		return &ConfigError{Field: "planner.silence_window_seconds", Reason: "must be > 0"}
	}
	if s.Dispatch.Retry.MaxAttempts < 0 {
		return &ConfigError{Field: "dispatch.retry.max_attempts", Reason: "must be >= 0"}
	}
	if s.Dispatch.Retry.Multiplier < 1 {
		return &ConfigError{Field: "dispatch.retry.multiplier", Reason: "must be >= 1"}
	}
	return nil
}
