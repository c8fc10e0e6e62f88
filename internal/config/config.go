package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/logging"
	"github.com/dshills/sieve/internal/patterns"
	"github.com/dshills/sieve/internal/router"
	"github.com/dshills/sieve/internal/signals"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Valid values for Format and FailOn.
var (
	Formats = []string{"text", "json", "markdown", "sarif"}
	FailOns = []string{"none", "standard", "deep_dive"}
)

// Config represents the sieve configuration.
type Config struct {
	Format    string `json:"format"`
	FailOn    string `json:"failOn"`
	RulesFile string `json:"rulesFile,omitempty"`
	// Todos enables TODO-aware analysis.
	Todos bool `json:"todos"`

	Analyzer analyzer.Thresholds `json:"analyzer"`
	Signals  signals.Config      `json:"signals"`
	Router   router.Config       `json:"router"`
	Chunker  chunker.Config      `json:"chunker"`
	Scan     ScanConfig          `json:"scan"`
	Dedup    DedupConfig         `json:"dedup"`
	Cache    CacheConfig         `json:"cache"`
	Privacy  PrivacyConfig       `json:"privacy"`
	Log      logging.Config      `json:"log"`
}

// ScanConfig controls which files a scan visits.
type ScanConfig struct {
	// Workers bounds parallel analysis; 0 means one per CPU.
	Workers      int      `json:"workers"`
	Include      []string `json:"include"`
	Exclude      []string `json:"exclude"`
	MaxFileBytes int      `json:"maxFileBytes"`
}

// DedupConfig controls the chunk dedup index.
type DedupConfig struct {
	Shards int `json:"shards"`
	// DB is the SQLite file the index persists to; empty keeps it in memory.
	DB string `json:"db,omitempty"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Format:   "text",
		FailOn:   "none",
		Analyzer: analyzer.DefaultThresholds(),
		Signals:  signals.DefaultConfig(),
		Router:   router.DefaultConfig(),
		Chunker:  chunker.DefaultConfig(),
		Scan: ScanConfig{
			Exclude:      []string{"vendor/**", "**/node_modules/**", "**/target/**", "**/dist/**"},
			MaxFileBytes: 1 << 20,
		},
		Dedup: DedupConfig{Shards: 64},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 7 * 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*", "**/*.pem"},
		},
		Log: logging.DefaultConfig(),
	}
}

// RouterConfig returns the router settings with the privacy section applied.
func (c Config) RouterConfig() router.Config {
	rc := c.Router
	rc.RedactSecrets = c.Privacy.RedactSecrets
	rc.RedactPaths = slices.Clone(c.Privacy.RedactPaths)
	return rc
}

// Workers resolves Scan.Workers, mapping 0 to the CPU count.
func (c Config) Workers() int {
	if c.Scan.Workers > 0 {
		return c.Scan.Workers
	}
	return runtime.NumCPU()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w: format %q (valid: %s)", ErrInvalidConfig, c.Format, strings.Join(Formats, ", "))
	}
	if !slices.Contains(FailOns, c.FailOn) {
		return fmt.Errorf("%w: failOn %q (valid: %s)", ErrInvalidConfig, c.FailOn, strings.Join(FailOns, ", "))
	}
	switch {
	case c.Scan.Workers < 0:
		return fmt.Errorf("%w: scan.workers must be >= 0, got %d", ErrInvalidConfig, c.Scan.Workers)
	case c.Scan.MaxFileBytes < 1:
		return fmt.Errorf("%w: scan.maxFileBytes must be >= 1, got %d", ErrInvalidConfig, c.Scan.MaxFileBytes)
	case c.Dedup.Shards < 1:
		return fmt.Errorf("%w: dedup.shards must be >= 1, got %d", ErrInvalidConfig, c.Dedup.Shards)
	case c.Cache.TTLSeconds < 0:
		return fmt.Errorf("%w: cache.ttlSeconds must be >= 0, got %d", ErrInvalidConfig, c.Cache.TTLSeconds)
	}
	for _, err := range []error{
		c.Analyzer.Validate(),
		c.Signals.Validate(),
		c.Router.Validate(),
		c.Chunker.Validate(),
		c.Log.Validate(),
	} {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory for sieve.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sieve"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "sieve"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "sieve"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "sieve"), nil
	default:
		return filepath.Join(home, ".config", "sieve"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile decodes the config file on top of base. A missing file
// returns base unchanged.
func LoadFile(base Config) (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := mergeFile(&base, data); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return base, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides,
// then validates it. The overrides map comes from CLI flags (only set
// flags should be present).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile(Default())
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile decodes data onto dst. Keys absent from the file keep the
// value already in dst, so explicit false and zero values are honored.
func mergeFile(dst *Config, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// envKeys maps environment variables to SetField keys.
var envKeys = []struct{ env, key string }{
	{"SIEVE_FORMAT", "format"},
	{"SIEVE_FAIL_ON", "failOn"},
	{"SIEVE_RULES_FILE", "rulesFile"},
	{"SIEVE_TODOS", "todos"},
	{"SIEVE_WORKERS", "scan.workers"},
	{"SIEVE_MAX_FILE_BYTES", "scan.maxFileBytes"},
	{"SIEVE_ROUTING", "router.enabled"},
	{"SIEVE_REDACT_SECRETS", "privacy.redactSecrets"},
	{"SIEVE_CACHE", "cache.enabled"},
	{"SIEVE_CACHE_DIR", "cache.dir"},
	{"SIEVE_DEDUP_DB", "dedup.db"},
	{"SIEVE_LOG_LEVEL", "log.level"},
	{"SIEVE_LOG_FORMAT", "log.format"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

// overrideKeys maps CLI flag names to SetField keys.
var overrideKeys = map[string]string{
	"format":       "format",
	"failOn":       "failOn",
	"rulesFile":    "rulesFile",
	"todos":        "todos",
	"workers":      "scan.workers",
	"maxFileBytes": "scan.maxFileBytes",
	"include":      "scan.include",
	"exclude":      "scan.exclude",
	"noRouting":    "router.disabled",
	"noCache":      "cache.disabled",
	"cacheDir":     "cache.dir",
	"db":           "dedup.db",
	"logLevel":     "log.level",
	"logFormat":    "log.format",
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	if overrides == nil {
		return nil
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v := overrides[name]
		if v == "" {
			continue
		}
		key, ok := overrideKeys[name]
		if !ok {
			continue // handled by the CLI, not stored in config
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}

// Keys lists every key SetField accepts, for help text.
func Keys() []string {
	return []string{
		"format", "failOn", "rulesFile", "todos",
		"scan.workers", "scan.maxFileBytes", "scan.include", "scan.exclude",
		"analyzer.minCodeLines", "analyzer.smallFileLines", "analyzer.lowErrorRatio",
		"analyzer.unwrapDensity", "analyzer.minSecretConfidence", "analyzer.maxComplexity",
		"analyzer.maxNesting", "analyzer.maxMarkers", "analyzer.highPriorityTodos",
		"analyzer.skipTestFiles", "analyzer.skipNonCode",
		"router.enabled", "router.includeStaticContext", "router.stripCommentsForMinimal",
		"chunker.maxChunkLines", "chunker.minChunkLines", "chunker.maxChunksPerFile",
		"dedup.shards", "dedup.db",
		"cache.enabled", "cache.dir", "cache.ttlSeconds",
		"privacy.redactSecrets", "privacy.redactPaths",
		"log.level", "log.format",
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown
// or the value does not parse, leaving dst unchanged.
func SetField(dst *Config, key, value string) error {
	cfg := *dst
	var err error
	switch key {
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "rulesFile":
		cfg.RulesFile = value
	case "todos":
		cfg.Todos, err = parseBool(key, value)
	case "scan.workers":
		cfg.Scan.Workers, err = parseInt(key, value)
	case "scan.maxFileBytes":
		cfg.Scan.MaxFileBytes, err = parseInt(key, value)
	case "scan.include":
		cfg.Scan.Include = splitList(value)
	case "scan.exclude":
		cfg.Scan.Exclude = splitList(value)
	case "analyzer.minCodeLines":
		cfg.Analyzer.MinCodeLines, err = parseInt(key, value)
	case "analyzer.smallFileLines":
		cfg.Analyzer.SmallFileLines, err = parseInt(key, value)
	case "analyzer.lowErrorRatio":
		cfg.Analyzer.LowErrorRatio, err = parseFloat(key, value)
	case "analyzer.unwrapDensity":
		cfg.Analyzer.UnwrapDensity, err = parseFloat(key, value)
	case "analyzer.minSecretConfidence":
		cfg.Analyzer.MinSecretConfidence, err = patterns.ParseConfidence(value)
	case "analyzer.maxComplexity":
		cfg.Analyzer.MaxComplexity, err = parseInt(key, value)
	case "analyzer.maxNesting":
		cfg.Analyzer.MaxNesting, err = parseInt(key, value)
	case "analyzer.maxMarkers":
		cfg.Analyzer.MaxMarkers, err = parseInt(key, value)
	case "analyzer.highPriorityTodos":
		cfg.Analyzer.HighPriorityTodos, err = parseInt(key, value)
	case "analyzer.skipTestFiles":
		cfg.Analyzer.SkipTestFiles, err = parseBool(key, value)
	case "analyzer.skipNonCode":
		cfg.Analyzer.SkipNonCode, err = parseBool(key, value)
	case "router.enabled":
		cfg.Router.Enabled, err = parseBool(key, value)
	case "router.disabled":
		var off bool
		off, err = parseBool(key, value)
		cfg.Router.Enabled = !off
	case "router.includeStaticContext":
		cfg.Router.IncludeStaticContext, err = parseBool(key, value)
	case "router.stripCommentsForMinimal":
		cfg.Router.StripCommentsForMinimal, err = parseBool(key, value)
	case "chunker.maxChunkLines":
		cfg.Chunker.MaxChunkLines, err = parseInt(key, value)
	case "chunker.minChunkLines":
		cfg.Chunker.MinChunkLines, err = parseInt(key, value)
	case "chunker.maxChunksPerFile":
		cfg.Chunker.MaxChunksPerFile, err = parseInt(key, value)
	case "dedup.shards":
		cfg.Dedup.Shards, err = parseInt(key, value)
	case "dedup.db":
		cfg.Dedup.DB = value
	case "cache.enabled":
		cfg.Cache.Enabled, err = parseBool(key, value)
	case "cache.disabled":
		var off bool
		off, err = parseBool(key, value)
		cfg.Cache.Enabled = !off
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		cfg.Cache.TTLSeconds, err = parseInt(key, value)
	case "privacy.redactSecrets":
		cfg.Privacy.RedactSecrets, err = parseBool(key, value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return err
	}
	*dst = cfg
	return nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
