package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Config holds every tunable the profiling engine recognises. All values
// can be overridden from the config file, and the limits section can be
// changed at runtime through the settings API.
type Config struct {
	// Scheduling and reading limits.
	MaxThreads        int `mapstructure:"max_threads"`
	DefaultMaxRecords int `mapstructure:"default_max_records"`
	ChunkSize         int `mapstructure:"chunk_size"`

	// Engine caps.
	SampleSize      int `mapstructure:"sample_size"`
	DistinctCap     int `mapstructure:"distinct_cap"`
	PatternCap      int `mapstructure:"pattern_cap"`
	TopPatterns     int `mapstructure:"top_patterns"`
	PatternExamples int `mapstructure:"pattern_examples"`
	TopValues       int `mapstructure:"top_values"`

	// Type inference.
	TypeThreshold float64 `mapstructure:"type_threshold"`

	// Issue detection thresholds (percentages).
	HighNullThreshold     float64 `mapstructure:"high_null_threshold"`
	HighBlankThreshold    float64 `mapstructure:"high_blank_threshold"`
	LowDiversityThreshold float64 `mapstructure:"low_diversity_threshold"`

	// Quality score weights.
	CompletenessWeight float64 `mapstructure:"completeness_weight"`
	ValidityWeight     float64 `mapstructure:"validity_weight"`
	DiversityWeight    float64 `mapstructure:"diversity_weight"`

	// Service paths.
	TempDir    string `mapstructure:"temp_dir"`
	ListenAddr string `mapstructure:"listen_addr"`
}

var (
	AppConfig Config
	mu        sync.RWMutex
)

// Snapshot returns a copy of the current configuration. Request handlers
// read through it so a concurrent settings update never races them.
func Snapshot() Config {
	mu.RLock()
	defer mu.RUnlock()
	return AppConfig
}

func InitConfig() error {
	configName := "config"
	configType := "json"
	configPath := os.Getenv("DPROF_CONFIG_PATH")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, ".dprof")
	}

	viper.AddConfigPath(configPath)
	viper.SetConfigName(configName)
	viper.SetConfigType(configType)

	setDefaults(filepath.Join(configPath, "tmp"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create a default one
			if err := os.MkdirAll(configPath, 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			cfgFile := filepath.Join(configPath, fmt.Sprintf("%s.%s", configName, configType))
			if err := viper.WriteConfigAs(cfgFile); err != nil {
				return fmt.Errorf("failed to write default config file: %w", err)
			}
			// WriteConfigAs does not register the file with viper, so
			// later WriteConfig calls would have nowhere to persist to.
			viper.SetConfigFile(cfgFile)
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	mu.Lock()
	AppConfig = cfg
	mu.Unlock()

	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	return nil
}

func setDefaults(tempDir string) {
	defaults := Default(tempDir)
	viper.SetDefault("max_threads", defaults.MaxThreads)
	viper.SetDefault("default_max_records", defaults.DefaultMaxRecords)
	viper.SetDefault("chunk_size", defaults.ChunkSize)
	viper.SetDefault("sample_size", defaults.SampleSize)
	viper.SetDefault("distinct_cap", defaults.DistinctCap)
	viper.SetDefault("pattern_cap", defaults.PatternCap)
	viper.SetDefault("top_patterns", defaults.TopPatterns)
	viper.SetDefault("pattern_examples", defaults.PatternExamples)
	viper.SetDefault("top_values", defaults.TopValues)
	viper.SetDefault("type_threshold", defaults.TypeThreshold)
	viper.SetDefault("high_null_threshold", defaults.HighNullThreshold)
	viper.SetDefault("high_blank_threshold", defaults.HighBlankThreshold)
	viper.SetDefault("low_diversity_threshold", defaults.LowDiversityThreshold)
	viper.SetDefault("completeness_weight", defaults.CompletenessWeight)
	viper.SetDefault("validity_weight", defaults.ValidityWeight)
	viper.SetDefault("diversity_weight", defaults.DiversityWeight)
	viper.SetDefault("temp_dir", defaults.TempDir)
	viper.SetDefault("listen_addr", defaults.ListenAddr)
}

// Default returns the built-in configuration with tempDir as scratch space.
// Tests and embedded callers use it to avoid touching the user's config file.
func Default(tempDir string) Config {
	return Config{
		MaxThreads:            4,
		DefaultMaxRecords:     10000,
		ChunkSize:             1000,
		SampleSize:            1000,
		DistinctCap:           10000,
		PatternCap:            1000,
		TopPatterns:           10,
		PatternExamples:       5,
		TopValues:             10,
		TypeThreshold:         0.95,
		HighNullThreshold:     50,
		HighBlankThreshold:    20,
		LowDiversityThreshold: 5,
		CompletenessWeight:    0.4,
		ValidityWeight:        0.35,
		DiversityWeight:       0.25,
		TempDir:               tempDir,
		ListenAddr:            ":8080",
	}
}

// UpdateLimits applies runtime overrides for the adjustable limits and
// persists them to the config file when one exists.
func UpdateLimits(maxThreads, defaultMaxRecords, chunkSize int) error {
	mu.Lock()
	if maxThreads > 0 {
		viper.Set("max_threads", maxThreads)
		AppConfig.MaxThreads = maxThreads
	}
	if defaultMaxRecords > 0 {
		viper.Set("default_max_records", defaultMaxRecords)
		AppConfig.DefaultMaxRecords = defaultMaxRecords
	}
	if chunkSize > 0 {
		viper.Set("chunk_size", chunkSize)
		AppConfig.ChunkSize = chunkSize
	}
	mu.Unlock()
	if viper.ConfigFileUsed() == "" {
		return nil
	}
	return viper.WriteConfig()
}
