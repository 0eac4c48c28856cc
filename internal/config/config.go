package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// InputDir is the root directory holding one sub-directory per region.
	InputDir string
	// RegionDirPattern selects region sub-directories by substring match.
	RegionDirPattern string
	// OutputPath is where the national matrix CSV is written.
	OutputPath string
	// SchemaFile optionally points at a YAML per-region schema descriptor.
	SchemaFile string

	// Audit sinks. Each is disabled when its setting is empty.
	AuditPath       string   // JSONL file
	AuditDB         string   // sqlite database
	KafkaBrokers    []string // audit publisher
	KafkaAuditTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// FileWorkers bounds concurrent validate+reshape work within a region;
	// RegionWorkers bounds concurrent region consolidations.
	FileWorkers   int
	RegionWorkers int

	ConflictPolicy domain.ConflictPolicy
	// MinRows overrides the default schema's minimum data-row threshold.
	MinRows int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	fileWorkers, err := parsePositiveInt("FILE_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	regionWorkers, err := parsePositiveInt("REGION_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	minRows, err := parsePositiveInt("MIN_ROWS", 2)
	if err != nil {
		return nil, err
	}

	policy, err := domain.ParseConflictPolicy(envOrDefault("CONFLICT_POLICY", string(domain.LastWriteWins)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputDir:         envOrDefault("INPUT_DIR", "data/raw"),
		RegionDirPattern: envOrDefault("REGION_DIR_PATTERN", "groundWater"),
		OutputPath:       envOrDefault("OUTPUT_PATH", "data/national_matrix.csv"),
		SchemaFile:       os.Getenv("SCHEMA_FILE"),

		AuditPath:       envOrDefault("AUDIT_PATH", "data/audit.jsonl"),
		AuditDB:         os.Getenv("AUDIT_DB"),
		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAuditTopic: envOrDefault("KAFKA_AUDIT_TOPIC", "groundwater-audit"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FileWorkers:   fileWorkers,
		RegionWorkers: regionWorkers,

		ConflictPolicy: policy,
		MinRows:        minRows,
	}

	if cfg.InputDir == "" {
		return nil, errors.New("INPUT_DIR is required")
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAuditTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_AUDIT_TOPIC is empty")
	}

	return cfg, nil
}

// envOrDefault returns the environment value for key, or def when unset.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping blanks.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
