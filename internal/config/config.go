package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// #region config
// Config is the process configuration, read from the environment.
type Config struct {
	PipelineEnabled bool
	ArtifactDir     string
	SchemaPath      string // empty uses the built-in schema

	Source        string // "csv" | "postgres"
	SourceCSV     string
	PostgresDSN   string
	PostgresTable string
	TestSize      float64
	SplitSeed     uint64

	ExpectedScore    float64
	ChangedThreshold float64
	TrainSeed        uint64
	TrainEpochs      int

	ModelKey        string
	ModelStore      string // "file" | "s3"
	ModelStoreDir   string
	Bucket          string
	AWSRegion       string
	S3Endpoint      string
	AWSAccessKey    string
	AWSSecretKey    string
	S3PathStyle     bool
	StoreTimeout    time.Duration
	StoreMaxRetries uint64

	RegistryPath string
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr  string
	GRPCAddr  string
	LogLevel  string
	LogFormat string
}

// #endregion config

// #region load
// Load reads the configuration from environment variables with defaults.
func Load() Config {
	return Config{
		PipelineEnabled: getEnvAsBool("PIPELINE_ENABLED", true),
		ArtifactDir:     getEnv("ARTIFACT_DIR", "artifact"),
		SchemaPath:      getEnv("SCHEMA_PATH", ""),

		Source:        getEnv("DATA_SOURCE", "csv"),
		SourceCSV:     getEnv("SOURCE_CSV", "data/churn.csv"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		PostgresTable: getEnv("POSTGRES_TABLE", "customers"),
		TestSize:      getEnvAsFloat("TEST_SIZE", 0.25),
		SplitSeed:     uint64(getEnvAsInt("SPLIT_SEED", 42)),

		ExpectedScore:    getEnvAsFloat("EXPECTED_SCORE", 0.6),
		ChangedThreshold: getEnvAsFloat("MODEL_CHANGED_THRESHOLD", 0),
		TrainSeed:        uint64(getEnvAsInt("TRAIN_SEED", 42)),
		TrainEpochs:      getEnvAsInt("TRAIN_EPOCHS", 200),

		ModelKey:        getEnv("MODEL_KEY", "model.gob"),
		ModelStore:      getEnv("MODEL_STORE", "file"),
		ModelStoreDir:   getEnv("MODEL_STORE_DIR", "model_store"),
		Bucket:          getEnv("MODEL_BUCKET", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		AWSAccessKey:    getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3PathStyle:     getEnvAsBool("S3_PATH_STYLE", false),
		StoreTimeout:    time.Duration(getEnvAsInt("STORE_TIMEOUT_SECONDS", 10)) * time.Second,
		StoreMaxRetries: uint64(getEnvAsInt("STORE_MAX_RETRIES", 3)),

		RegistryPath: getEnv("REGISTRY_DB", "registry.db"),
		KafkaBrokers: getEnvAsStringSlice("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "model-events"),

		HTTPAddr:  getEnv("HTTP_ADDR", ":5000"),
		GRPCAddr:  getEnv("GRPC_ADDR", ":50051"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// #endregion load

// #region validate
// Validate checks ranges and required combinations.
func (c Config) Validate() error {
	var errs []error
	if c.TestSize <= 0 || c.TestSize >= 1 {
		errs = append(errs, fmt.Errorf("TEST_SIZE %.3f outside (0,1)", c.TestSize))
	}
	if c.ExpectedScore < 0 || c.ExpectedScore > 1 {
		errs = append(errs, fmt.Errorf("EXPECTED_SCORE %.3f outside [0,1]", c.ExpectedScore))
	}
	if c.ChangedThreshold < 0 {
		errs = append(errs, fmt.Errorf("MODEL_CHANGED_THRESHOLD %.3f is negative", c.ChangedThreshold))
	}
	if c.TrainEpochs <= 0 {
		errs = append(errs, fmt.Errorf("TRAIN_EPOCHS %d must be positive", c.TrainEpochs))
	}
	if c.ModelKey == "" {
		errs = append(errs, errors.New("MODEL_KEY is required"))
	}
	switch c.Source {
	case "csv":
		if c.SourceCSV == "" {
			errs = append(errs, errors.New("SOURCE_CSV is required for the csv source"))
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATA_SOURCE %q", c.Source))
	}
	switch c.ModelStore {
	case "file":
		if c.ModelStoreDir == "" {
			errs = append(errs, errors.New("MODEL_STORE_DIR is required for the file store"))
		}
	case "s3":
		if c.Bucket == "" {
			errs = append(errs, errors.New("MODEL_BUCKET is required for the s3 store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MODEL_STORE %q", c.ModelStore))
	}
	return errors.Join(errs...)
}

// #endregion validate

// #region helpers
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsStringSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// #endregion helpers
