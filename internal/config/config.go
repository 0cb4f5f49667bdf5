package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Inference  InferenceConfig
	Classifier ClassifierConfig
	Storage    StorageConfig
	DB         DBConfig
	SQLite     SQLiteConfig
	Mongo      MongoConfig
	S3         S3Config
	CORS       CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Environment   string        `mapstructure:"environment"`
	MaxUploadSize int64         `mapstructure:"max_upload_mb"`
}

// LogConfig holds logging settings for the standard library logger, which
// has no severity levels. Level "debug" adds file:line source locations to
// every line and any other value leaves them off. Format "plain" drops the
// timestamp prefix.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig holds settings for a single inference provider.
type ProviderConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Endpoint    string `mapstructure:"endpoint"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// Timeout returns the HTTP timeout for the provider, defaulting to 120s.
func (p *ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSecs) * time.Second
}

// InferenceConfig holds the ordered model candidate list and the providers
// able to serve them. A candidate is "provider/model" or a bare model name
// whose provider is inferred from its prefix.
type InferenceConfig struct {
	ModelCandidates []string       `mapstructure:"model_candidates"`
	Gemini          ProviderConfig `mapstructure:"gemini"`
	Claude          ProviderConfig `mapstructure:"claude"`
	OpenAI          ProviderConfig `mapstructure:"openai"`
}

// ClassifierConfig controls form classification.
type ClassifierConfig struct {
	// Mode is "prompt" (dedicated classification call) or "keywords"
	// (generic extraction followed by keyword scoring).
	Mode         string         `mapstructure:"mode"`
	KeywordsFile string         `mapstructure:"keywords_file"`
	MinMatches   map[string]int `mapstructure:"min_matches"`
}

// StorageConfig selects the record persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, sqlite, mongo, none
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// SQLiteConfig holds the local database location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// S3Config holds settings for the source image bucket. An empty bucket
// disables image upload.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the FORMSCAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FORMSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 20)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Inference defaults
	v.SetDefault("inference.model_candidates", "gemini/gemini-2.0-flash,gemini/gemini-1.5-flash,claude/claude-sonnet-4-20250514")
	v.SetDefault("inference.gemini.api_key", "")
	v.SetDefault("inference.gemini.endpoint", "")
	v.SetDefault("inference.gemini.timeout_secs", 120)
	v.SetDefault("inference.claude.api_key", "")
	v.SetDefault("inference.claude.endpoint", "")
	v.SetDefault("inference.claude.timeout_secs", 120)
	v.SetDefault("inference.openai.api_key", "")
	v.SetDefault("inference.openai.endpoint", "")
	v.SetDefault("inference.openai.timeout_secs", 120)

	// Classifier defaults
	v.SetDefault("classifier.mode", "prompt")
	v.SetDefault("classifier.keywords_file", "")
	v.SetDefault("classifier.min_matches", "")

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "formscan")
	v.SetDefault("db.password", "formscan_secret")
	v.SetDefault("db.name", "formscan_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// SQLite defaults
	v.SetDefault("sqlite.path", "formscan.db")

	// Mongo defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "formscan")
	v.SetDefault("mongo.collection", "scan_records")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.key_prefix", "scans")
	v.SetDefault("s3.presign_expiry", 3600)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:8081")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "FORMSCAN_SERVER_PORT",
		"server.read_timeout":           "FORMSCAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "FORMSCAN_SERVER_WRITE_TIMEOUT",
		"server.environment":            "FORMSCAN_SERVER_ENVIRONMENT",
		"server.max_upload_mb":          "FORMSCAN_SERVER_MAX_UPLOAD_MB",
		"log.level":                     "FORMSCAN_LOG_LEVEL",
		"log.format":                    "FORMSCAN_LOG_FORMAT",
		"inference.model_candidates":    "FORMSCAN_INFERENCE_MODEL_CANDIDATES",
		"inference.gemini.api_key":      "FORMSCAN_INFERENCE_GEMINI_API_KEY",
		"inference.gemini.endpoint":     "FORMSCAN_INFERENCE_GEMINI_ENDPOINT",
		"inference.gemini.timeout_secs": "FORMSCAN_INFERENCE_GEMINI_TIMEOUT_SECS",
		"inference.claude.api_key":      "FORMSCAN_INFERENCE_CLAUDE_API_KEY",
		"inference.claude.endpoint":     "FORMSCAN_INFERENCE_CLAUDE_ENDPOINT",
		"inference.claude.timeout_secs": "FORMSCAN_INFERENCE_CLAUDE_TIMEOUT_SECS",
		"inference.openai.api_key":      "FORMSCAN_INFERENCE_OPENAI_API_KEY",
		"inference.openai.endpoint":     "FORMSCAN_INFERENCE_OPENAI_ENDPOINT",
		"inference.openai.timeout_secs": "FORMSCAN_INFERENCE_OPENAI_TIMEOUT_SECS",
		"classifier.mode":               "FORMSCAN_CLASSIFIER_MODE",
		"classifier.keywords_file":      "FORMSCAN_CLASSIFIER_KEYWORDS_FILE",
		"classifier.min_matches":        "FORMSCAN_CLASSIFIER_MIN_MATCHES",
		"storage.driver":                "FORMSCAN_STORAGE_DRIVER",
		"db.host":                       "FORMSCAN_DB_HOST",
		"db.port":                       "FORMSCAN_DB_PORT",
		"db.user":                       "FORMSCAN_DB_USER",
		"db.password":                   "FORMSCAN_DB_PASSWORD",
		"db.name":                       "FORMSCAN_DB_NAME",
		"db.sslmode":                    "FORMSCAN_DB_SSLMODE",
		"db.max_open":                   "FORMSCAN_DB_MAX_OPEN",
		"db.max_idle":                   "FORMSCAN_DB_MAX_IDLE",
		"sqlite.path":                   "FORMSCAN_SQLITE_PATH",
		"mongo.uri":                     "FORMSCAN_MONGO_URI",
		"mongo.database":                "FORMSCAN_MONGO_DATABASE",
		"mongo.collection":              "FORMSCAN_MONGO_COLLECTION",
		"s3.region":                     "FORMSCAN_S3_REGION",
		"s3.bucket":                     "FORMSCAN_S3_BUCKET",
		"s3.endpoint":                   "FORMSCAN_S3_ENDPOINT",
		"s3.access_key":                 "FORMSCAN_S3_ACCESS_KEY",
		"s3.secret_key":                 "FORMSCAN_S3_SECRET_KEY",
		"s3.key_prefix":                 "FORMSCAN_S3_KEY_PREFIX",
		"s3.presign_expiry":             "FORMSCAN_S3_PRESIGN_EXPIRY",
		"cors.allowed_origins":          "FORMSCAN_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FORMSCAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FORMSCAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:          serverPort,
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		Environment:   v.GetString("server.environment"),
		MaxUploadSize: v.GetInt64("server.max_upload_mb"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	cfg.Inference = InferenceConfig{
		ModelCandidates: splitList(v.GetString("inference.model_candidates")),
		Gemini: ProviderConfig{
			APIKey:      v.GetString("inference.gemini.api_key"),
			Endpoint:    v.GetString("inference.gemini.endpoint"),
			TimeoutSecs: v.GetInt("inference.gemini.timeout_secs"),
		},
		Claude: ProviderConfig{
			APIKey:      v.GetString("inference.claude.api_key"),
			Endpoint:    v.GetString("inference.claude.endpoint"),
			TimeoutSecs: v.GetInt("inference.claude.timeout_secs"),
		},
		OpenAI: ProviderConfig{
			APIKey:      v.GetString("inference.openai.api_key"),
			Endpoint:    v.GetString("inference.openai.endpoint"),
			TimeoutSecs: v.GetInt("inference.openai.timeout_secs"),
		},
	}
	if len(cfg.Inference.ModelCandidates) == 0 {
		return nil, fmt.Errorf("inference.model_candidates must list at least one model")
	}

	minMatches, err := parseMinMatches(v.GetString("classifier.min_matches"))
	if err != nil {
		return nil, err
	}
	cfg.Classifier = ClassifierConfig{
		Mode:         strings.ToLower(v.GetString("classifier.mode")),
		KeywordsFile: v.GetString("classifier.keywords_file"),
		MinMatches:   minMatches,
	}
	if cfg.Classifier.Mode != "prompt" && cfg.Classifier.Mode != "keywords" {
		return nil, fmt.Errorf("classifier.mode must be prompt or keywords, got %q", cfg.Classifier.Mode)
	}

	cfg.Storage = StorageConfig{
		Driver: strings.ToLower(v.GetString("storage.driver")),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.SQLite = SQLiteConfig{
		Path: v.GetString("sqlite.path"),
	}
	cfg.Mongo = MongoConfig{
		URI:        v.GetString("mongo.uri"),
		Database:   v.GetString("mongo.database"),
		Collection: v.GetString("mongo.collection"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		KeyPrefix:     v.GetString("s3.key_prefix"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}

	return cfg, nil
}

// splitList parses a comma-separated string, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseMinMatches parses "EQUIPMENT_RECORD=1,HAND_RECEIPT=2" threshold overrides.
func parseMinMatches(raw string) (map[string]int, error) {
	out := map[string]int{}
	for _, pair := range splitList(raw) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("classifier.min_matches: malformed entry %q", pair)
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%d", &n); err != nil || n < 0 {
			return nil, fmt.Errorf("classifier.min_matches: invalid threshold in %q", pair)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = n
	}
	return out, nil
}
