package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config struct {
	// Server
	Port        string `koanf:"port" validate:"required,numeric"`
	Env         string `koanf:"env" validate:"oneof=development production test"`
	FrontendURL string `koanf:"frontend_url"`

	// Storage
	StorageType          string        `koanf:"storage_type" validate:"oneof=memory redis postgres sqlite"`
	DatabaseURL          string        `koanf:"database_url" validate:"required_if=StorageType postgres"`
	RedisURL             string        `koanf:"redis_url" validate:"required_if=StorageType redis"`
	SQLitePath           string        `koanf:"sqlite_path" validate:"required_if=StorageType sqlite"`
	MigrationsDir        string        `koanf:"migrations_dir"`
	StorageMaxValueBytes int           `koanf:"storage_max_value_bytes" validate:"gte=0"`
	PersistDebounce      time.Duration `koanf:"persist_debounce" validate:"gte=0"`

	// JWT
	JWTSecret      string        `koanf:"jwt_secret" validate:"required,min=16"`
	AccessTokenTTL time.Duration `koanf:"access_token_ttl" validate:"gt=0"`

	// Gemini AI
	GeminiAPIKey         string `koanf:"gemini_api_key"`
	GeminiModel          string `koanf:"gemini_model" validate:"required"`
	GeminiConcurrentReqs int    `koanf:"gemini_concurrent_requests" validate:"gte=1,lte=64"`

	// Generation workers
	GenerationWorkers   int           `koanf:"generation_workers" validate:"gte=1,lte=64"`
	GenerationQueueSize int           `koanf:"generation_queue_size" validate:"gte=1"`
	GenerationTimeout   time.Duration `koanf:"generation_timeout" validate:"gt=0"`
	GenerateRatePerMin  int           `koanf:"generate_rate_per_minute" validate:"gte=1"`

	// Study features
	GapAnalysisWindow    int           `koanf:"gap_analysis_window" validate:"gte=1,lte=50"`
	ReminderPollInterval time.Duration `koanf:"reminder_poll_interval" validate:"gt=0"`
	ShutdownTimeout      time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":                       "8080",
		"env":                        "development",
		"frontend_url":               "http://localhost:5173",
		"storage_type":               "memory",
		"database_url":               "",
		"redis_url":                  "",
		"sqlite_path":                "studyhub.db",
		"migrations_dir":             "migrations",
		"storage_max_value_bytes":    5 << 20,
		"persist_debounce":           500 * time.Millisecond,
		"jwt_secret":                 "",
		"access_token_ttl":           time.Hour,
		"gemini_api_key":             "",
		"gemini_model":               "gemini-2.0-flash",
		"gemini_concurrent_requests": 5,
		"generation_workers":         4,
		"generation_queue_size":      64,
		"generation_timeout":         2 * time.Minute,
		"generate_rate_per_minute":   20,
		"gap_analysis_window":        5,
		"reminder_poll_interval":     time.Minute,
		"shutdown_timeout":           15 * time.Second,
	}
}

// Load layers configuration: defaults, then an optional YAML file given by
// --config, then environment variables (a .env file is read first if
// present), then command-line flags.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("studyhub", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.String("port", "", "HTTP listen port")
	fs.String("env", "", "development, production or test")
	fs.String("storage-type", "", "memory, redis, postgres or sqlite")
	fs.String("sqlite-path", "", "SQLite database file")
	fs.Int("generation-workers", 0, "generation worker count")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	k := koanf.New(".")
	keys := defaults()
	for key, val := range keys {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	if *configPath != "" {
		if err := k.Load(file.Provider(*configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", *configPath, err)
		}
	}

	envKey := func(s string) string {
		key := strings.ToLower(s)
		if _, ok := keys[key]; !ok {
			return ""
		}
		return key
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	flagKey := func(f *pflag.Flag) (string, interface{}) {
		if f.Name == "config" {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey), nil); err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every failing key.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
