package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Client   ClientConfig
	Workflow WorkflowConfig
	Emulator EmulatorConfig
	Logging  LoggingConfig
}

type AppConfig struct {
	Name        string
	Environment string
}

// ClientConfig configures the remote document service client.
type ClientConfig struct {
	// BaseURL is the root of the remote service, e.g. http://localhost:8000
	BaseURL string
	// Timeout is the per-request timeout in seconds
	Timeout int
	// Identifier and Secret are the credentials presented to the login endpoint
	Identifier string
	Secret     string
}

// WorkflowConfig configures how the verification run is driven from the CLI.
type WorkflowConfig struct {
	// FilePath is the document to submit; empty means a generated text document
	FilePath string
	// Filename overrides the declared filename of the submission
	Filename string
	// ContentType is the declared media type of the submission
	ContentType string
	// Preflight pings /health before starting the run
	Preflight bool
	// Cleanup deletes the submitted document after a successful run
	Cleanup bool
}

// EmulatorConfig configures the local document service emulator.
type EmulatorConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
	// JWTSecret signs session tokens issued by the emulator
	JWTSecret string
	// TokenTTLMinutes is the lifetime of issued session tokens
	TokenTTLMinutes int
	// FlatTokenResponse makes the login endpoint answer with a flat
	// {access_token} body instead of the nested {user, token} shape
	FlatTokenResponse bool
	// StoragePath is the local directory holding uploaded file bytes
	StoragePath string
	// StorageBucket is the label prefixed to storage locators
	StorageBucket string
	// DatabasePath is the sqlite registry location; empty means in-memory
	DatabasePath    string
	MaxUploadSizeMB int64
	// RegistrationDelaySeconds keeps a fresh document out of listings for
	// this long, mimicking asynchronous index propagation
	RegistrationDelaySeconds int
	// ProgressionSchedule is the cron expression advancing document statuses
	ProgressionSchedule string
	// SeedIdentifier/SeedSecret pre-register a user at startup; empty disables
	SeedIdentifier string
	SeedSecret     string
	RateLimit      RateLimitConfig
	CORS           CORSConfig
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// CORSConfig holds CORS configuration for the emulator
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// TimeoutDuration returns the client request timeout as a duration
func (c *ClientConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (e *EmulatorConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(e.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (e *EmulatorConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(e.WriteTimeout) * time.Second
}

// TokenTTLDuration returns the session token lifetime as duration
func (e *EmulatorConfig) TokenTTLDuration() time.Duration {
	return time.Duration(e.TokenTTLMinutes) * time.Minute
}

// RegistrationDelayDuration returns the listing hold-back window as duration
func (e *EmulatorConfig) RegistrationDelayDuration() time.Duration {
	return time.Duration(e.RegistrationDelaySeconds) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Credentials may come from bare environment variables as well
	if cfg.Client.Identifier == "" {
		cfg.Client.Identifier = v.GetString("RAGCHECK_IDENTIFIER")
	}
	if cfg.Client.Secret == "" {
		cfg.Client.Secret = v.GetString("RAGCHECK_SECRET")
	}
	if s := v.GetString("RAGCHECK_BASE_URL"); s != "" {
		cfg.Client.BaseURL = s
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "ragcheck")
	v.SetDefault("app.environment", "development")

	// Client
	v.SetDefault("client.baseurl", "http://localhost:8000")
	v.SetDefault("client.timeout", 30)
	v.SetDefault("client.identifier", "")
	v.SetDefault("client.secret", "")

	// Workflow
	v.SetDefault("workflow.filepath", "")
	v.SetDefault("workflow.filename", "test-document.txt")
	v.SetDefault("workflow.contenttype", "text/plain")
	v.SetDefault("workflow.preflight", true)
	v.SetDefault("workflow.cleanup", false)

	// Emulator
	v.SetDefault("emulator.port", 8000)
	v.SetDefault("emulator.readtimeout", 15)
	v.SetDefault("emulator.writetimeout", 30)
	v.SetDefault("emulator.jwtsecret", "dev-only-secret")
	v.SetDefault("emulator.tokenttlminutes", 60)
	v.SetDefault("emulator.flattokenresponse", false)
	v.SetDefault("emulator.storagepath", "./data/uploads")
	v.SetDefault("emulator.storagebucket", "ragcheck-dev")
	v.SetDefault("emulator.databasepath", "")
	v.SetDefault("emulator.maxuploadsizemb", 50)
	v.SetDefault("emulator.registrationdelayseconds", 0)
	v.SetDefault("emulator.progressionschedule", "@every 10s")
	v.SetDefault("emulator.seedidentifier", "test@example.com")
	v.SetDefault("emulator.seedsecret", "testpassword123")
	v.SetDefault("emulator.ratelimit.enabled", true)
	v.SetDefault("emulator.ratelimit.requestsperminute", 300)
	v.SetDefault("emulator.cors.allowedorigins", []string{"*"})
	v.SetDefault("emulator.cors.allowcredentials", false)
	v.SetDefault("emulator.cors.maxage", 300)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
