package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danifischer/raidbot/internal/database"
	"github.com/danifischer/raidbot/internal/model"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Storage      StorageConfig
	Gateway      GatewayConfig
	Reactions    model.ReactionSymbols
	Conversation ConversationConfig
	Raids        RaidsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MetricsEnabled bool
	AllowedGuilds  []string // empty allows every guild
}

// StorageConfig selects and configures the snapshot backend
type StorageConfig struct {
	database.Config

	Codec         string
	SaveTries     int
	RetryInterval time.Duration
	PingInterval  time.Duration
}

// GatewayConfig holds the chat platform relay connection settings
type GatewayConfig struct {
	Enabled        bool
	URL            string
	Token          string
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
	RequestTimeout time.Duration
}

// ConversationConfig holds sign-up conversation settings
type ConversationConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// RaidsConfig holds raid defaults and the external files describing them
type RaidsConfig struct {
	DefaultAccountType string
	TemplatesPath      string
	AccountsPath       string

	// Templates is filled from TemplatesPath by Load
	Templates map[string][]model.CreateRaidRoleRequest
}

// templatesFile is the layout of RAID_TEMPLATES_FILE
type templatesFile struct {
	Templates map[string][]model.CreateRaidRoleRequest `yaml:"templates"`
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from a .env file (ENV_FILE, default ".env") are applied first if
// the file exists; real environment variables take precedence.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	defaults := model.DefaultReactionSymbols()
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
			AllowedGuilds:  getSliceEnv("ALLOWED_GUILDS", nil),
		},
		Storage: StorageConfig{
			Config: database.Config{
				Driver:           database.Driver(getEnv("STORAGE_DRIVER", string(database.DriverFile))),
				Path:             getEnv("STORAGE_PATH", "./data/raids.json"),
				SQLitePath:       getEnv("SQLITE_PATH", "./data/raidbot.db"),
				PostgresDSN:      getEnv("POSTGRES_DSN", ""),
				S3Bucket:         getEnv("S3_BUCKET", ""),
				S3Key:            getEnv("S3_KEY", "raidbot/raids.snapshot"),
				S3Region:         getEnv("S3_REGION", "us-east-1"),
				S3Endpoint:       getEnv("S3_ENDPOINT", ""),
				S3PathStyle:      getBoolEnv("S3_PATH_STYLE", false),
				SurrealHost:      getEnv("DB_HOST", "localhost"),
				SurrealPort:      getEnv("DB_PORT", "8000"),
				SurrealUser:      getEnv("DB_USER", "root"),
				SurrealPassword:  getEnv("DB_PASSWORD", "root"),
				SurrealNamespace: getEnv("DB_NAMESPACE", "raidbot"),
				SurrealDatabase:  getEnv("DB_DATABASE", "main"),
			},
			Codec:         getEnv("SNAPSHOT_CODEC", "json"),
			SaveTries:     getIntEnv("SNAPSHOT_SAVE_TRIES", 3),
			RetryInterval: getDurationEnv("SNAPSHOT_RETRY_INTERVAL", 100*time.Millisecond),
			PingInterval:  getDurationEnv("STORAGE_PING_INTERVAL", 30*time.Second),
		},
		Gateway: GatewayConfig{
			Enabled:        getBoolEnv("GATEWAY_ENABLED", false),
			URL:            getEnv("GATEWAY_URL", "ws://localhost:9000/gateway"),
			Token:          getEnv("GATEWAY_TOKEN", ""),
			ReconnectMin:   getDurationEnv("GATEWAY_RECONNECT_MIN", time.Second),
			ReconnectMax:   getDurationEnv("GATEWAY_RECONNECT_MAX", time.Minute),
			RequestTimeout: getDurationEnv("GATEWAY_REQUEST_TIMEOUT", 10*time.Second),
		},
		Reactions: model.ReactionSymbols{
			SignOn:  getEnv("REACTION_SIGN_ON", defaults.SignOn),
			Unsure:  getEnv("REACTION_UNSURE", defaults.Unsure),
			Backup:  getEnv("REACTION_BACKUP", defaults.Backup),
			Flex:    getEnv("REACTION_FLEX", defaults.Flex),
			SignOff: getEnv("REACTION_SIGN_OFF", defaults.SignOff),
		},
		Conversation: ConversationConfig{
			TTL:           getDurationEnv("CONVERSATION_TTL", 15*time.Minute),
			SweepInterval: getDurationEnv("CONVERSATION_SWEEP_INTERVAL", time.Minute),
		},
		Raids: RaidsConfig{
			DefaultAccountType: getEnv("RAID_DEFAULT_ACCOUNT_TYPE", "gw2"),
			TemplatesPath:      getEnv("RAID_TEMPLATES_FILE", ""),
			AccountsPath:       getEnv("ACCOUNTS_FILE", "./data/accounts.yaml"),
		},
	}

	templates, err := LoadTemplates(cfg.Raids.TemplatesPath)
	if err != nil {
		return nil, err
	}
	cfg.Raids.Templates = templates

	return cfg, nil
}

// LoadTemplates reads named role templates from a YAML file. An empty path
// yields no templates.
func LoadTemplates(path string) (map[string][]model.CreateRaidRoleRequest, error) {
	if path == "" {
		return map[string][]model.CreateRaidRoleRequest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raid templates: %w", err)
	}
	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse raid templates %s: %w", path, err)
	}
	if f.Templates == nil {
		f.Templates = map[string][]model.CreateRaidRoleRequest{}
	}
	return f.Templates, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got '%s'", c.Server.LogLevel))
	}

	for _, g := range c.Server.AllowedGuilds {
		if _, err := strconv.ParseUint(strings.TrimSpace(g), 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("ALLOWED_GUILDS must list numeric guild IDs, got '%s'", g))
		}
	}

	// Storage validation
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, err)
	}

	// Gateway validation
	if c.Gateway.Enabled {
		if c.Gateway.URL == "" {
			errs = append(errs, errors.New("GATEWAY_URL is required when GATEWAY_ENABLED is true"))
		} else if !strings.HasPrefix(c.Gateway.URL, "ws://") && !strings.HasPrefix(c.Gateway.URL, "wss://") {
			errs = append(errs, fmt.Errorf("GATEWAY_URL must be a ws:// or wss:// URL, got '%s'", c.Gateway.URL))
		}
		if c.IsProduction() && c.Gateway.Token == "" {
			errs = append(errs, errors.New("GATEWAY_TOKEN is required in production"))
		}
	}
	if c.Gateway.ReconnectMin <= 0 || c.Gateway.ReconnectMax < c.Gateway.ReconnectMin {
		errs = append(errs, errors.New("GATEWAY_RECONNECT_MIN must be positive and not above GATEWAY_RECONNECT_MAX"))
	}

	// Reaction validation
	symbols := c.Reactions.All()
	for i, s := range symbols {
		if s == "" {
			errs = append(errs, errors.New("reaction symbols must not be empty"))
			break
		}
		if slices.Contains(symbols[:i], s) {
			errs = append(errs, fmt.Errorf("reaction symbol %q is used twice", s))
		}
	}

	// Conversation validation
	if c.Conversation.TTL <= 0 {
		errs = append(errs, errors.New("CONVERSATION_TTL must be positive"))
	}
	if c.Conversation.SweepInterval <= 0 {
		errs = append(errs, errors.New("CONVERSATION_SWEEP_INTERVAL must be positive"))
	}

	// Raid validation
	if c.Raids.DefaultAccountType == "" {
		errs = append(errs, errors.New("RAID_DEFAULT_ACCOUNT_TYPE is required"))
	}
	for name, roles := range c.Raids.Templates {
		if len(roles) == 0 {
			errs = append(errs, fmt.Errorf("raid template %q has no roles", name))
		}
		for _, role := range roles {
			if role.Name == "" || role.Capacity < 1 {
				errs = append(errs, fmt.Errorf("raid template %q has a role without name or capacity", name))
				break
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the settings of the selected storage driver
func (s StorageConfig) Validate() error {
	var missing []string
	switch s.Driver {
	case database.DriverFile:
		if s.Path == "" {
			missing = append(missing, "STORAGE_PATH")
		}
	case database.DriverSQLite:
		if s.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case database.DriverPostgres:
		if s.PostgresDSN == "" {
			missing = append(missing, "POSTGRES_DSN")
		}
	case database.DriverS3:
		if s.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
	case database.DriverSurreal:
		if s.SurrealHost == "" {
			missing = append(missing, "DB_HOST")
		}
		if s.SurrealNamespace == "" {
			missing = append(missing, "DB_NAMESPACE")
		}
		if s.SurrealDatabase == "" {
			missing = append(missing, "DB_DATABASE")
		}
	case database.DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of %v, got '%s'", database.Drivers(), s.Driver)
	}
	if len(missing) > 0 {
		return fmt.Errorf("storage driver %s: missing required fields: %s", s.Driver, strings.Join(missing, ", "))
	}

	if _, err := database.NewCodec(s.Codec); err != nil {
		return fmt.Errorf("SNAPSHOT_CODEC: %w", err)
	}
	if s.SaveTries < 1 {
		return errors.New("SNAPSHOT_SAVE_TRIES must be at least 1")
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
