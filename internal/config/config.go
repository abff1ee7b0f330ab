package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	EnvHTTPAddr      = "MATCHLINK_HTTP_ADDR"
	EnvDatabaseDSN   = "MATCHLINK_DATABASE_DSN"
	EnvRedisAddr     = "MATCHLINK_REDIS_ADDR"
	EnvRedisPassword = "MATCHLINK_REDIS_PASSWORD"
	EnvRedisDB       = "MATCHLINK_REDIS_DB"
	EnvRPCEndpoint   = "MATCHLINK_RPC_URL"
	EnvRPCTimeout    = "MATCHLINK_RPC_TIMEOUT"
	EnvJWTSecret     = "MATCHLINK_JWT_SECRET"
	EnvContracts     = "MATCHLINK_CONTRACTS"
	EnvCorsOrigins   = "MATCHLINK_CORS_ORIGINS"
)

// Config holds the process settings read from the environment.
type Config struct {
	HTTPAddr      string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RPCEndpoint   string
	RPCTimeout    time.Duration
	JWTSecret     string
	CorsOrigins   []string
	ContractsFile string
	Contracts     Contracts
}

// Contracts lists the deployed package and the shared objects every
// transaction references.
type Contracts struct {
	PackageID           string `toml:"package_id"`
	UsageTrackerID      string `toml:"usage_tracker_id"`
	MatchChatRegistryID string `toml:"match_chat_registry_id"`
	ChatRegistryID      string `toml:"chat_registry_id"`
	AllowlistRegistryID string `toml:"allowlist_registry_id"`
	ClockID             string `toml:"clock_id"`
}

// Target returns the fully qualified entry point for module::function.
func (c Contracts) Target(module, function string) string {
	return c.PackageID + "::" + module + "::" + function
}

// TypeName qualifies a relative type name such as "chat::ChatRoom".
func (c Contracts) TypeName(relative string) string {
	return c.PackageID + "::" + relative
}

// Load reads .env (if present) and the process environment, then the
// contracts file it points to.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file loaded, using process environment")
	}

	cfg := Config{
		HTTPAddr:      envOr(EnvHTTPAddr, ":8080"),
		DatabaseDSN:   os.Getenv(EnvDatabaseDSN),
		RedisAddr:     envOr(EnvRedisAddr, "localhost:6379"),
		RedisPassword: os.Getenv(EnvRedisPassword),
		RPCEndpoint:   os.Getenv(EnvRPCEndpoint),
		RPCTimeout:    DefaultRPCTimeout,
		JWTSecret:     os.Getenv(EnvJWTSecret),
		ContractsFile: envOr(EnvContracts, "contracts.toml"),
	}

	if raw := os.Getenv(EnvRedisDB); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvRedisDB, raw, err)
		}
		cfg.RedisDB = db
	}
	if raw := os.Getenv(EnvRPCTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvRPCTimeout, raw, err)
		}
		cfg.RPCTimeout = d
	}
	if raw := os.Getenv(EnvCorsOrigins); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CorsOrigins = append(cfg.CorsOrigins, origin)
			}
		}
	}

	contracts, err := LoadContracts(cfg.ContractsFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Contracts = contracts

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings every binary needs.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return fmt.Errorf("%s is required", EnvDatabaseDSN)
	}
	if strings.TrimSpace(cfg.RPCEndpoint) == "" {
		return fmt.Errorf("%s is required", EnvRPCEndpoint)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return fmt.Errorf("%s is required", EnvJWTSecret)
	}
	if cfg.RPCTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvRPCTimeout)
	}
	return nil
}

// LoadContracts parses a TOML contracts file and fills the clock default.
func LoadContracts(path string) (Contracts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Contracts{}, fmt.Errorf("contracts load failed (%s): %w", path, err)
	}
	var c Contracts
	if err := toml.Unmarshal(data, &c); err != nil {
		return Contracts{}, fmt.Errorf("contracts parse failed (%s): %w", path, err)
	}
	if c.ClockID == "" {
		c.ClockID = ClockObjectID
	}
	if err := ValidateContracts(c); err != nil {
		return Contracts{}, err
	}
	return c, nil
}

func ValidateContracts(c Contracts) error {
	fields := []struct {
		name  string
		value string
	}{
		{"package_id", c.PackageID},
		{"usage_tracker_id", c.UsageTrackerID},
		{"match_chat_registry_id", c.MatchChatRegistryID},
		{"chat_registry_id", c.ChatRegistryID},
		{"allowlist_registry_id", c.AllowlistRegistryID},
		{"clock_id", c.ClockID},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return fmt.Errorf("contracts missing %s", f.name)
		}
		if !strings.HasPrefix(v, "0x") {
			return fmt.Errorf("contracts %s must be a 0x-prefixed id, got %q", f.name, v)
		}
	}
	return nil
}

// SessionSecret loads .env and returns the JWT signing secret. Tools that
// only mint tokens need nothing else.
func SessionSecret() (string, error) {
	_ = godotenv.Load()
	secret := strings.TrimSpace(os.Getenv(EnvJWTSecret))
	if secret == "" {
		return "", fmt.Errorf("%s is required", EnvJWTSecret)
	}
	return secret, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
