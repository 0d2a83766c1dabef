// Package config provides configuration loading for the Bloom maintenance commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingCredentials is returned when the Supabase endpoint or access key is absent.
	ErrMissingCredentials = errors.New("missing supabase credentials")
	// ErrMissingSupabaseURL is returned when neither URL variable is set.
	ErrMissingSupabaseURL = fmt.Errorf("%w: VITE_SUPABASE_URL or SUPABASE_URL is required", ErrMissingCredentials)
	// ErrMissingSupabaseKey is returned when neither key variable is set.
	ErrMissingSupabaseKey = fmt.Errorf("%w: SUPABASE_SERVICE_ROLE_KEY or VITE_SUPABASE_ANON_KEY is required", ErrMissingCredentials)
)

// DefaultAdminEmail is the built-in admin account restored by fixadmin.
const DefaultAdminEmail = "admin@bloom.com"

// Credential variables in precedence order.
var (
	urlVars = []string{"VITE_SUPABASE_URL", "SUPABASE_URL"}
	keyVars = []string{"SUPABASE_SERVICE_ROLE_KEY", "VITE_SUPABASE_ANON_KEY"}

	keyRoles = map[string]KeyRole{
		"SUPABASE_SERVICE_ROLE_KEY": KeyRoleService,
		"VITE_SUPABASE_ANON_KEY":    KeyRoleAnon,
	}
)

// DefaultEnvFiles are the dotenv files consulted by Load, first match wins per variable.
var DefaultEnvFiles = []string{".env", "../.env"}

// KeyRole identifies which Supabase key was picked up.
type KeyRole string

// Key roles, in order of preference.
const (
	KeyRoleNone    KeyRole = ""
	KeyRoleService KeyRole = "service_role"
	KeyRoleAnon    KeyRole = "anon"
)

// Config holds configuration values loaded from dotenv files and environment variables.
type Config struct {
	SupabaseURL     string        `mapstructure:"-"`
	SupabaseKey     string        `mapstructure:"-"`
	SupabaseDBURL   string        `mapstructure:"SUPABASE_DB_URL"`
	SupabaseTimeout time.Duration `mapstructure:"SUPABASE_TIMEOUT"`
	Env             string        `mapstructure:"APP_ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	UsersFile       string        `mapstructure:"USERS_FILE"`
	AdminEmail      string        `mapstructure:"ADMIN_EMAIL"`

	// KeyRole records whether SupabaseKey came from the service-role or anon variable.
	KeyRole KeyRole `mapstructure:"-"`
}

// Load reads the given dotenv files (missing ones are skipped) and then the
// process environment into a Config. Variables already present in the process
// environment are never overridden by a dotenv file.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetDefault("SUPABASE_DB_URL", "")
	v.SetDefault("SUPABASE_TIMEOUT", "30s")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("USERS_FILE", "data/users.json")
	v.SetDefault("ADMIN_EMAIL", DefaultAdminEmail)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.SupabaseURL, _ = firstSet(v, urlVars)
	var keyVar string
	cfg.SupabaseKey, keyVar = firstSet(v, keyVars)
	cfg.KeyRole = keyRoles[keyVar]

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// firstSet returns the first variable in names with a non-blank value, and its name.
func firstSet(v *viper.Viper, names []string) (value, name string) {
	for _, n := range names {
		if val := strings.TrimSpace(v.GetString(n)); val != "" {
			return val, n
		}
	}
	return "", ""
}

// Validate checks values every command depends on. Supabase credentials are
// checked separately by ValidateSupabase since only the seeder needs them.
func (c *Config) Validate() error {
	if c.SupabaseTimeout <= 0 {
		return errors.New("SUPABASE_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.UsersFile) == "" {
		return errors.New("USERS_FILE must not be empty")
	}
	return nil
}

// ValidateSupabase reports which required Supabase credential is missing, if any.
func (c *Config) ValidateSupabase() error {
	if c.SupabaseURL == "" {
		return ErrMissingSupabaseURL
	}
	if c.SupabaseKey == "" {
		return ErrMissingSupabaseKey
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}
