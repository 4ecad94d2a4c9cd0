package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDatabaseURL     = "https://portfolio-imgn-default-rtdb.asia-southeast1.firebasedatabase.app/"
	DefaultSessionTTLHours = 24 * 7

	envDatabaseURL     = "FIREBASE_DATABASE_URL"
	envCredentialsPath = "GOOGLE_APPLICATION_CREDENTIALS"
)

// DefaultCredentialsCandidates are probed in order when no explicit
// service account path is configured.
var DefaultCredentialsCandidates = []string{
	"/etc/secrets/FIREBASE_SERVICE_ACCOUNT",
	"serviceAccount.json",
}

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`

	// portfolio store
	StoreBackend          string   `toml:"store_backend"`
	DatabaseURL           string   `toml:"database_url"`
	CredentialsPath       string   `toml:"credentials_path"`
	CredentialsCandidates []string `toml:"credentials_candidates"`

	// postgres store backend
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`

	// admin login & sessions
	AdminCredentialsPath string `toml:"admin_credentials_path"`
	SessionStore         string `toml:"session_store"`
	RedisHost            string `toml:"redis_host"`
	RedisPort            string `toml:"redis_port"`
	SessionTTLHours      int    `toml:"session_ttl_hours"`
	CookieSecure         bool   `toml:"cookie_secure"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	DiagnosticsDisabled bool `toml:"diagnostics_disabled"`

	// category name -> "overwrite" | "append"
	WritePolicies map[string]string `toml:"write_policies"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file, picks the section for env, fills in defaults and
// applies the environment variable overrides.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.Environment = strings.ToLower(env)
	cfg.setDefaults()
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.StoreBackend == "" {
		c.StoreBackend = "firebase"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = DefaultDatabaseURL
	}
	if len(c.CredentialsCandidates) == 0 {
		c.CredentialsCandidates = append([]string(nil), DefaultCredentialsCandidates...)
	}
	if c.AdminCredentialsPath == "" {
		c.AdminCredentialsPath = defaultAdminCredentialsPath()
	}
	if c.SessionStore == "" {
		c.SessionStore = "redis"
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = DefaultSessionTTLHours
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if url := getenv(envDatabaseURL); url != "" {
		c.DatabaseURL = url
	}
	if credentialsPath := getenv(envCredentialsPath); credentialsPath != "" {
		c.CredentialsPath = credentialsPath
	}
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "firebase", "postgres", "memory":
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}

	switch c.SessionStore {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown session store: %s", c.SessionStore)
	}

	if c.StoreBackend == "postgres" && (c.PostgresHost == "" || c.PostgresDBName == "") {
		return errors.New("postgres store backend needs postgres_host and postgres_db_name")
	}

	for category, policy := range c.WritePolicies {
		switch strings.ToLower(policy) {
		case "overwrite", "append":
		default:
			return fmt.Errorf("write policy for category %s: unknown policy %q", category, policy)
		}
	}

	return nil
}

// the credential file lives next to the executable
func defaultAdminCredentialsPath() string {
	executable, err := os.Executable()
	if err != nil {
		return "admin_credentials.json"
	}
	return filepath.Join(filepath.Dir(executable), "admin_credentials.json")
}
