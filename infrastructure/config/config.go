// Package config loads the service configuration from defaults, layered
// files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	domainconfig "orgmap/domain/config"
)

// Environment names a deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// Store adapters
const (
	AdapterMemory   = "memory"
	AdapterSheets   = "sheets"
	AdapterSupabase = "supabase"
	AdapterDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	Environment   Environment   `yaml:"environment" toml:"environment" json:"environment"`
	Server        Server        `yaml:"server" toml:"server" json:"server"`
	Logging       Logging       `yaml:"logging" toml:"logging" json:"logging"`
	Store         Store         `yaml:"store" toml:"store" json:"store"`
	Auth          Auth          `yaml:"auth" toml:"auth" json:"auth"`
	Events        Events        `yaml:"events" toml:"events" json:"events"`
	Observability Observability `yaml:"observability" toml:"observability" json:"observability"`
	Editor        Editor        `yaml:"editor" toml:"editor" json:"editor"`
	CORS          CORS          `yaml:"cors" toml:"cors" json:"cors"`
	RateLimit     RateLimit     `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-" toml:"-" json:"-"`
}

// Server holds HTTP server settings
type Server struct {
	Host            string        `yaml:"host" toml:"host" json:"host"`
	Port            int           `yaml:"port" toml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" toml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Address returns host:port for http.Server
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Logging holds logger settings
type Logging struct {
	Level string `yaml:"level" toml:"level" json:"level"`
}

// Store selects and configures the persistence adapter
type Store struct {
	Adapter   string         `yaml:"adapter" toml:"adapter" json:"adapter"`
	GraphName string         `yaml:"graph_name" toml:"graph_name" json:"graph_name"`
	Sheets    SheetsStore    `yaml:"sheets" toml:"sheets" json:"sheets"`
	Supabase  SupabaseStore  `yaml:"supabase" toml:"supabase" json:"supabase"`
	DynamoDB  DynamoDBStore  `yaml:"dynamodb" toml:"dynamodb" json:"dynamodb"`
	Breaker   CircuitBreaker `yaml:"breaker" toml:"breaker" json:"breaker"`
}

// SheetsStore configures the Google Sheets adapter
type SheetsStore struct {
	SpreadsheetID string `yaml:"spreadsheet_id" toml:"spreadsheet_id" json:"spreadsheet_id"`
	APIKey        string `yaml:"api_key" toml:"api_key" json:"api_key"`
}

// SupabaseStore configures the Supabase adapter
type SupabaseStore struct {
	URL        string `yaml:"url" toml:"url" json:"url"`
	AnonKey    string `yaml:"anon_key" toml:"anon_key" json:"anon_key"`
	Schema     string `yaml:"schema" toml:"schema" json:"schema"`
	NodesTable string `yaml:"nodes_table" toml:"nodes_table" json:"nodes_table"`
	EdgesTable string `yaml:"edges_table" toml:"edges_table" json:"edges_table"`
}

// DynamoDBStore configures the DynamoDB adapter
type DynamoDBStore struct {
	TableName string `yaml:"table_name" toml:"table_name" json:"table_name"`
	Region    string `yaml:"region" toml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
}

// CircuitBreaker configures the breaker around the store
type CircuitBreaker struct {
	FailureThreshold float64       `yaml:"failure_threshold" toml:"failure_threshold" json:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests" toml:"min_requests" json:"min_requests"`
	Interval         time.Duration `yaml:"interval" toml:"interval" json:"interval"`
	OpenDuration     time.Duration `yaml:"open_duration" toml:"open_duration" json:"open_duration"`
	HalfOpenRequests uint32        `yaml:"half_open_requests" toml:"half_open_requests" json:"half_open_requests"`
}

// Auth holds API authentication settings. An empty secret disables JWT checks.
type Auth struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret" json:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer" toml:"jwt_issuer" json:"jwt_issuer"`
}

// Events configures save and reload notifications. An empty bus logs them instead.
type Events struct {
	BusName string `yaml:"bus_name" toml:"bus_name" json:"bus_name"`
	Region  string `yaml:"region" toml:"region" json:"region"`
}

// Observability holds metrics and tracing settings
type Observability struct {
	ServiceName      string  `yaml:"service_name" toml:"service_name" json:"service_name"`
	MetricsNamespace string  `yaml:"metrics_namespace" toml:"metrics_namespace" json:"metrics_namespace"`
	TracingEndpoint  string  `yaml:"tracing_endpoint" toml:"tracing_endpoint" json:"tracing_endpoint"`
	SampleRate       float64 `yaml:"sample_rate" toml:"sample_rate" json:"sample_rate"`
}

// Editor holds the tunable editing rules
type Editor struct {
	FilterDebounce time.Duration `yaml:"filter_debounce" toml:"filter_debounce" json:"filter_debounce"`
	FitOnFilter    bool          `yaml:"fit_on_filter" toml:"fit_on_filter" json:"fit_on_filter"`
	SuggestLimit   int           `yaml:"suggest_limit" toml:"suggest_limit" json:"suggest_limit"`
	SaveTimeout    time.Duration `yaml:"save_timeout" toml:"save_timeout" json:"save_timeout"`
	LoadTimeout    time.Duration `yaml:"load_timeout" toml:"load_timeout" json:"load_timeout"`
	TokenTTL       time.Duration `yaml:"token_ttl" toml:"token_ttl" json:"token_ttl"`
}

// CORS holds cross-origin settings
type CORS struct {
	Enabled        bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins" json:"allowed_origins"`
}

// RateLimit holds per-client request limits. Zero disables limiting.
type RateLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int `yaml:"burst" toml:"burst" json:"burst"`
}

// Default returns a configuration that runs without any file or variable
func Default(env Environment) *Config {
	rules := domainconfig.LoadDomainConfig(string(env))
	return &Config{
		Environment: env,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{Level: "info"},
		Store: Store{
			Adapter:   AdapterMemory,
			GraphName: "default",
			Supabase: SupabaseStore{
				Schema:     "public",
				NodesTable: "nodes",
				EdgesTable: "edges",
			},
			DynamoDB: DynamoDBStore{
				TableName: "orgmap",
				Region:    "us-west-2",
			},
			Breaker: CircuitBreaker{
				FailureThreshold: 0.6,
				MinRequests:      3,
				Interval:         60 * time.Second,
				OpenDuration:     30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Auth: Auth{JWTIssuer: "orgmap"},
		Observability: Observability{
			ServiceName:      "orgmap",
			MetricsNamespace: "orgmap",
			SampleRate:       0.1,
		},
		Editor: Editor{
			FilterDebounce: rules.FilterDebounce,
			FitOnFilter:    rules.FitOnFilter,
			SuggestLimit:   rules.SuggestLimit,
			SaveTimeout:    rules.SaveTimeout,
			LoadTimeout:    rules.LoadTimeout,
			TokenTTL:       rules.TokenTTL,
		},
		CORS: CORS{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimit{
			RequestsPerMinute: 600,
			Burst:             50,
		},
	}
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	switch c.Store.Adapter {
	case AdapterMemory:
	case AdapterSheets:
		if c.Store.Sheets.SpreadsheetID == "" {
			problems = append(problems, "store.sheets.spreadsheet_id is required")
		}
	case AdapterSupabase:
		if c.Store.Supabase.URL == "" || c.Store.Supabase.AnonKey == "" {
			problems = append(problems, "store.supabase.url and store.supabase.anon_key are required")
		}
	case AdapterDynamoDB:
		if c.Store.DynamoDB.TableName == "" {
			problems = append(problems, "store.dynamodb.table_name is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.adapter %q is not one of memory, sheets, supabase, dynamodb", c.Store.Adapter))
	}

	if c.Store.Breaker.FailureThreshold <= 0 || c.Store.Breaker.FailureThreshold > 1 {
		problems = append(problems, "store.breaker.failure_threshold must be in (0, 1]")
	}
	if c.Editor.FilterDebounce < 0 {
		problems = append(problems, "editor.filter_debounce cannot be negative")
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		problems = append(problems, "observability.sample_rate must be in [0, 1]")
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required in production")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DomainRules converts the editor section into the rules the editor runs with
func (c *Config) DomainRules() *domainconfig.DomainConfig {
	rules := domainconfig.LoadDomainConfig(string(c.Environment))
	rules.FilterDebounce = c.Editor.FilterDebounce
	rules.FitOnFilter = c.Editor.FitOnFilter
	if c.Editor.SuggestLimit > 0 {
		rules.SuggestLimit = c.Editor.SuggestLimit
	}
	if c.Editor.SaveTimeout > 0 {
		rules.SaveTimeout = c.Editor.SaveTimeout
	}
	if c.Editor.LoadTimeout > 0 {
		rules.LoadTimeout = c.Editor.LoadTimeout
	}
	if c.Editor.TokenTTL > 0 {
		rules.TokenTTL = c.Editor.TokenTTL
	}
	return rules
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}
