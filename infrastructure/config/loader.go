package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Loader layers configuration sources, lowest priority first:
// defaults, base file, <environment> file, local file (development only),
// environment variables.
type Loader struct {
	basePath    string
	environment Environment
	getenv      func(string) string
	fileLoaders []FileLoader
}

// FileLoader decodes one configuration file format
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading files from basePath
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	l := &Loader{
		basePath:    basePath,
		environment: env,
		getenv:      os.Getenv,
	}
	l.RegisterLoader(&YAMLLoader{})
	l.RegisterLoader(&TOMLLoader{})
	l.RegisterLoader(&JSONLoader{})
	return l
}

// RegisterLoader adds a file format. Earlier registrations win when several
// files share a name.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders = append(l.fileLoaders, loader)
}

// Load builds the configuration and validates it
func (l *Loader) Load() (*Config, error) {
	cfg := Default(l.environment)
	sources := []string{"defaults"}

	layers := []string{"base", strings.ToLower(string(l.environment))}
	if l.environment == Development {
		layers = append(layers, "local")
	}
	for _, name := range layers {
		path, err := l.loadFile(name, cfg)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		sources = append(sources, path)
	}

	if l.applyEnvironment(cfg) {
		sources = append(sources, "environment")
	}
	// the environment is fixed by the caller, not by file contents
	cfg.Environment = l.environment
	cfg.LoadedFrom = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())
		file, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		err = loader.Load(file, cfg)
		file.Close()
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", fs.ErrNotExist
}

// applyEnvironment overlays ORGMAP_* variables and reports whether any was set
func (l *Loader) applyEnvironment(cfg *Config) bool {
	applied := false
	str := func(key string, dst *string) {
		if v := l.getenv(key); v != "" {
			*dst = v
			applied = true
		}
	}
	integer := func(key string, dst *int) {
		if v := l.getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
				applied = true
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v := l.getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
				applied = true
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := l.getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
				applied = true
			}
		}
	}

	str("ORGMAP_SERVER_HOST", &cfg.Server.Host)
	integer("ORGMAP_SERVER_PORT", &cfg.Server.Port)
	integer("PORT", &cfg.Server.Port)
	str("ORGMAP_LOG_LEVEL", &cfg.Logging.Level)

	str("ORGMAP_STORE_ADAPTER", &cfg.Store.Adapter)
	str("ORGMAP_GRAPH_NAME", &cfg.Store.GraphName)
	str("ORGMAP_SHEETS_SPREADSHEET_ID", &cfg.Store.Sheets.SpreadsheetID)
	str("ORGMAP_SHEETS_API_KEY", &cfg.Store.Sheets.APIKey)
	str("ORGMAP_SUPABASE_URL", &cfg.Store.Supabase.URL)
	str("ORGMAP_SUPABASE_ANON_KEY", &cfg.Store.Supabase.AnonKey)
	str("ORGMAP_DYNAMODB_TABLE", &cfg.Store.DynamoDB.TableName)
	str("ORGMAP_DYNAMODB_ENDPOINT", &cfg.Store.DynamoDB.Endpoint)
	str("AWS_REGION", &cfg.Store.DynamoDB.Region)

	str("ORGMAP_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("ORGMAP_EVENT_BUS_NAME", &cfg.Events.BusName)
	str("ORGMAP_TRACING_ENDPOINT", &cfg.Observability.TracingEndpoint)

	duration("ORGMAP_FILTER_DEBOUNCE", &cfg.Editor.FilterDebounce)
	boolean("ORGMAP_FIT_ON_FILTER", &cfg.Editor.FitOnFilter)
	boolean("ORGMAP_CORS_ENABLED", &cfg.CORS.Enabled)
	if v := l.getenv("ORGMAP_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
		applied = true
	}
	return applied
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// YAMLLoader loads configuration from YAML files
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	err := yaml.NewDecoder(reader).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (y *YAMLLoader) Extension() string { return "yaml" }

// TOMLLoader loads configuration from TOML files
type TOMLLoader struct{}

func (t *TOMLLoader) Load(reader io.Reader, target interface{}) error {
	_, err := toml.NewDecoder(reader).Decode(target)
	return err
}

func (t *TOMLLoader) Extension() string { return "toml" }

// JSONLoader loads configuration from JSON files. Durations are nanoseconds.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string { return "json" }

// EnvironmentFromEnv reads ORGMAP_ENV, defaulting to development
func EnvironmentFromEnv() Environment {
	switch strings.ToLower(os.Getenv("ORGMAP_ENV")) {
	case "production", "prod":
		return Production
	case "staging":
		return Staging
	case "test":
		return Test
	default:
		return Development
	}
}

// DirFromEnv reads ORGMAP_CONFIG_DIR, defaulting to ./config
func DirFromEnv() string {
	if dir := os.Getenv("ORGMAP_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}

// Load reads configuration from the directory and environment named by the
// process environment.
func Load() (*Config, error) {
	return NewLoader(DirFromEnv(), EnvironmentFromEnv()).Load()
}
