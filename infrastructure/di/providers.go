package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"orgmap/application/editor"
	"orgmap/application/ports"
	"orgmap/infrastructure/config"
	"orgmap/infrastructure/messaging/eventbridge"
	"orgmap/infrastructure/messaging/logging"
	"orgmap/infrastructure/persistence"
	"orgmap/infrastructure/persistence/dynamodb"
	"orgmap/infrastructure/persistence/memory"
	"orgmap/infrastructure/persistence/sheets"
	"orgmap/infrastructure/persistence/supabase"
	"orgmap/infrastructure/view"
	"orgmap/interfaces/http/rest"
	"orgmap/interfaces/http/rest/handlers"
	v1 "orgmap/interfaces/http/rest/v1"
	"orgmap/pkg/auth"
	pkgerrors "orgmap/pkg/errors"
	"orgmap/pkg/observability"
)

// ProvideLogLevel creates the level shared by every logger. The config
// watcher adjusts it at runtime.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("environment", string(cfg.Environment)),
	), nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Observability.MetricsNamespace)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client. A configured endpoint
// points it at DynamoDB Local.
func ProvideDynamoDBClient(awsCfg aws.Config, endpoint string) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideAdapter builds the configured persistence adapter without decoration
func ProvideAdapter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.PersistenceAdapter, error) {
	store := cfg.Store
	switch store.Adapter {
	case config.AdapterMemory, "":
		return memory.NewStore(logger), nil

	case config.AdapterSheets:
		return sheets.NewStore(ctx, sheets.Config{
			SpreadsheetID: store.Sheets.SpreadsheetID,
			APIKey:        store.Sheets.APIKey,
			TokenTTL:      cfg.Editor.TokenTTL,
		}, logger)

	case config.AdapterSupabase:
		return supabase.NewStore(supabase.Config{
			URL:        store.Supabase.URL,
			AnonKey:    store.Supabase.AnonKey,
			Schema:     store.Supabase.Schema,
			NodesTable: store.Supabase.NodesTable,
			EdgesTable: store.Supabase.EdgesTable,
			TokenTTL:   cfg.Editor.TokenTTL,
		}, logger)

	case config.AdapterDynamoDB:
		awsCfg, err := ProvideAWSConfig(ctx, store.DynamoDB.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := ProvideDynamoDBClient(awsCfg, store.DynamoDB.Endpoint)
		return dynamodb.NewGraphRepository(client, store.DynamoDB.TableName, store.GraphName, logger), nil

	default:
		return nil, fmt.Errorf("unknown store adapter %q", store.Adapter)
	}
}

// ProvideStore wraps the adapter with the circuit breaker, tracing and metrics
func ProvideStore(ctx context.Context, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*persistence.ResilientStore, error) {
	adapter, err := ProvideAdapter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	breaker := persistence.DefaultBreakerConfig()
	b := cfg.Store.Breaker
	if b.FailureThreshold > 0 {
		breaker.FailureThreshold = b.FailureThreshold
	}
	if b.MinRequests > 0 {
		breaker.MinRequests = b.MinRequests
	}
	if b.Interval > 0 {
		breaker.Interval = b.Interval
	}
	if b.OpenDuration > 0 {
		breaker.Timeout = b.OpenDuration
	}
	if b.HalfOpenRequests > 0 {
		breaker.MaxRequests = b.HalfOpenRequests
	}

	logger.Info("Persistence adapter ready",
		zap.String("adapter", adapter.Name()),
		zap.String("graph", cfg.Store.GraphName),
	)
	return persistence.NewResilientStore(adapter, breaker, metrics, logger), nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured and
// to the log otherwise.
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	if cfg.Events.BusName == "" {
		return logging.NewPublisher(logger), nil
	}
	awsCfg, err := ProvideAWSConfig(ctx, cfg.Events.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return eventbridge.NewPublisher(ProvideEventBridgeClient(awsCfg), cfg.Events.BusName, logger), nil
}

// ProvideEditor creates the editing session over the store
func ProvideEditor(
	cfg *config.Config,
	store *persistence.ResilientStore,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *editor.Editor {
	return editor.New(store, logger.Named("editor"),
		editor.WithRules(cfg.DomainRules()),
		editor.WithGraphName(cfg.Store.GraphName),
		editor.WithPublisher(publisher),
		editor.WithMetrics(metrics),
	)
}

// ProvideViewState creates the polled view
func ProvideViewState() *view.State {
	return view.NewState()
}

// ProvideFilterScheduler creates the debounced filter feeding the view
func ProvideFilterScheduler(e *editor.Editor, state *view.State, logger *zap.Logger) *editor.FilterScheduler {
	return editor.NewFilterScheduler(e, state, logger.Named("filter"))
}

// ProvideErrorHandler creates the HTTP error renderer. Development builds
// include stack traces.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator returns nil when no secret is configured
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.JWTIssuer,
		Leeway:    30 * time.Second,
	})
}

// ProvideRateLimiter returns nil when limiting is disabled
func ProvideRateLimiter(cfg *config.Config) *auth.IPRateLimiter {
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return nil
	}
	return auth.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
}

// ProvideHandlers creates the v1 handlers
func ProvideHandlers(
	e *editor.Editor,
	scheduler *editor.FilterScheduler,
	state *view.State,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) v1.Handlers {
	httpLogger := logger.Named("http")
	return v1.Handlers{
		Graph:  handlers.NewGraphHandler(e, errs, httpLogger),
		Node:   handlers.NewNodeHandler(e, errs, httpLogger),
		Edge:   handlers.NewEdgeHandler(e, errs, httpLogger),
		Filter: handlers.NewFilterHandler(e, scheduler, state, errs, httpLogger),
	}
}

// ProvideReadiness fails while the breaker is open or before the first load
func ProvideReadiness(store *persistence.ResilientStore, e *editor.Editor) rest.ReadinessFunc {
	return func(ctx context.Context) error {
		if store.State() == gobreaker.StateOpen {
			return fmt.Errorf("%s circuit breaker is open", store.Name())
		}
		if !e.Status().Loaded {
			return errors.New("graph not loaded")
		}
		return nil
	}
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	h v1.Handlers,
	errs *pkgerrors.ErrorHandler,
	validator *auth.JWTValidator,
	limiter *auth.IPRateLimiter,
	metrics *observability.Collector,
	ready rest.ReadinessFunc,
	logger *zap.Logger,
) *rest.Router {
	opts := []rest.Option{
		rest.WithMetrics(metrics),
		rest.WithReadiness(ready),
	}
	if validator != nil {
		opts = append(opts, rest.WithJWT(validator))
	}
	if limiter != nil {
		opts = append(opts, rest.WithRateLimiter(limiter))
	}
	return rest.NewRouter(cfg, h, errs, logger.Named("http"), opts...)
}
