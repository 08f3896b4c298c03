package config

import "time"

// DomainConfig holds the editor's tunable rules
type DomainConfig struct {
	// Input limits
	MaxLabelLength        int
	MaxRelationshipLength int
	MaxURLLength          int

	// Relationship vocabulary offered before any custom value is entered
	BuiltinRelationships []string

	// Filter behavior
	FilterDebounce time.Duration
	FitOnFilter    bool

	// Autocomplete
	SuggestLimit int

	// Persistence
	SaveTimeout time.Duration
	LoadTimeout time.Duration
	TokenTTL    time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxLabelLength:        200,
		MaxRelationshipLength: 64,
		MaxURLLength:          2048,

		BuiltinRelationships: []string{"partnership", "affiliation", "membership"},

		FilterDebounce: 500 * time.Millisecond,
		FitOnFilter:    true,

		SuggestLimit: 10,

		SaveTimeout: 30 * time.Second,
		LoadTimeout: 30 * time.Second,
		TokenTTL:    time.Hour,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.SaveTimeout = 20 * time.Second
	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.SaveTimeout = time.Minute
	config.LoadTimeout = time.Minute
	config.SuggestLimit = 25
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
