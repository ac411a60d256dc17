package config

import (
	"time"

	"github.com/crumplecup/botticelli/internal/tier"
)

// Config is botticelli's top-level configuration document: everything a
// `botticellid` process needs to start serving, decoded via loader.go's
// `$include`-resolving YAML loader with `yaml.Decoder.KnownFields(true)`,
// so an unrecognized key is a load-time error rather than a silent no-op.
type Config struct {
	Version       int                        `yaml:"version"`
	Server        ServerConfig               `yaml:"server"`
	Database      DatabaseConfig             `yaml:"database"`
	Auth          AuthConfig                 `yaml:"auth"`
	Logging       LoggingConfig              `yaml:"logging"`
	Observability ObservabilityConfig        `yaml:"observability"`
	Tiers         map[string]tier.TierConfig `yaml:"tiers"`
	Providers     ProvidersConfig            `yaml:"providers"`
	ActorDefaults ActorDefaultsConfig        `yaml:"actor_defaults"`
	Actors        []ActorConfig              `yaml:"actors"`
}

// ServerConfig configures the control plane's HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	BasePath   string `yaml:"base_path"`
}

// DatabaseConfig points at the PostgreSQL instance backing both the
// content-generation storage layer and actor state/history. An empty DSN
// means run against the in-memory stores (single-process dev/demo mode).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AuthConfig configures the control plane's JWT issuance/validation. An
// empty Secret leaves mutating control-plane routes unauthenticated.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
}

// LoggingConfig configures the process-wide structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ObservabilityConfig configures tracing export. An empty OTLPEndpoint
// disables export; spans are still created, just never flushed anywhere.
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// ProvidersConfig holds the per-SDK provider configurations; a nil entry
// means that provider is unavailable to narratives that name it.
type ProvidersConfig struct {
	Anthropic *AnthropicProviderConfig `yaml:"anthropic,omitempty"`
	OpenAI    *OpenAIProviderConfig    `yaml:"openai,omitempty"`
	Bedrock   *BedrockProviderConfig   `yaml:"bedrock,omitempty"`
}

// AnthropicProviderConfig configures AnthropicProvider. APIKeyEnv names the
// environment variable carrying the API key; the key itself is never
// written to a config file or logged.
type AnthropicProviderConfig struct {
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
	Tier       string `yaml:"tier"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// OpenAIProviderConfig configures OpenAIProvider.
type OpenAIProviderConfig struct {
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Tier       string `yaml:"tier"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// BedrockProviderConfig configures BedrockProvider against a Bedrock-hosted
// model, authenticating via the ambient AWS SDK credential chain (no
// key/secret fields here by design: this is the one provider that should
// never have a long-lived credential pair written to a config file).
type BedrockProviderConfig struct {
	Region     string `yaml:"region"`
	ModelID    string `yaml:"model_id"`
	Tier       string `yaml:"tier"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// ActorDefaultsConfig provides fallback values for an ActorConfig that
// leaves a field unset.
type ActorDefaultsConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// ActorConfig is one entry in the actor roster a `botticellid` process
// hosts, naming the narrative it runs, the schedule driving it, and which
// provider narrative generation calls resolve against.
type ActorConfig struct {
	Name             string         `yaml:"name"`
	NarrativePath    string         `yaml:"narrative_path"`
	ExecuteName      string         `yaml:"execute_name,omitempty"`
	Provider         string         `yaml:"provider"`
	Schedule         ScheduleConfig `yaml:"schedule"`
	FailureThreshold *uint32        `yaml:"failure_threshold,omitempty"`
}

// ScheduleConfig is ActorConfig's schedule sub-document; Kind selects which
// of Interval/Cron/Timezone applies, mirroring internal/actor.Schedule's
// four variants (interval/cron/immediate/on_demand).
type ScheduleConfig struct {
	Kind     string        `yaml:"kind"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Cron     string        `yaml:"cron,omitempty"`
	Timezone string        `yaml:"timezone,omitempty"`
}
