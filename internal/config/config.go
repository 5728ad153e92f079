// Package config carries process configuration parsed from the
// environment. Provider credentials may instead come from the
// providerconfig store when a database is configured.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// DatabaseDSN enables the gorm-backed provider credential store.
	// Empty means credentials come from the environment only.
	DatabaseDSN string `env:"DATABASE_DSN"`
	// ProviderConfigSecret derives the AES key encrypting stored
	// provider configs at rest.
	ProviderConfigSecret string `env:"PROVIDER_CONFIG_SECRET"`

	Client  ClientConfig  `envPrefix:"CLIENT_"`
	Webhook WebhookConfig `envPrefix:"WEBHOOK_"`
	Tracing TracingConfig `envPrefix:"TRACING_"`

	Stripe  StripeConfig  `envPrefix:"STRIPE_"`
	Revolut RevolutConfig `envPrefix:"REVOLUT_"`
	Bitvora BitvoraConfig `envPrefix:"BITVORA_"`
	LND     LNDConfig     `envPrefix:"LND_"`
}

// ClientConfig bounds every outbound provider call.
type ClientConfig struct {
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

type WebhookConfig struct {
	BridgeCapacity int `env:"BRIDGE_CAPACITY" envDefault:"100"`
	// RateLimitPerMinute caps deliveries per source IP. Zero disables
	// limiting.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"600"`
}

type TracingConfig struct {
	Enabled          bool    `env:"ENABLED" envDefault:"false"`
	ServiceName      string  `env:"SERVICE_NAME" envDefault:"payway"`
	ExporterEndpoint string  `env:"EXPORTER_ENDPOINT"`
	ExporterProtocol string  `env:"EXPORTER_PROTOCOL" envDefault:"grpc"`
	SamplingRatio    float64 `env:"SAMPLING_RATIO" envDefault:"1.0"`
}

type StripeConfig struct {
	URL           string `env:"URL" envDefault:"https://api.stripe.com"`
	APIKey        string `env:"API_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	WebhookPath   string `env:"WEBHOOK_PATH" envDefault:"/webhooks/stripe"`
}

func (c StripeConfig) Enabled() bool { return c.APIKey != "" }

type RevolutConfig struct {
	URL           string `env:"URL" envDefault:"https://merchant.revolut.com"`
	APIVersion    string `env:"API_VERSION" envDefault:"2024-09-01"`
	Token         string `env:"TOKEN"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	WebhookPath   string `env:"WEBHOOK_PATH" envDefault:"/webhooks/revolut"`
}

func (c RevolutConfig) Enabled() bool { return c.Token != "" }

type BitvoraConfig struct {
	URL           string `env:"URL" envDefault:"https://api.bitvora.com/"`
	Token         string `env:"TOKEN"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	WebhookPath   string `env:"WEBHOOK_PATH" envDefault:"/webhooks/bitvora"`
}

func (c BitvoraConfig) Enabled() bool { return c.Token != "" }

type LNDConfig struct {
	Host         string `env:"HOST"`
	TLSCertPath  string `env:"TLS_CERT_PATH"`
	MacaroonPath string `env:"MACAROON_PATH"`
	Network      string `env:"NETWORK" envDefault:"mainnet"`
}

func (c LNDConfig) Enabled() bool { return c.Host != "" }

func (c Config) IsProduction() bool { return c.Environment == "production" }

// Load parses configuration from the environment.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
