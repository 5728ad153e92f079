package main

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/smallbiznis/payway/internal/config"
	"github.com/smallbiznis/payway/internal/fiat"
	"github.com/smallbiznis/payway/internal/fiat/revolut"
	"github.com/smallbiznis/payway/internal/fiat/stripe"
	"github.com/smallbiznis/payway/internal/lightning"
	"github.com/smallbiznis/payway/internal/lightning/bitvora"
	"github.com/smallbiznis/payway/internal/lightning/lnd"
	"github.com/smallbiznis/payway/internal/observability/logger"
	"github.com/smallbiznis/payway/internal/observability/tracing"
	"github.com/smallbiznis/payway/internal/providerconfig"
	"github.com/smallbiznis/payway/internal/server"
	"github.com/smallbiznis/payway/internal/webhook"
	"github.com/smallbiznis/payway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	opts := []fx.Option{
		fx.Supply(cfg),
		logger.Module,
		tracing.Module,
		fx.Provide(registerSnowflake),
		webhook.Module,
		fx.Provide(newProviders),
		server.Module,
		fx.Invoke(watchInvoices),
	}
	if cfg.DatabaseDSN != "" {
		opts = append(opts,
			db.Module,
			providerconfig.Module,
			fx.Invoke(func(conn *gorm.DB) error {
				return conn.AutoMigrate(&providerconfig.ProviderConfig{})
			}),
		)
	}

	fx.New(opts...).Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// providers holds whichever payment backends the environment enables.
type providers struct {
	Stripe    *stripe.Api
	Revolut   *revolut.Api
	Lightning lightning.Node
}

func (p *providers) FiatServices() []fiat.PaymentService {
	var out []fiat.PaymentService
	if p.Stripe != nil {
		out = append(out, p.Stripe)
	}
	if p.Revolut != nil {
		out = append(out, p.Revolut)
	}
	return out
}

type providerParams struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Bridge *webhook.Bridge
	// Store is only present when a database is configured; stored
	// credentials fill in providers the environment leaves disabled.
	Store *providerconfig.Service `optional:"true"`
}

func newProviders(in providerParams) (*providers, error) {
	cfg, log, bridge := in.Cfg, in.Log, in.Bridge
	if in.Store != nil {
		overlayStoredCredentials(&cfg, in.Store, log)
	}
	p := &providers{}

	if cfg.Stripe.Enabled() {
		api, err := stripe.New(stripe.Config{
			URL:            cfg.Stripe.URL,
			APIKey:         cfg.Stripe.APIKey,
			WebhookSecret:  cfg.Stripe.WebhookSecret,
			RequestTimeout: cfg.Client.RequestTimeout,
			ConnectTimeout: cfg.Client.ConnectTimeout,
			Logger:         log,
		})
		if err != nil {
			return nil, err
		}
		p.Stripe = api
		log.Info("stripe enabled")
	}

	if cfg.Revolut.Enabled() {
		api, err := revolut.New(revolut.Config{
			URL:            cfg.Revolut.URL,
			APIVersion:     cfg.Revolut.APIVersion,
			Token:          cfg.Revolut.Token,
			WebhookSecret:  cfg.Revolut.WebhookSecret,
			RequestTimeout: cfg.Client.RequestTimeout,
			ConnectTimeout: cfg.Client.ConnectTimeout,
			Logger:         log,
		})
		if err != nil {
			return nil, err
		}
		p.Revolut = api
		log.Info("revolut enabled")
	}

	switch {
	case cfg.LND.Enabled():
		node, err := lnd.New(lnd.Config{
			Host:         cfg.LND.Host,
			TLSCertPath:  cfg.LND.TLSCertPath,
			MacaroonPath: cfg.LND.MacaroonPath,
			Network:      cfg.LND.Network,
			Logger:       log,
		})
		if err != nil {
			return nil, err
		}
		p.Lightning = node
		log.Info("lnd enabled", zap.String("host", cfg.LND.Host))
	case cfg.Bitvora.Enabled():
		node, err := bitvora.New(bitvora.Config{
			URL:            cfg.Bitvora.URL,
			Token:          cfg.Bitvora.Token,
			WebhookSecret:  cfg.Bitvora.WebhookSecret,
			WebhookPath:    cfg.Bitvora.WebhookPath,
			RequestTimeout: cfg.Client.RequestTimeout,
			ConnectTimeout: cfg.Client.ConnectTimeout,
			Logger:         log,
		}, bridge)
		if err != nil {
			return nil, err
		}
		p.Lightning = node
		log.Info("bitvora enabled")
	}

	return p, nil
}

// overlayStoredCredentials backfills provider credentials from the
// database for providers the environment does not configure. Environment
// values always win so a deployment can pin credentials explicitly.
func overlayStoredCredentials(cfg *config.Config, store *providerconfig.Service, log *zap.Logger) {
	ctx := context.Background()

	if !cfg.Stripe.Enabled() {
		if stored, err := store.Get(ctx, "stripe"); err == nil {
			cfg.Stripe.APIKey = stringValue(stored, "api_key")
			cfg.Stripe.WebhookSecret = stringValue(stored, "webhook_secret")
			if url := stringValue(stored, "url"); url != "" {
				cfg.Stripe.URL = url
			}
			log.Info("stripe credentials loaded from store")
		} else if !errors.Is(err, providerconfig.ErrNotFound) {
			log.Warn("load stripe credentials", zap.Error(err))
		}
	}

	if !cfg.Revolut.Enabled() {
		if stored, err := store.Get(ctx, "revolut"); err == nil {
			cfg.Revolut.Token = stringValue(stored, "token")
			cfg.Revolut.WebhookSecret = stringValue(stored, "webhook_secret")
			if version := stringValue(stored, "api_version"); version != "" {
				cfg.Revolut.APIVersion = version
			}
			if url := stringValue(stored, "url"); url != "" {
				cfg.Revolut.URL = url
			}
			log.Info("revolut credentials loaded from store")
		} else if !errors.Is(err, providerconfig.ErrNotFound) {
			log.Warn("load revolut credentials", zap.Error(err))
		}
	}

	if !cfg.Bitvora.Enabled() {
		if stored, err := store.Get(ctx, "bitvora"); err == nil {
			cfg.Bitvora.Token = stringValue(stored, "token")
			cfg.Bitvora.WebhookSecret = stringValue(stored, "webhook_secret")
			if path := stringValue(stored, "webhook_path"); path != "" {
				cfg.Bitvora.WebhookPath = path
			}
			if url := stringValue(stored, "url"); url != "" {
				cfg.Bitvora.URL = url
			}
			log.Info("bitvora credentials loaded from store")
		} else if !errors.Is(err, providerconfig.ErrNotFound) {
			log.Warn("load bitvora credentials", zap.Error(err))
		}
	}
}

func stringValue(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// watchInvoices follows the lightning node's invoice stream for the
// lifetime of the process, so settlements are visible in the logs even
// before any consumer subscribes.
func watchInvoices(lc fx.Lifecycle, p *providers, log *zap.Logger) {
	if p.Lightning == nil {
		return
	}
	log = log.Named("invoices")

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			updates, err := p.Lightning.SubscribeInvoices(ctx, nil)
			if err != nil {
				cancel()
				return err
			}
			go func() {
				for update := range updates {
					switch update.Kind {
					case lightning.UpdateError:
						log.Warn("invoice stream error", zap.String("message", update.Message))
					default:
						log.Info("invoice update",
							zap.String("state", string(update.Kind)),
							zap.String("payment_hash", update.PaymentHash),
							zap.String("external_id", update.ExternalID),
						)
					}
				}
			}()
			log.Info("invoice subscription started", zap.String("version", version))
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
