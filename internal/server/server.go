// Package server exposes the webhook ingress. Inbound provider
// notifications are published raw onto the bridge; signature
// verification is the subscribers' job, so delivery is acknowledged with
// 200 regardless of payload content.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/payway/internal/config"
	"github.com/smallbiznis/payway/internal/observability/metrics"
	"github.com/smallbiznis/payway/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Engine *gin.Engine
	Bridge *webhook.Bridge
	GenID  *snowflake.Node
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	engine  *gin.Engine
	bridge  *webhook.Bridge
	genID   *snowflake.Node
	limiter *rateLimiter
}

func NewEngine(cfg config.Config, log *zap.Logger) (*gin.Engine, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	httpMetrics, err := metrics.NewHTTPMetrics(cfg.Tracing.ServiceName)
	if err != nil {
		return nil, err
	}
	engine.Use(metrics.GinMiddleware(httpMetrics))
	return engine, nil
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:     p.Cfg,
		log:     p.Log.Named("server"),
		engine:  p.Engine,
		bridge:  p.Bridge,
		genID:   p.GenID,
		limiter: newRateLimiter(p.Cfg.Webhook.RateLimitPerMinute, time.Minute),
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.POST("/webhooks/*provider", s.HandleWebhook)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// RunHTTP binds the engine to the configured address for the lifetime of
// the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
