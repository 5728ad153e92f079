package webhook

import (
	"github.com/smallbiznis/payway/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("webhook",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *Bridge {
		return NewBridge(cfg.Webhook.BridgeCapacity, log)
	}),
)
