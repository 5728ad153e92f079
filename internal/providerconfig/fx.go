package providerconfig

import "go.uber.org/fx"

var Module = fx.Module("providerconfig.service",
	fx.Provide(NewService),
)
