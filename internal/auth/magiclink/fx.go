package magiclink

import "go.uber.org/fx"

var Module = fx.Module("auth.magiclink",
	fx.Provide(New),
)
