package session

import (
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"go.uber.org/fx"
)

func NewCodecFromConfig(cfg config.Config) (*Codec, error) {
	return NewCodec(cfg.SessionSecret)
}

var Module = fx.Module("auth.session",
	fx.Provide(NewCodecFromConfig),
	fx.Provide(NewManager),
)
