package captcha

import (
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.captcha",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.Captcha.Secret == "" {
		return &NoOpProvider{}
	}
	return NewTurnstile(Config{
		Secret:    cfg.Captcha.Secret,
		VerifyURL: cfg.Captcha.VerifyURL,
		Timeout:   cfg.Captcha.Timeout,
	})
}
