package flux

import (
	"github.com/ZanzibarNuclear/won-service-sub000/internal/flux/repository"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/flux/service"
	"go.uber.org/fx"
)

var Module = fx.Module("flux.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
