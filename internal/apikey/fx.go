package apikey

import (
	"github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/repository"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
