package kds

import (
	"github.com/smallbiznis/dinein/internal/kds/repository"
	"github.com/smallbiznis/dinein/internal/kds/service"
	"go.uber.org/fx"
)

var Module = fx.Module("kds.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
