package pairing

import (
	"github.com/smallbiznis/tandem/internal/pairing/repository"
	"github.com/smallbiznis/tandem/internal/pairing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pairing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
