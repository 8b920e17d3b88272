package goal

import (
	"github.com/smallbiznis/tandem/internal/goal/repository"
	"github.com/smallbiznis/tandem/internal/goal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("goal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
