package migration

import (
	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/smallbiznis/tandem/internal/config"
	goaldomain "github.com/smallbiznis/tandem/internal/goal/domain"
	invitationdomain "github.com/smallbiznis/tandem/internal/invitation/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// mysql/sqlite deployments fall back to schema sync; the
			// versioned SQL path is postgres-only.
			return conn.AutoMigrate(
				&accountdomain.Account{},
				&invitationdomain.TokenInvite{},
				&invitationdomain.PartnerCode{},
				&goaldomain.Goal{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
