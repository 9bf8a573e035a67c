package migration

import (
	apikeydomain "github.com/ZanzibarNuclear/won-service-sub000/internal/apikey/domain"
	authdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/auth/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	fluxdomain "github.com/ZanzibarNuclear/won-service-sub000/internal/flux/domain"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/seed"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (sqlite for local runs, mysql)
			// fall back to the ORM schema.
			if err := conn.AutoMigrate(
				&authdomain.User{},
				&authdomain.RoleGrant{},
				&authdomain.MagicLink{},
				&apikeydomain.APIKey{},
				&fluxdomain.Flux{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureBootstrapSubjects(conn, cfg, node)
	}),
)
