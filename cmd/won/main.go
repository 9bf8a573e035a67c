package main

import (
	"github.com/ZanzibarNuclear/won-service-sub000/internal/clock"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/logger"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/migration"
	"github.com/ZanzibarNuclear/won-service-sub000/internal/server"
	"github.com/ZanzibarNuclear/won-service-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
