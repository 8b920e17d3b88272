package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tandem/internal/clock"
	"github.com/smallbiznis/tandem/internal/config"
	"github.com/smallbiznis/tandem/internal/migration"
	"github.com/smallbiznis/tandem/internal/observability"
	"github.com/smallbiznis/tandem/internal/server"
	"github.com/smallbiznis/tandem/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus the pairing domain modules it pulls in
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
