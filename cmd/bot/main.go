package main

import (
	"log"

	"go.uber.org/fx"

	"trade_engine/internal/modules"
	"trade_engine/internal/modules/config"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app := fx.New(
		modules.App(cfg),
		fx.StopTimeout(cfg.Service.ShutdownTimeout),
	)
	app.Run()
}
