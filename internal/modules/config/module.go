package config

import "go.uber.org/fx"

// Module supplies an already loaded config to the app.
func Module(cfg *Config) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
	)
}
