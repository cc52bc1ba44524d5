// Package gatewayd parses gateway service flags and launches the service.
package gatewayd

import (
	"context"
	"flag"

	"github.com/uyjulian/naoka-ng/internal/gateway/app"
	entrypoint "github.com/uyjulian/naoka-ng/internal/platform/cmd"
)

// Config holds gateway command configuration.
type Config struct {
	Port int `env:"NAOKA_GRPC_PORT" envDefault:"8085"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The gateway gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the gateway service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGateway, func(context.Context) error {
		return app.Run(ctx, cfg.Port)
	})
}
