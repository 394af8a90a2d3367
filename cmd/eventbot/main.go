// Command eventbot runs the event logistics Telegram bot.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/m3rciful/eventbot/core/cmd"
	"github.com/m3rciful/eventbot/internal/config"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			app, err := build(ctx, carrier.(*config.Config))
			if err != nil {
				return nil, err
			}
			return app, nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
