package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/proxyjohn/internal/app"
	"github.com/dropDatabas3/proxyjohn/internal/config"
	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				_ = godotenv.Load(envFile)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				ServiceName: "proxyjohn",
			})
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			logger.L().Info("proxy escuchando",
				logger.String("addr", cfg.Server.Addr),
				logger.String("prefix", cfg.Proxy.URLPrefix),
				logger.Int("providers", len(cfg.Providers)),
			)
			return httpx.Serve(ctx, cfg.Server.Addr, c.Router())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/config.example.yaml", "ruta al config YAML")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "ruta a .env")
	return cmd
}
