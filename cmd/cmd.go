// Package cmd assembles the fleet binaries: one executable, one subcommand
// per role. Every role is an fx graph built from the same package modules;
// the difference between roles is which modules get wired in.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/infra/logging"
)

const ServiceName = "im-chat-service"

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Real-time instant-messaging backend",
		Commands: []*cli.Command{
			roleCmd("chat", "Run the ingress RPC service", ChatApp),
			roleCmd("gateway", "Run the WebSocket edge gateway", GatewayApp),
			roleCmd("consumer", "Run the pipeline consumer with the pusher and storage RPC", ConsumerApp),
			roleCmd("all", "Run every role in one process (development)", AllApp),
		},
	}

	return app.Run(os.Args)
}

func roleCmd(name, usage string, build func(*config.Config) *fx.App) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("config_file")
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}

			if path != "" {
				// Only the log level is hot-reloadable.
				if err := config.Watch(path, func(fresh *config.Config) {
					logging.SetLevel(fresh.Log.Level)
				}); err != nil {
					slog.Warn("CONFIG_WATCH_FAILED", slog.Any("err", err))
				}
			}

			app := build(cfg)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}
