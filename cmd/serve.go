package cmd

import (
	"AltarProject/global/config"
	"AltarProject/logger"
	"AltarProject/service/server"
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var withNATS bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve getNextCounter and the notification functions over HTTP, gRPC and NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, withNATS)
		},
	}
	cmd.Flags().BoolVar(&withNATS, "nats", false, "also answer callable requests over NATS")
	return cmd
}

func serve(ctx context.Context, cfg *config.AppConfig, withNATS bool) error {
	res := server.NewResources(cfg)
	defer func() {
		if err := res.Close(context.Background()); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
		_ = logger.Sync()
	}()

	if !cfg.Counter.Persistent() {
		logger.Warn("counter backend is not persistent, sequences restart from zero on every restart",
			zap.String("backend", cfg.Counter.Backend))
	}

	reg, err := server.BuildRegistry(ctx, res)
	if err != nil {
		return err
	}

	var srvOpts []server.Option
	if withNATS {
		cli, err := res.NATS()
		if err != nil {
			return err
		}
		srvOpts = append(srvOpts, server.WithNATS(cli.Conn()))
	}

	logger.Info("altar serving",
		zap.Strings("functions", reg.Names()),
		zap.String("counter_backend", cfg.Counter.Backend),
		zap.String("notify_queue", cfg.Notify.Queue))
	return server.New(cfg, reg, srvOpts...).Run(ctx)
}
