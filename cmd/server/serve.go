package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/server"
)

func newServeCmd(o *overrides) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Seed the store and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			if err := srv.Seed(ctx); err != nil {
				srv.Logger().Warn("Seeding incomplete", zap.Error(err))
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&o.port, "port", "", "Server port (PORT)")
	cmd.Flags().StringVar(&o.host, "host", "", "Listen address (HOST)")
	cmd.Flags().BoolVar(&o.watch, "watch", false, "Invalidate manifest caches when extension files change (EXTENSIONS_WATCH)")
	return cmd
}

// commandContext returns the command's context, or Background when run outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
