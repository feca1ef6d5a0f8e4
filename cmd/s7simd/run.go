package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AntDeM/S7-DB-Simulator/internal/logx"
	"github.com/AntDeM/S7-DB-Simulator/internal/plc"
	"github.com/AntDeM/S7-DB-Simulator/internal/s7server"
	"github.com/AntDeM/S7-DB-Simulator/internal/script"
	"github.com/AntDeM/S7-DB-Simulator/internal/simulator"
)

func newRunCommand() *cobra.Command {
	var (
		configPath   string
		scriptPath   string
		port         int
		syncInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a DB configuration, start the simulator, and serve until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logx.New(logLevel, pretty)

			defs, _, err := loadAndValidate(configPath)
			if err != nil {
				return err
			}

			srv := s7server.NewFake()
			sim, err := simulator.New(defs, srv, log, simulator.Config{
				Port:         port,
				SyncInterval: syncInterval,
			})
			if err != nil {
				return errors.Annotate(err, "constructing simulator")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sim.Start(ctx); err != nil {
				return errors.Annotate(err, "starting simulator")
			}
			defer sim.Stop()

			if scriptPath != "" {
				if err := runScript(ctx, sim, defs, scriptPath, log); err != nil {
					return err
				}
			}

			log.Info().Msg("s7simd running, press Ctrl+C to stop")
			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the DB configuration file (yaml or csv)")
	cmd.Flags().StringVar(&scriptPath, "script", "", "optional script file to load and start immediately")
	cmd.Flags().IntVar(&port, "port", simulator.DefaultPort, "TCP port to serve on")
	cmd.Flags().DurationVar(&syncInterval, "sync-interval", simulator.DefaultSyncInterval, "synchronizer tick period (10ms-5s)")
	cmd.MarkFlagRequired("config")

	return cmd
}

// runScript loads and starts a script against sim, attaching a resolver
// built from the same DB definitions used to construct the simulator.
func runScript(ctx context.Context, sim *simulator.Simulator, defs []plc.DBDef, path string, log zerolog.Logger) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotate(err, "reading script")
	}

	engine := script.New(log)
	engine.Attach(sim.Store(), script.NewDefResolver(defs))

	if err := engine.Load(string(src)); err != nil {
		return errors.Annotate(err, "loading script")
	}
	if err := engine.Start(ctx); err != nil {
		return errors.Annotate(err, "starting script")
	}
	return nil
}
