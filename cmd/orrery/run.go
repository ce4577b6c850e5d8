package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/orrery-sim/orrery"
	"github.com/orrery-sim/orrery/internal/observability"
)

type runFlags struct {
	steps       int
	method      string
	dt          time.Duration
	csv         string
	cosmo       string
	every       int
	metricsAddr string
}

func newRunCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Integrate the scenario",
		Long: `Integrate the scenario for the requested number of steps, optionally exporting
the states as CSV or as Cosmographia trajectories, and exposing Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, global, flags)
		},
	}
	cmd.Flags().IntVarP(&flags.steps, "steps", "n", 24*365, "number of steps")
	cmd.Flags().StringVar(&flags.method, "method", "", "integration method overriding the scenario (euler, verlet, rk4)")
	cmd.Flags().DurationVar(&flags.dt, "dt", 0, "time step overriding the scenario, may be negative")
	cmd.Flags().StringVar(&flags.csv, "csv", "", "write the states to this CSV file")
	cmd.Flags().StringVar(&flags.cosmo, "cosmo", "", "write Cosmographia trajectories into this directory")
	cmd.Flags().IntVar(&flags.every, "every", 24, "export the states every this many steps")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func run(cmd *cobra.Command, global *globalFlags, flags *runFlags) error {
	sc, logger, err := global.load(cmd)
	if err != nil {
		return err
	}
	if flags.method != "" {
		if sc.Config.Method, err = orrery.ParseMethod(flags.method); err != nil {
			return err
		}
	}
	if flags.dt != 0 {
		sc.Config.TimeStep = flags.dt.Seconds()
	}
	if flags.steps < 0 {
		return fmt.Errorf("invalid number of steps %d", flags.steps)
	}

	opts := []orrery.Option{orrery.WithLogger(logger)}
	var recorders []*orrery.Recorder
	if flags.csv != "" {
		f, err := os.Create(flags.csv)
		if err != nil {
			return err
		}
		recorders = append(recorders, orrery.NewRecorder(orrery.NewCSVExporter(f), flags.every))
	}
	if flags.cosmo != "" {
		if err := os.MkdirAll(flags.cosmo, 0755); err != nil {
			return err
		}
		exp := orrery.NewCosmographiaExporter(flags.cosmo, sc.Name, centerName(sc))
		recorders = append(recorders, orrery.NewRecorder(exp, flags.every))
	}
	for _, rec := range recorders {
		opts = append(opts, orrery.WithObserver(rec))
	}
	defer func() {
		for _, rec := range recorders {
			if err := rec.Close(); err != nil {
				level.Error(logger).Log("status", "export failed", "err", err)
			}
		}
	}()

	if flags.metricsAddr != "" {
		collector, err := observability.NewSimCollector(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		if flags.every > 1 {
			collector.EnergyEvery = uint64(flags.every)
		}
		opts = append(opts, orrery.WithObserver(collector))
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: flags.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("status", "metrics server failed", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		level.Info(logger).Log("metrics", flags.metricsAddr)
	}

	sim, err := sc.Build(opts...)
	if err != nil {
		return err
	}
	for _, rec := range recorders {
		if err := rec.Record(sim); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	e0 := sim.Energy()
	start := time.Now()
	level.Info(logger).Log("status", "started", "config", sim.Config(), "bodies", len(sim.Bodies()), "steps", flags.steps)
	for i := 0; i < flags.steps; i++ {
		if ctx.Err() != nil {
			level.Warn(logger).Log("status", "interrupted", "step", i)
			break
		}
		if err := sim.Step(); err != nil {
			return err
		}
		for _, rec := range recorders {
			if err := rec.Err(); err != nil {
				return err
			}
		}
	}
	drift := 0.0
	if e0 != 0 {
		drift = math.Abs((sim.Energy() - e0) / e0)
	}
	level.Info(logger).Log("status", "completed", "steps", sim.Steps(), "date", sim.Time().Format(time.RFC3339), "energy_drift", drift, "duration", time.Since(start))
	return nil
}
