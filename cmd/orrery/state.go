package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orrery-sim/orrery"
)

type stateFlags struct {
	body string
	at   string
}

func newStateCmd(global *globalFlags) *cobra.Command {
	flags := &stateFlags{}
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state and osculating elements of a body",
		Long: `Print the state of a body at the start epoch of the scenario or at the date
provided with --at. States are derived from the elements of the bodies, not integrated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			sim, err := sc.Build(orrery.WithLogger(logger))
			if err != nil {
				return err
			}
			if flags.at != "" {
				dt, err := time.Parse(time.RFC3339, flags.at)
				if err != nil {
					return fmt.Errorf("invalid date: %w", err)
				}
				sim.ResetTo(dt)
			}
			st, found := sim.State(flags.body)
			if !found {
				return fmt.Errorf("unknown body %q", flags.body)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s at %s (JD %.6f)\n", flags.body, sim.Time().Round(time.Second).Format(time.RFC3339), sim.Epoch())
			fmt.Fprintf(out, "%s\n", st)
			if oe, ok := sim.Osculating(flags.body); ok {
				fmt.Fprintf(out, "%s\n", oe)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.body, "body", "b", "", "name of the body")
	cmd.Flags().StringVar(&flags.at, "at", "", "RFC3339 date")
	cmd.MarkFlagRequired("body")
	return cmd
}

type orbitFlags struct {
	body   string
	points int
}

func newOrbitCmd(global *globalFlags) *cobra.Command {
	flags := &orbitFlags{}
	cmd := &cobra.Command{
		Use:   "orbit",
		Short: "Print points along the osculating orbit of a body",
		Long: `Print one "x y z" line in AU per point along the osculating orbit of a body
at the start epoch, around its parent or the central body.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.points < 1 {
				return errors.New("at least one point is needed")
			}
			sc, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			sim, err := sc.Build(orrery.WithLogger(logger))
			if err != nil {
				return err
			}
			pts, ok := sim.OrbitPath(flags.body, flags.points)
			if !ok {
				return fmt.Errorf("%q has no orbit", flags.body)
			}
			out := cmd.OutOrStdout()
			for _, p := range pts {
				fmt.Fprintf(out, "%.9f %.9f %.9f\n", p.X/orrery.AU, p.Y/orrery.AU, p.Z/orrery.AU)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.body, "body", "b", "", "name of the body")
	cmd.Flags().IntVarP(&flags.points, "points", "p", 360, "number of points")
	cmd.MarkFlagRequired("body")
	return cmd
}
