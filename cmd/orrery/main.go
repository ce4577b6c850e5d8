package main

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/spf13/cobra"

	"github.com/orrery-sim/orrery"
)

const appName = "orrery"

// globalFlags are shared by every command.
type globalFlags struct {
	config   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   appName,
		Short: "N-body orbital simulator",
		Long: `orrery integrates a set of bodies under their mutual gravitation, starting from
Keplerian elements or explicit states. Satellites may follow their parent analytically.

The scenario is read from the file set with --config, or else from orrery.yaml (or .toml)
in the directory named by the ` + orrery.ConfigDirEnv + ` environment variable.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "scenario file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error, none)")
	root.AddCommand(newRunCmd(flags), newStateCmd(flags), newOrbitCmd(flags))
	return root
}

// load reads the scenario and returns it with a logger writing to the command error output.
func (f *globalFlags) load(cmd *cobra.Command) (*orrery.Scenario, kitlog.Logger, error) {
	v, err := orrery.LoadConfig(f.config)
	if err != nil {
		return nil, nil, err
	}
	if err := v.BindPFlag("log.level", cmd.Flag("log-level")); err != nil {
		return nil, nil, err
	}
	sc, err := orrery.ScenarioFromViper(v)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid scenario: %w", err)
	}
	logger := orrery.NewLogger(cmd.ErrOrStderr(), sc.LogLevel)
	logger = kitlog.With(logger, "scenario", sc.Name)
	return sc, logger, nil
}

// centerName returns the name of the central body of the scenario, if any.
func centerName(sc *orrery.Scenario) string {
	for _, body := range sc.Bodies {
		if body.Center {
			return body.Name
		}
	}
	return ""
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
