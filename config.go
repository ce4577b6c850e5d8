package orrery

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

// ConfigDirEnv is the environment variable naming the directory of the default configuration file.
const ConfigDirEnv = "ORRERY_CONFIG"

// SimulationConfig drives a Simulation.
type SimulationConfig struct {
	TimeStep           float64 // Seconds per step, may be negative.
	TimeScale          float64 // Multiplier of TimeStep, may be negative.
	Method             Method
	Perturbations      bool    // Compute all mutual attractions instead of central attraction only.
	IntegrateCenter    bool    // Let the central body move; only effective with Perturbations.
	AnalyticSatellites bool    // Override satellites with their analytic state after each step.
	StartEpoch         float64 // Julian date of the zero elapsed time.
}

// DefaultConfig returns one hour RK4 steps with perturbations, starting at J2000.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		TimeStep:           3600,
		TimeScale:          1,
		Method:             RK4,
		Perturbations:      true,
		IntegrateCenter:    false,
		AnalyticSatellites: true,
		StartEpoch:         J2000,
	}
}

// Dt returns the signed effective step in seconds.
func (c SimulationConfig) Dt() float64 {
	return c.TimeStep * c.TimeScale
}

// Validate returns an error wrapping ErrInvalidConfig if the configuration cannot be used.
func (c SimulationConfig) Validate() error {
	switch {
	case c.TimeStep == 0 || math.IsNaN(c.TimeStep) || math.IsInf(c.TimeStep, 0):
		return fmt.Errorf("%w: time step of %g s", ErrInvalidConfig, c.TimeStep)
	case c.TimeScale == 0 || math.IsNaN(c.TimeScale) || math.IsInf(c.TimeScale, 0):
		return fmt.Errorf("%w: time scale of %g", ErrInvalidConfig, c.TimeScale)
	case !c.Method.valid():
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Method)
	case math.IsNaN(c.StartEpoch) || math.IsInf(c.StartEpoch, 0):
		return fmt.Errorf("%w: start epoch %g", ErrInvalidConfig, c.StartEpoch)
	}
	return nil
}

// String implements the Stringer interface.
func (c SimulationConfig) String() string {
	return fmt.Sprintf("dt=%gs×%g %s perturbations=%t center=%t satellites=%t epoch=%.5f", c.TimeStep, c.TimeScale, c.Method, c.Perturbations, c.IntegrateCenter, c.AnalyticSatellites, c.StartEpoch)
}

func (c SimulationConfig) forceModel() ForceModel {
	return ForceModel{Perturbations: c.Perturbations, IntegrateCenter: c.IntegrateCenter}
}

// ConfigUpdate is a partial configuration: only the non nil fields are changed.
type ConfigUpdate struct {
	TimeStep           *float64
	TimeScale          *float64
	Method             *Method
	Perturbations      *bool
	IntegrateCenter    *bool
	AnalyticSatellites *bool
}

// Merge returns a copy of the configuration with the update applied.
func (c SimulationConfig) Merge(u ConfigUpdate) SimulationConfig {
	if u.TimeStep != nil {
		c.TimeStep = *u.TimeStep
	}
	if u.TimeScale != nil {
		c.TimeScale = *u.TimeScale
	}
	if u.Method != nil {
		c.Method = *u.Method
	}
	if u.Perturbations != nil {
		c.Perturbations = *u.Perturbations
	}
	if u.IntegrateCenter != nil {
		c.IntegrateCenter = *u.IntegrateCenter
	}
	if u.AnalyticSatellites != nil {
		c.AnalyticSatellites = *u.AnalyticSatellites
	}
	return c
}

// LoadConfig reads the configuration file at path. If path is empty, the file named
// orrery (yaml or toml) is looked up in the directory set by ORRERY_CONFIG.
func LoadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		dir := os.Getenv(ConfigDirEnv)
		if dir == "" {
			return nil, fmt.Errorf("environment variable `%s` is missing or empty", ConfigDirEnv)
		}
		v.SetConfigName("orrery")
		v.AddConfigPath(dir)
		path = filepath.Join(dir, "orrery")
	} else {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("simulation.time_step", def.TimeStep)
	v.SetDefault("simulation.time_scale", def.TimeScale)
	v.SetDefault("simulation.method", def.Method.String())
	v.SetDefault("simulation.perturbations", def.Perturbations)
	v.SetDefault("simulation.integrate_center", def.IntegrateCenter)
	v.SetDefault("simulation.analytic_satellites", def.AnalyticSatellites)
	v.SetDefault("simulation.start_epoch", def.StartEpoch)
	v.SetDefault("log.level", "info")
}

// ConfigFromViper returns the simulation configuration held under the simulation key.
func ConfigFromViper(v *viper.Viper) (SimulationConfig, error) {
	var (
		cfg SimulationConfig
		err error
	)
	if cfg.TimeStep, err = seconds(v.Get("simulation.time_step")); err != nil {
		return cfg, fmt.Errorf("%w: simulation.time_step: %s", ErrInvalidConfig, err)
	}
	cfg.TimeScale = v.GetFloat64("simulation.time_scale")
	if cfg.Method, err = ParseMethod(v.GetString("simulation.method")); err != nil {
		return cfg, fmt.Errorf("%w: simulation.method: %s", ErrInvalidConfig, err)
	}
	cfg.Perturbations = v.GetBool("simulation.perturbations")
	cfg.IntegrateCenter = v.GetBool("simulation.integrate_center")
	cfg.AnalyticSatellites = v.GetBool("simulation.analytic_satellites")
	if cfg.StartEpoch, err = julianDate(v.Get("simulation.start_epoch")); err != nil {
		return cfg, fmt.Errorf("%w: simulation.start_epoch: %s", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// seconds reads a duration string ("90m", "-1h") or a plain number of seconds.
func seconds(raw interface{}) (float64, error) {
	switch val := raw.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, err
		}
		return d.Seconds(), nil
	case time.Duration:
		return val.Seconds(), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	}
	return 0, fmt.Errorf("unsupported value %v", raw)
}

// julianDate reads an RFC3339 date or a plain Julian date.
func julianDate(raw interface{}) (float64, error) {
	switch val := raw.(type) {
	case string:
		dt, err := time.Parse(time.RFC3339, strings.TrimSpace(val))
		if err != nil {
			return 0, err
		}
		return julian.TimeToJD(dt), nil
	case time.Time:
		return julian.TimeToJD(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	}
	return 0, fmt.Errorf("unsupported value %v", raw)
}
