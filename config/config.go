// Package config holds the settings of an analysis and loads them from .env
// files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "MILBUS_"

// DefaultEnvFile is read by Load when no file is given. It may be missing.
const DefaultEnvFile = ".env"

// Config holds the settings of an analysis run.
type Config struct {
	BusController   string
	LinkSpeed       float64
	MaxIterations   int
	HorizonFactor   float64
	NumWorkers      int
	OmitPriority    bool
	DBPath          string
	TraceIterations bool
}

// Default returns the default settings.
func Default() Config {
	return Config{
		BusController: bus.DefaultBusController,
		LinkSpeed:     1,
		MaxIterations: analysis.DefaultMaxIterations,
		HorizonFactor: analysis.DefaultHorizonFactor,
		NumWorkers:    runtime.NumCPU(),
		OmitPriority:  true,
	}
}

// Load returns the default settings overridden by the given .env files and
// then by MILBUS_* environment variables. Without files, DefaultEnvFile is
// used if it exists.
func Load(envFiles ...string) (Config, error) {
	cfg := Default()

	values, err := readEnvFiles(envFiles)
	if err != nil {
		return cfg, err
	}

	err = cfg.apply(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}

		v, ok := values[EnvPrefix+key]

		return v, ok
	})
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func readEnvFiles(envFiles []string) (map[string]string, error) {
	if len(envFiles) == 0 {
		values, err := godotenv.Read(DefaultEnvFile)
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}

		if err == nil {
			slog.Debug("loaded settings", "file", DefaultEnvFile)
		}

		return values, err
	}

	values, err := godotenv.Read(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("reading env files: %w", err)
	}

	return values, nil
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}

			*dst = f
		}
	}

	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}

			*dst = i
		}
	}

	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}

			*dst = b
		}
	}

	str("BUS_CONTROLLER", &c.BusController)
	float("LINK_SPEED", &c.LinkSpeed)
	integer("MAX_ITERATIONS", &c.MaxIterations)
	float("HORIZON_FACTOR", &c.HorizonFactor)
	integer("NUM_WORKERS", &c.NumWorkers)
	boolean("OMIT_PRIORITY", &c.OmitPriority)
	str("DB", &c.DBPath)
	boolean("TRACE_ITERATIONS", &c.TraceIterations)

	return errors.Join(errs...)
}

// ErrInvalidConfig is wrapped by the errors returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate reports every setting that cannot be used to build an analyzer.
func (c Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs,
			fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if strings.TrimSpace(c.BusController) == "" {
		invalid("bus controller is empty")
	}

	if !(c.LinkSpeed > 0) {
		invalid("link speed %g is not positive", c.LinkSpeed)
	}

	if c.MaxIterations < 1 {
		invalid("max iterations %d is less than 1", c.MaxIterations)
	}

	if !(c.HorizonFactor >= 1) {
		invalid("horizon factor %g is less than 1", c.HorizonFactor)
	}

	if c.NumWorkers < 1 {
		invalid("number of workers %d is less than 1", c.NumWorkers)
	}

	return errors.Join(errs...)
}

// AnalyzerBuilder returns an analyzer builder configured with the settings.
func (c Config) AnalyzerBuilder() analysis.AnalyzerBuilder {
	return analysis.MakeAnalyzerBuilder().
		WithBusController(c.BusController).
		WithLinkSpeed(c.LinkSpeed).
		WithMaxIterations(c.MaxIterations).
		WithHorizonFactor(c.HorizonFactor).
		WithNumWorkers(c.NumWorkers)
}
