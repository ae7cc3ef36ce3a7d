package andersen

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// FieldSensitive distinguishes the fields of an abstract object. When
	// false every field of an object shares a single heap cell.
	FieldSensitive bool `yaml:"field_sensitive"`

	// MaxIterations bounds the number of worklist pops. Zero derives the bound
	// from the number of constraints, see IterationCeiling.
	MaxIterations int `yaml:"max_iterations"`

	// EnableSCC collapses cycles of copy constraints before solving.
	EnableSCC bool `yaml:"enable_scc"`

	// EnableWave drains the worklist in topological order of the collapsed
	// copy graph. It has no effect unless EnableSCC is set.
	EnableWave bool `yaml:"enable_wave"`

	// EnableParallel seeds allocation constraints on several goroutines once
	// there are at least ParallelThreshold of them.
	EnableParallel    bool `yaml:"enable_parallel"`
	ParallelThreshold int  `yaml:"parallel_threshold"`

	// Workers is the number of seeding goroutines. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	Logger logrus.FieldLogger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		FieldSensitive:    true,
		EnableSCC:         true,
		EnableWave:        true,
		ParallelThreshold: 4096,
	}
}

// LoadConfig reads a YAML document on top of DefaultConfig. Unknown keys are
// rejected. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	switch {
	case c.MaxIterations < 0:
		return fmt.Errorf("%w: max_iterations must be non-negative, got %d",
			ErrInvalidConfig, c.MaxIterations)
	case c.ParallelThreshold < 0:
		return fmt.Errorf("%w: parallel_threshold must be non-negative, got %d",
			ErrInvalidConfig, c.ParallelThreshold)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be non-negative, got %d",
			ErrInvalidConfig, c.Workers)
	}
	return nil
}

// IterationCeiling returns the worklist bound for a system of n constraints.
func (c Config) IterationCeiling(n int) int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return 10*n + 10000
}

func (c Config) waveEnabled() bool {
	return c.EnableSCC && c.EnableWave
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}
