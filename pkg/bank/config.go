package bank

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

// Config holds the immutable simulation parameters, fixed at
// construction and never tuned at runtime.
type Config struct {
	ID               string        // bank identity, used for logging
	Floors           int           // building height, floors 0..Floors-1
	Cars             int           // number of cars in the bank
	TickInterval     time.Duration // clock period driving car steps
	DoorOpenDuration time.Duration // how long doors stay open at a stop
}

// DefaultConfig returns the parameters used when no config file is
// given.
func DefaultConfig() Config {
	return Config{
		ID:               "bank-0",
		Floors:           8,
		Cars:             3,
		TickInterval:     500 * time.Millisecond,
		DoorOpenDuration: 2 * time.Second,
	}
}

func (c Config) validate() error {
	if c.Floors < 2 {
		return fmt.Errorf("invalid config: Floors (%d) must be at least 2", c.Floors)
	}
	if c.Cars < 1 {
		return fmt.Errorf("invalid config: Cars (%d) must be at least 1", c.Cars)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("invalid config: TickInterval (%v) must be positive", c.TickInterval)
	}
	if c.DoorOpenDuration <= 0 {
		return fmt.Errorf("invalid config: DoorOpenDuration (%v) must be positive", c.DoorOpenDuration)
	}
	return nil
}

// fileConfig is the on-disk YAML shape; durations are plain
// milliseconds so config files stay readable.
type fileConfig struct {
	ID     string `yaml:"id"`
	Floors int    `yaml:"floors"`
	Cars   int    `yaml:"cars"`
	TickMs int    `yaml:"tickMs"`
	DoorMs int    `yaml:"doorMs"`
}

// LoadConfig reads a YAML config file. Fields left unset keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	if err := yaml.NewDecoder(file).Decode(&fc); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	if fc.ID != "" {
		cfg.ID = fc.ID
	}
	if fc.Floors != 0 {
		cfg.Floors = fc.Floors
	}
	if fc.Cars != 0 {
		cfg.Cars = fc.Cars
	}
	if fc.TickMs != 0 {
		cfg.TickInterval = time.Duration(fc.TickMs) * time.Millisecond
	}
	if fc.DoorMs != 0 {
		cfg.DoorOpenDuration = time.Duration(fc.DoorMs) * time.Millisecond
	}
	return cfg, nil
}
