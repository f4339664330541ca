package universe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quotientlab/groundtrace/internal/sig"
)

// Config carries the universe bounds, the signature scheme version, and
// the certified constants the built universe is checked against. Bounds
// are versioned configuration rather than hardwired constants so the
// certification self-check keeps its meaning if a deployment ever changes
// them: new bounds require new certified constants in the same file.
type Config struct {
	MinDen int64 `yaml:"min_den"`
	MaxDen int64 `yaml:"max_den"`
	MinNum int64 `yaml:"min_num"`
	MaxNum int64 `yaml:"max_num"`

	// SigVersion pins the predicate list this config was certified
	// against. A binary with a different sig.Version refuses to start.
	SigVersion int `yaml:"sig_version"`

	Certified Certified `yaml:"certified"`
}

// Certified holds the constants validated at build time.
type Certified struct {
	// Size is the exact element count of the enumerated universe.
	Size int `yaml:"size"`
	// Max is the largest element, as "a/b".
	Max string `yaml:"max"`
	// Classes is the number of realized signature classes.
	Classes int `yaml:"classes"`
}

// Default returns the deployment-default QE configuration:
// denominators in [1,200], numerators in [-200,200].
func Default() Config {
	return Config{
		MinDen:     1,
		MaxDen:     200,
		MinNum:     -200,
		MaxNum:     200,
		SigVersion: sig.Version,
		Certified: Certified{
			Size:    48927,
			Max:     "200/1",
			Classes: 55,
		},
	}
}

// Load reads a Config from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load universe config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("load universe config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("universe config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural requirements on the bounds. Certification
// against the built universe happens in Build, not here.
func (c Config) Validate() error {
	if c.MinDen < 1 {
		return fmt.Errorf("min_den must be >= 1, got %d", c.MinDen)
	}
	if c.MaxDen < c.MinDen {
		return fmt.Errorf("max_den (%d) must be >= min_den (%d)", c.MaxDen, c.MinDen)
	}
	if c.MinNum > c.MaxNum {
		return fmt.Errorf("min_num (%d) must be <= max_num (%d)", c.MinNum, c.MaxNum)
	}
	if c.SigVersion != sig.Version {
		return fmt.Errorf("config certified for signature version %d, binary implements %d",
			c.SigVersion, sig.Version)
	}
	if c.Certified.Size <= 0 {
		return fmt.Errorf("certified size must be positive, got %d", c.Certified.Size)
	}
	if c.Certified.Classes <= 0 {
		return fmt.Errorf("certified class count must be positive, got %d", c.Certified.Classes)
	}
	return nil
}
