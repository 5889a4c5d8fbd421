package config

import (
	"fmt"
	"os"

	"github.com/notargets/DGMaxwell/element"
	"gopkg.in/yaml.v3"
)

// Operators understood by the driver
const (
	OpCurlCurl = "curlcurl"
	OpCurl     = "curl"
	OpTrace    = "trace"
	OpNitsche  = "nitsche"
	OpMaxwell  = "maxwell" // curl-curl on the cell plus Nitsche terms on every face
)

// Cell quadrature rules
const (
	RuleGauss   = "gauss"
	RuleLobatto = "lobatto"
)

// Config controls a driver run over a row of box cells
type Config struct {
	Dim        int       `yaml:"dim"`
	Degree     int       `yaml:"degree"`
	QuadPoints int       `yaml:"quad_points"` // Gauss points per direction
	Rule       string    `yaml:"rule"`        // cell quadrature: gauss or lobatto
	Operator   string    `yaml:"operator"`
	Factor     float64   `yaml:"factor"`
	Penalty    float64   `yaml:"penalty"`
	Cells      int       `yaml:"cells"`
	Workers    int       `yaml:"workers"`
	Lower      []float64 `yaml:"lower"` // first cell corner
	Upper      []float64 `yaml:"upper"` // first cell opposite corner
	LogLevel   string    `yaml:"log_level"`
}

// Default returns a single 2D unit-square cell with linear vector fields
func Default() Config {
	return Config{
		Dim:        2,
		Degree:     1,
		QuadPoints: 2,
		Rule:       RuleGauss,
		Operator:   OpCurlCurl,
		Factor:     1.0,
		Penalty:    10.0,
		Cells:      1,
		Workers:    4,
		LogLevel:   "info",
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize fills the cell box with the unit box when it is not given. An
// unsupported dimension or a partial box is left for Validate to reject.
func (c *Config) Normalize() {
	if element.Check(c.Dim) != nil {
		return
	}
	if len(c.Lower) == 0 {
		c.Lower = make([]float64, c.Dim)
	}
	if len(c.Upper) == 0 && len(c.Lower) == c.Dim {
		c.Upper = make([]float64, c.Dim)
		for d := range c.Upper {
			c.Upper[d] = c.Lower[d] + 1
		}
	}
}

func (c Config) Validate() error {
	if err := element.Check(c.Dim); err != nil {
		return err
	}
	switch c.Operator {
	case OpCurlCurl, OpCurl, OpTrace, OpNitsche, OpMaxwell:
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	if c.Degree < 0 {
		return fmt.Errorf("degree must be non-negative, got %d", c.Degree)
	}
	if c.QuadPoints < 1 {
		return fmt.Errorf("quad_points must be positive, got %d", c.QuadPoints)
	}
	switch c.Rule {
	case RuleGauss:
	case RuleLobatto:
		if c.QuadPoints < 2 {
			return fmt.Errorf("lobatto rule needs at least 2 quad_points, got %d", c.QuadPoints)
		}
	default:
		return fmt.Errorf("unknown quadrature rule %q", c.Rule)
	}
	if c.Cells < 1 {
		return fmt.Errorf("cells must be positive, got %d", c.Cells)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if len(c.Lower) != c.Dim || len(c.Upper) != c.Dim {
		return fmt.Errorf("box corners have %d and %d coordinates, expected %d: %w",
			len(c.Lower), len(c.Upper), c.Dim, element.ErrDimensionMismatch)
	}
	for d := 0; d < c.Dim; d++ {
		if c.Upper[d] <= c.Lower[d] {
			return fmt.Errorf("empty box in direction %d: [%g, %g]", d, c.Lower[d], c.Upper[d])
		}
	}
	return nil
}
