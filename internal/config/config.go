package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"perc-downscale/internal/downscale"
	"perc-downscale/internal/imageio"
	"perc-downscale/internal/postprocess"
)

// Config holds all downscale and batch settings.
type Config struct {
	// Algorithm
	Factor       int    `json:"factor"`
	GammaCorrect *bool  `json:"gamma_correct"`
	Tileable     bool   `json:"tileable"`
	Method       string `json:"method"`

	// Output
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
	Manifest  string `json:"manifest"`

	// Execution
	Workers  int  `json:"workers"`
	Parallel bool `json:"parallel_channels"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Pointer fields are nil when the flag was not given.
type Flags struct {
	Factor       int
	GammaCorrect *bool
	Tileable     *bool
	Method       string
	Format       string
	OutputDir    string
	Workers      int
	Parallel     *bool

	// OutputPath is the single-image output file, used to infer Format.
	OutputPath string
}

// Resolve applies flags over the file values, then fills defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Factor != 0 {
		c.Factor = flags.Factor
	}
	if flags.GammaCorrect != nil {
		c.GammaCorrect = flags.GammaCorrect
	}
	if flags.Tileable != nil {
		c.Tileable = *flags.Tileable
	}
	if flags.Method != "" {
		c.Method = flags.Method
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Parallel != nil {
		c.Parallel = *flags.Parallel
	}

	// Defaults
	if c.GammaCorrect == nil {
		on := true
		c.GammaCorrect = &on
	}
	if c.Method == "" {
		c.Method = string(postprocess.Perceptual)
	}
	if c.Format == "" {
		if flags.OutputPath != "" {
			c.Format = string(imageio.FormatFromPath(flags.OutputPath))
		} else {
			c.Format = string(imageio.FormatPNG)
		}
	}
	if c.Manifest == "" && c.OutputDir != "" {
		c.Manifest = filepath.Join(c.OutputDir, "manifest.json")
	} else if c.Manifest != "" && c.OutputDir != "" && !filepath.IsAbs(c.Manifest) {
		c.Manifest = filepath.Join(c.OutputDir, c.Manifest)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate reports settings no run can proceed with.
func (c Config) Validate() error {
	var errs []error
	if c.Factor < 2 {
		errs = append(errs, fmt.Errorf("config: invalid downscaling factor %d (need an integer >= 2)", c.Factor))
	}
	if _, err := postprocess.ParseMethod(c.Method); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if _, err := imageio.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// Gamma reports whether color conversion runs in linear light.
func (c Config) Gamma() bool {
	return c.GammaCorrect == nil || *c.GammaCorrect
}

// Options returns the downscale options described by c.
func (c Config) Options() downscale.Options {
	return downscale.Options{
		Factor:       c.Factor,
		GammaCorrect: c.Gamma(),
		Tileable:     c.Tileable,
		Parallel:     c.Parallel,
	}
}

// MethodValue returns the parsed method; call Validate first.
func (c Config) MethodValue() postprocess.Method {
	m, _ := postprocess.ParseMethod(c.Method)
	return m
}

// FormatValue returns the parsed output format; call Validate first.
func (c Config) FormatValue() imageio.Format {
	f, _ := imageio.ParseFormat(c.Format)
	return f
}
