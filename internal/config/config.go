// Package config loads docscan settings from defaults, an optional YAML file
// and DOCSCAN_ environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/docscan-mcp/internal/rectify"
	"github.com/ironsheep/docscan-mcp/internal/vision"
)

// EnvPrefix prefixes every environment override, e.g.
// DOCSCAN_DETECTION_ANGLE_TOLERANCE.
const EnvPrefix = "DOCSCAN"

// EnvConfigFile names the variable consulted when no config path is given.
const EnvConfigFile = EnvPrefix + "_CONFIG"

// Config is the complete runtime configuration.
type Config struct {
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection"`
	Edges     EdgesConfig     `mapstructure:"edges" yaml:"edges"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Fallback  FallbackConfig  `mapstructure:"fallback" yaml:"fallback"`
	Vision    VisionConfig    `mapstructure:"vision" yaml:"vision"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
}

// DetectionConfig holds the shape tolerances.
type DetectionConfig struct {
	AngleTolerance    float64 `mapstructure:"angle_tolerance" yaml:"angle_tolerance"`
	LengthTolerance   float64 `mapstructure:"length_tolerance" yaml:"length_tolerance"`
	PolyTolerance     float64 `mapstructure:"poly_tolerance" yaml:"poly_tolerance"`
	InnerBorderWindow int     `mapstructure:"inner_border_window" yaml:"inner_border_window"`
}

// EdgesConfig holds the Canny settings.
type EdgesConfig struct {
	Low      int `mapstructure:"low" yaml:"low"`
	High     int `mapstructure:"high" yaml:"high"`
	Aperture int `mapstructure:"aperture" yaml:"aperture"`
}

// OutputConfig shapes the rectified page and its overlay.
type OutputConfig struct {
	ThresholdBlockSize int     `mapstructure:"threshold_block_size" yaml:"threshold_block_size"`
	ThresholdConstant  float64 `mapstructure:"threshold_constant" yaml:"threshold_constant"`
	AspectRatio        float64 `mapstructure:"aspect_ratio" yaml:"aspect_ratio"`
	CropRatio          float64 `mapstructure:"crop_ratio" yaml:"crop_ratio"`
	OverlayColor       string  `mapstructure:"overlay_color" yaml:"overlay_color"`
	OverlayThickness   int     `mapstructure:"overlay_thickness" yaml:"overlay_thickness"`
}

// FallbackConfig bounds how many smaller rectangles the fallback tier tries
// once the largest one is rejected.
type FallbackConfig struct {
	Retries int `mapstructure:"retries" yaml:"retries"`
}

// VisionConfig picks the image backend by name.
type VisionConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set.
type MetricsConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// BatchConfig bounds batch parallelism. Zero means one run per CPU.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// Load reads configuration. path may be empty, in which case DOCSCAN_CONFIG
// is consulted and, failing that, only defaults and environment apply. A
// named file that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := rectify.DefaultConfig()

	v.SetDefault("detection.angle_tolerance", d.AngleTolerance)
	v.SetDefault("detection.length_tolerance", d.LengthTolerance)
	v.SetDefault("detection.poly_tolerance", d.PolyTolerance)
	v.SetDefault("detection.inner_border_window", d.InnerBorderWindow)

	v.SetDefault("edges.low", d.EdgeLow)
	v.SetDefault("edges.high", d.EdgeHigh)
	v.SetDefault("edges.aperture", d.EdgeAperture)

	v.SetDefault("output.threshold_block_size", d.ThresholdBlockSize)
	v.SetDefault("output.threshold_constant", d.ThresholdConstant)
	v.SetDefault("output.aspect_ratio", d.AspectRatio)
	v.SetDefault("output.crop_ratio", d.CropRatio)
	v.SetDefault("output.overlay_color", d.OverlayColor)
	v.SetDefault("output.overlay_thickness", d.OverlayThickness)

	v.SetDefault("fallback.retries", d.FallbackRetries)
	v.SetDefault("vision.backend", vision.NativeName)
	v.SetDefault("metrics.address", "")
	v.SetDefault("batch.concurrency", 0)
}

// Validate checks the pipeline settings and the service settings.
func (c *Config) Validate() error {
	if err := c.Pipeline().Validate(); err != nil {
		return err
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("%w: negative batch concurrency %d", rectify.ErrInvalidConfig, c.Batch.Concurrency)
	}
	return nil
}

// Pipeline returns the rectify configuration described by c.
func (c *Config) Pipeline() rectify.Config {
	return rectify.Config{
		AngleTolerance:     c.Detection.AngleTolerance,
		LengthTolerance:    c.Detection.LengthTolerance,
		PolyTolerance:      c.Detection.PolyTolerance,
		InnerBorderWindow:  c.Detection.InnerBorderWindow,
		EdgeLow:            c.Edges.Low,
		EdgeHigh:           c.Edges.High,
		EdgeAperture:       c.Edges.Aperture,
		ThresholdBlockSize: c.Output.ThresholdBlockSize,
		ThresholdConstant:  c.Output.ThresholdConstant,
		AspectRatio:        c.Output.AspectRatio,
		CropRatio:          c.Output.CropRatio,
		OverlayColor:       c.Output.OverlayColor,
		OverlayThickness:   c.Output.OverlayThickness,
		FallbackRetries:    c.Fallback.Retries,
	}
}

// YAML renders the effective configuration in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
