package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither flags, env, nor a config file provide a value.
const (
	DefaultInputPath       = "discount_sales_data.csv"
	DefaultOutputImagePath = "discount_sales_analysis.png"
	DefaultThreshold       = 0.05
	DefaultHeadRows        = 5
	DefaultDPI             = 300
	DefaultLanguage        = "en"
)

// Global configuration structure.
type Global struct {
	InputPath             string  `mapstructure:"input_path" yaml:"input_path"`
	OutputImagePath       string  `mapstructure:"output_image_path" yaml:"output_image_path"`
	SignificanceThreshold float64 `mapstructure:"significance_threshold" yaml:"significance_threshold"`

	// Column headers for the three required fields. Empty values fall back
	// to the built-in aliases.
	FieldDiscountRate string `mapstructure:"field_discount_rate" yaml:"field_discount_rate"`
	FieldSalesAmount  string `mapstructure:"field_sales_amount" yaml:"field_sales_amount"`
	FieldCategory     string `mapstructure:"field_category" yaml:"field_category"`

	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`
	HeadRows  int    `mapstructure:"head_rows" yaml:"head_rows"`

	// Presentation
	Language      string  `mapstructure:"language" yaml:"language"`
	DPI           int     `mapstructure:"dpi" yaml:"dpi"`
	ImageWidthIn  float64 `mapstructure:"image_width_in" yaml:"image_width_in"`
	ImageHeightIn float64 `mapstructure:"image_height_in" yaml:"image_height_in"`
	FontFile      string  `mapstructure:"font_file" yaml:"font_file"`
}

// Defaults returns the configuration used when nothing was loaded.
func Defaults() *Global {
	return &Global{
		InputPath:             DefaultInputPath,
		OutputImagePath:       DefaultOutputImagePath,
		SignificanceThreshold: DefaultThreshold,
		HeadRows:              DefaultHeadRows,
		Language:              DefaultLanguage,
		DPI:                   DefaultDPI,
		ImageWidthIn:          15,
		ImageHeightIn:         12,
	}
}

// Validate rejects values the analysis cannot run with.
func (c *Global) Validate() error {
	if c.SignificanceThreshold <= 0 || c.SignificanceThreshold >= 1 {
		return fmt.Errorf("significance_threshold must be in (0,1), got %v", c.SignificanceThreshold)
	}
	if c.HeadRows < 0 {
		return fmt.Errorf("head_rows must be >= 0, got %d", c.HeadRows)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be > 0, got %d", c.DPI)
	}
	if c.ImageWidthIn <= 0 || c.ImageHeightIn <= 0 {
		return fmt.Errorf("image size must be positive, got %vx%v in", c.ImageWidthIn, c.ImageHeightIn)
	}
	switch c.Language {
	case "en", "ko":
	default:
		return fmt.Errorf("invalid language: %s (use en or ko)", c.Language)
	}
	return nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".discountlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.discountlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command-line flags are applied
// on top by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DISCOUNTLENS")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("input_path", d.InputPath)
	v.SetDefault("output_image_path", d.OutputImagePath)
	v.SetDefault("significance_threshold", d.SignificanceThreshold)
	v.SetDefault("field_discount_rate", "")
	v.SetDefault("field_sales_amount", "")
	v.SetDefault("field_category", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet", "")
	v.SetDefault("head_rows", d.HeadRows)
	v.SetDefault("language", d.Language)
	v.SetDefault("dpi", d.DPI)
	v.SetDefault("image_width_in", d.ImageWidthIn)
	v.SetDefault("image_height_in", d.ImageHeightIn)
	v.SetDefault("font_file", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
