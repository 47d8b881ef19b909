package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/menta2k/id-cropper/internal/utils"
)

// Config holds the application configuration
type Config struct {
	Cropper CropperConfig `json:"cropper"`
	Output  OutputConfig  `json:"output"`
	Debug   DebugConfig   `json:"debug"`
}

// CropperConfig holds configuration for box cropping
type CropperConfig struct {
	ExpandRatio float64 `json:"expand_ratio"`
}

// OutputConfig holds configuration for written crops
type OutputConfig struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
	BaseName  string `json:"base_name"`
	Quality   int    `json:"quality"`
	Lossless  bool   `json:"lossless"`
}

// DebugConfig holds configuration for the box overlay image
type DebugConfig struct {
	Overlay bool   `json:"overlay"`
	Format  string `json:"format"`
}

// SupportedFormats lists the output formats crops can be written in
var SupportedFormats = []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp"}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Cropper: CropperConfig{
			ExpandRatio: 0,
		},
		Output: OutputConfig{
			Format:    "jpg",
			OutputDir: "./crops",
			Quality:   90,
		},
		Debug: DebugConfig{
			Overlay: false,
			Format:  "png",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads an optional .env file and applies IDCROP_* environment
// variables on top of c. Unparseable values are reported as errors.
func (c *Config) LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	var err error
	if c.Cropper.ExpandRatio, err = getEnvAsFloat("IDCROP_EXPAND_RATIO", c.Cropper.ExpandRatio); err != nil {
		return err
	}
	c.Output.Format = getEnv("IDCROP_FORMAT", c.Output.Format)
	c.Output.OutputDir = getEnv("IDCROP_OUTPUT_DIR", c.Output.OutputDir)
	c.Output.BaseName = getEnv("IDCROP_BASE_NAME", c.Output.BaseName)
	if c.Output.Quality, err = getEnvAsInt("IDCROP_QUALITY", c.Output.Quality); err != nil {
		return err
	}
	if c.Output.Lossless, err = getEnvAsBool("IDCROP_LOSSLESS", c.Output.Lossless); err != nil {
		return err
	}
	if c.Debug.Overlay, err = getEnvAsBool("IDCROP_DEBUG", c.Debug.Overlay); err != nil {
		return err
	}
	c.Debug.Format = getEnv("IDCROP_DEBUG_FORMAT", c.Debug.Format)
	return nil
}

// Normalize replaces characters that cannot appear in file names in the
// output base name
func (c *Config) Normalize() {
	c.Output.BaseName = utils.SanitizeFilename(c.Output.BaseName)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if math.IsNaN(c.Cropper.ExpandRatio) || math.IsInf(c.Cropper.ExpandRatio, 0) {
		return fmt.Errorf("cropper.expand_ratio must be a finite number")
	}

	if !isSupportedFormat(c.Output.Format) {
		return fmt.Errorf("output.format %q is not supported", c.Output.Format)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Output.OutputDir == "" {
		return fmt.Errorf("output.output_dir cannot be empty")
	}

	if strings.ContainsAny(c.Output.BaseName, `/\`) {
		return fmt.Errorf("output.base_name must not contain path separators")
	}

	if c.Debug.Overlay && !isSupportedFormat(c.Debug.Format) {
		return fmt.Errorf("debug.format %q is not supported", c.Debug.Format)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "id-cropper", "config.json")
}

func isSupportedFormat(format string) bool {
	for _, f := range SupportedFormats {
		if strings.EqualFold(format, f) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultVal, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultVal float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvAsBool(key string, defaultVal bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
