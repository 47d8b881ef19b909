package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Output.Format != "jpg" {
		t.Errorf("Expected default format jpg, got %s", cfg.Output.Format)
	}
	if cfg.Cropper.ExpandRatio != 0 {
		t.Errorf("Expected default expand ratio 0, got %f", cfg.Cropper.ExpandRatio)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unsupported format", func(c *Config) { c.Output.Format = "heic" }},
		{"quality too low", func(c *Config) { c.Output.Quality = 0 }},
		{"quality too high", func(c *Config) { c.Output.Quality = 101 }},
		{"empty output dir", func(c *Config) { c.Output.OutputDir = "" }},
		{"base name with separator", func(c *Config) { c.Output.BaseName = "a/b" }},
		{"NaN expand ratio", func(c *Config) { c.Cropper.ExpandRatio = math.NaN() }},
		{"infinite expand ratio", func(c *Config) { c.Cropper.ExpandRatio = math.Inf(1) }},
		{"bad debug format", func(c *Config) { c.Debug.Overlay = true; c.Debug.Format = "svg" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Cropper.ExpandRatio = 0.15
	cfg.Output.Format = "png"
	cfg.Output.BaseName = "front"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("Loaded config %+v differs from saved %+v", *loaded, *cfg)
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"cropper":{"expand_ratio":0.5}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Cropper.ExpandRatio != 0.5 {
		t.Errorf("Expected expand ratio 0.5, got %f", cfg.Cropper.ExpandRatio)
	}
	if cfg.Output.Quality != 90 {
		t.Errorf("Expected default quality 90, got %d", cfg.Output.Quality)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("IDCROP_EXPAND_RATIO", "0.25")
	t.Setenv("IDCROP_FORMAT", "webp")
	t.Setenv("IDCROP_LOSSLESS", "true")

	cfg := Default()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.Cropper.ExpandRatio != 0.25 {
		t.Errorf("Expected expand ratio 0.25, got %f", cfg.Cropper.ExpandRatio)
	}
	if cfg.Output.Format != "webp" {
		t.Errorf("Expected format webp, got %s", cfg.Output.Format)
	}
	if !cfg.Output.Lossless {
		t.Error("Expected lossless to be true")
	}
	if cfg.Output.Quality != 90 {
		t.Errorf("Quality should keep its default, got %d", cfg.Output.Quality)
	}
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("IDCROP_QUALITY=70\nIDCROP_BASE_NAME=back\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set
	t.Setenv("IDCROP_QUALITY", "")
	t.Setenv("IDCROP_BASE_NAME", "")
	os.Unsetenv("IDCROP_QUALITY")
	os.Unsetenv("IDCROP_BASE_NAME")

	cfg := Default()
	if err := cfg.LoadEnv(envFile); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if cfg.Output.Quality != 70 {
		t.Errorf("Expected quality 70, got %d", cfg.Output.Quality)
	}
	if cfg.Output.BaseName != "back" {
		t.Errorf("Expected base name back, got %q", cfg.Output.BaseName)
	}
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("IDCROP_QUALITY", "high")

	cfg := Default()
	if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("Expected error for non-numeric quality")
	}
}

func TestLoadEnvNonFiniteRatioFailsValidation(t *testing.T) {
	for _, value := range []string{"NaN", "Inf", "-Inf"} {
		t.Setenv("IDCROP_EXPAND_RATIO", value)

		cfg := Default()
		if err := cfg.LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Fatalf("LoadEnv(%s) failed: %v", value, err)
		}
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for IDCROP_EXPAND_RATIO=%s", value)
		}
	}
}

func TestNormalizeSanitizesBaseName(t *testing.T) {
	cfg := Default()
	cfg.Output.BaseName = " scans/front:side. "
	cfg.Normalize()

	if cfg.Output.BaseName != "scans_front_side" {
		t.Errorf("Expected scans_front_side, got %q", cfg.Output.BaseName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Normalized config should be valid: %v", err)
	}
}
