package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	fileName = "nightwatch.yaml"

	BackendPlugin = "plugin"
	BackendHTTP   = "http"
)

type Config struct {
	DataDir    string           `yaml:"-"`
	DBPath     string           `yaml:"db_path"`
	Log        LogConfig        `yaml:"log"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Capture    CaptureConfig    `yaml:"capture"`
	Overlay    OverlayConfig    `yaml:"overlay"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ClassifierConfig selects how screenshots are classified: through a local
// plugin binary registered in <data>/plugins/classifiers.yaml, or through an HTTP
// flow endpoint.
type ClassifierConfig struct {
	Backend  string `yaml:"backend"`
	Plugin   string `yaml:"plugin"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// CaptureConfig holds either a command that writes an image to stdout or a
// file that is re-read on every capture.
type CaptureConfig struct {
	Command []string `yaml:"command"`
	File    string   `yaml:"file"`
	MIME    string   `yaml:"mime"`
}

type OverlayConfig struct {
	Listen string `yaml:"listen"`
}

// New builds the configuration rooted at dataDir. Values come from defaults,
// then <dataDir>/nightwatch.yaml if present, then NIGHTWATCH_* environment
// variables (a .env file in the working directory is loaded first).
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Default(dataDir)

	raw, err := os.ReadFile(filepath.Join(dataDir, fileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", fileName, err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("read %s: %w", fileName, err)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	cfg.DataDir = dataDir
	if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(dataDir, cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		DBPath:  "nightwatch.db",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Classifier: ClassifierConfig{
			Backend: BackendPlugin,
			Plugin:  "replay",
		},
		Capture: CaptureConfig{MIME: "image/png"},
		Overlay: OverlayConfig{Listen: "127.0.0.1:9002"},
	}
}

func (c Config) Validate() error {
	switch c.Classifier.Backend {
	case BackendPlugin:
		if c.Classifier.Plugin == "" {
			return fmt.Errorf("classifier plugin name is required for backend %q", BackendPlugin)
		}
	case BackendHTTP:
		if c.Classifier.Endpoint == "" {
			return fmt.Errorf("classifier endpoint is required for backend %q", BackendHTTP)
		}
	default:
		return fmt.Errorf("unknown classifier backend: %q", c.Classifier.Backend)
	}
	if len(c.Capture.Command) > 0 && c.Capture.File != "" {
		return fmt.Errorf("capture command and capture file are mutually exclusive")
	}
	return nil
}

// PluginDir is where classifier plugin manifests live.
func (c Config) PluginDir() string {
	return c.DataDir
}

// LogFilePath resolves the log file relative to the data dir.
func (c Config) LogFilePath() string {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, c.Log.File)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("NIGHTWATCH_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv("NIGHTWATCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("NIGHTWATCH_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("NIGHTWATCH_LOG_MAX_SIZE_MB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NIGHTWATCH_LOG_MAX_SIZE_MB: %w", err)
		}
		c.Log.MaxSizeMB = n
	}
	if v := getenv("NIGHTWATCH_CLASSIFIER_BACKEND"); v != "" {
		c.Classifier.Backend = v
	}
	if v := getenv("NIGHTWATCH_CLASSIFIER_PLUGIN"); v != "" {
		c.Classifier.Plugin = v
	}
	if v := getenv("NIGHTWATCH_CLASSIFIER_ENDPOINT"); v != "" {
		c.Classifier.Endpoint = v
	}
	if v := getenv("NIGHTWATCH_CLASSIFIER_API_KEY"); v != "" {
		c.Classifier.APIKey = v
	}
	if v := getenv("NIGHTWATCH_CAPTURE_COMMAND"); v != "" {
		c.Capture.Command = strings.Fields(v)
	}
	if v := getenv("NIGHTWATCH_CAPTURE_FILE"); v != "" {
		c.Capture.File = v
	}
	if v := getenv("NIGHTWATCH_OVERLAY_LISTEN"); v != "" {
		c.Overlay.Listen = v
	}
	return nil
}
