// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// mockupWorker is the job type whose timeout bounds a pipeline run.
const mockupWorker = "generate-mockup"

// Load reads ./configs/config.yaml (plus config.{APP_ENVIRONMENT}.yaml) and
// environment overrides into a fresh viper instance.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// Unset variables expand to "" so defaults and env fallbacks still apply.
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values that deployments commonly pass as bare env vars.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Camunda.BrokerAddress == "" {
		if val := os.Getenv("ZEEBE_ADDRESS"); val != "" {
			cfg.Camunda.BrokerAddress = val
		}
	}
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}
	if cfg.Mockup.PublicBaseURL == "" {
		if val := os.Getenv("PUBLIC_BASE_URL"); val != "" {
			cfg.Mockup.PublicBaseURL = val
		}
	}
	if cfg.Mockup.RemoteEditor.BrowserBin == "" {
		if val := os.Getenv("CHROME_BIN"); val != "" {
			cfg.Mockup.RemoteEditor.BrowserBin = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mockup-workers"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8080"
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = cfg.App.Name
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 600000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	applyMockupDefaults(&cfg.Mockup)
}

func applyMockupDefaults(m *MockupConfig) {
	if m.TemplatesDir == "" {
		m.TemplatesDir = "./templates"
	}
	if len(m.TemplateExtensions) == 0 {
		m.TemplateExtensions = []string{".psd", ".png", ".jpg", ".jpeg"}
	}
	if m.DefaultTemplate == "" {
		m.DefaultTemplate = "default"
	}
	if m.WorkDir == "" {
		m.WorkDir = os.TempDir()
	}
	if m.OutputDir == "" {
		m.OutputDir = "./output"
	}
	if m.PublicPath == "" {
		m.PublicPath = "/mockups"
	}
	if len(m.LayerCandidates) == 0 {
		m.LayerCandidates = []string{"Design", "Your Design Here", "Artwork", "Placeholder"}
	}
	if len(m.AutoStrategyOrder) == 0 {
		m.AutoStrategyOrder = []string{"remoteEditor", "localDocument"}
	}
	if m.AttemptTimeout == 0 {
		m.AttemptTimeout = 180000
	}
	if m.FallbackReserve == 0 {
		m.FallbackReserve = 10000
	}

	if m.RemoteTemplates.CacheDir == "" {
		m.RemoteTemplates.CacheDir = filepath.Join(m.TemplatesDir, ".remote-cache")
	}
	if m.RemoteTemplates.DownloadTimeout == 0 {
		m.RemoteTemplates.DownloadTimeout = 30000
	}
	if m.RemoteTemplates.IndexTTL == 0 {
		m.RemoteTemplates.IndexTTL = 86400000
	}

	if m.DesignFetch.MaxAttempts == 0 {
		m.DesignFetch.MaxAttempts = 3
	}
	if m.DesignFetch.RetryDelay == 0 {
		m.DesignFetch.RetryDelay = 1000
	}
	if m.DesignFetch.Timeout == 0 {
		m.DesignFetch.Timeout = 30000
	}

	if m.Flat.MarginRatio == 0 {
		m.Flat.MarginRatio = 0.2
	}
	if m.Basic.Scale == 0 {
		m.Basic.Scale = 1.5
	}
	if m.Basic.Background == "" {
		m.Basic.Background = "#F2F2F2"
	}

	re := &m.RemoteEditor
	if re.URL == "" {
		re.URL = "https://www.photopea.com"
	}
	if re.APIGlobal == "" {
		re.APIGlobal = "app"
	}
	if re.NavigationTimeout == 0 {
		re.NavigationTimeout = 60000
	}
	if re.PollAttempts == 0 {
		re.PollAttempts = 30
	}
	if re.PollInterval == 0 {
		re.PollInterval = 1000
	}
	if re.DocumentWait == 0 {
		re.DocumentWait = 30000
	}
	if re.ExportTimeout == 0 {
		re.ExportTimeout = 30000
	}
	if re.MaxSessions == 0 {
		re.MaxSessions = 2
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Mockup.AttemptTimeout < 0 {
		return fmt.Errorf("mockup.attempt_timeout must not be negative")
	}
	if err := validateMockupBudget(cfg); err != nil {
		return err
	}
	if cfg.Mockup.Flat.MarginRatio < 0 || cfg.Mockup.Flat.MarginRatio >= 0.5 {
		return fmt.Errorf("mockup.flat.margin_ratio must be in [0, 0.5)")
	}
	if cfg.Mockup.Basic.Scale < 1 {
		return fmt.Errorf("mockup.basic.scale must be >= 1")
	}
	for _, s := range cfg.Mockup.AutoStrategyOrder {
		if s != "remoteEditor" && s != "localDocument" {
			return fmt.Errorf("mockup.auto_strategy_order: unknown strategy %q", s)
		}
	}
	if cfg.Mockup.RemoteTemplates.Enabled && cfg.Mockup.RemoteTemplates.Source == "" {
		return fmt.Errorf("mockup.remote_templates.source is required when remote templates are enabled")
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}
	return nil
}

// validateMockupBudget makes sure the generate-mockup job timeout gives every
// auto-mode strategy one full attempt and still leaves the fallback reserve.
func validateMockupBudget(cfg *Config) error {
	m := cfg.Mockup
	if m.FallbackReserve < 0 {
		return fmt.Errorf("mockup.fallback_reserve must not be negative")
	}
	wc, ok := cfg.Workers[mockupWorker]
	if !ok || wc.Timeout <= 0 {
		return nil
	}
	need := len(m.AutoStrategyOrder)*m.AttemptTimeout + m.FallbackReserve
	if wc.Timeout < need {
		return fmt.Errorf("workers.%s.timeout (%dms) must be at least %dms: %d strategies x mockup.attempt_timeout + mockup.fallback_reserve",
			mockupWorker, wc.Timeout, need, len(m.AutoStrategyOrder))
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       600000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
