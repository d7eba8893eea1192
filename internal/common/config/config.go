// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
	Mockup   MockupConfig            `mapstructure:"mockup"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the health/metrics listener of the worker manager.
type MetricsConfig struct {
	Address     string `mapstructure:"address"`
	ServiceName string `mapstructure:"service_name"`
}

// --- Mockup Pipeline Configuration ---

// MockupConfig holds every knob of the mockup generation pipeline.
type MockupConfig struct {
	TemplatesDir       string   `mapstructure:"templates_dir"`
	TemplateExtensions []string `mapstructure:"template_extensions"` // preference order, layered first
	DefaultTemplate    string   `mapstructure:"default_template"`
	WorkDir            string   `mapstructure:"work_dir"`
	OutputDir          string   `mapstructure:"output_dir"`
	PublicBaseURL      string   `mapstructure:"public_base_url"`
	PublicPath         string   `mapstructure:"public_path"`
	LayerCandidates    []string `mapstructure:"layer_candidates"`
	AutoStrategyOrder  []string `mapstructure:"auto_strategy_order"`
	AttemptTimeout     int      `mapstructure:"attempt_timeout"`  // milliseconds
	FallbackReserve    int      `mapstructure:"fallback_reserve"` // milliseconds kept for the basic fallback

	RemoteTemplates RemoteTemplatesConfig `mapstructure:"remote_templates"`
	DesignFetch     DesignFetchConfig     `mapstructure:"design_fetch"`
	LocalDocument   LocalDocumentConfig   `mapstructure:"local_document"`
	Flat            FlatConfig            `mapstructure:"flat"`
	Basic           BasicConfig           `mapstructure:"basic"`
	RemoteEditor    RemoteEditorConfig    `mapstructure:"remote_editor"`
}

type RemoteTemplatesConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Source          string `mapstructure:"source"`
	CacheDir        string `mapstructure:"cache_dir"`
	DownloadTimeout int    `mapstructure:"download_timeout"` // milliseconds
	IndexTTL        int    `mapstructure:"index_ttl"`        // milliseconds
}

type DesignFetchConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	RetryDelay  int `mapstructure:"retry_delay"` // milliseconds
	Timeout     int `mapstructure:"timeout"`     // milliseconds, per attempt
}

type LocalDocumentConfig struct {
	FlattenLayers bool `mapstructure:"flatten_layers"` // rebuild the base raster from visible layers
}

type FlatConfig struct {
	MarginRatio float64 `mapstructure:"margin_ratio"`
}

type BasicConfig struct {
	Scale      float64 `mapstructure:"scale"`
	Background string  `mapstructure:"background"` // #RRGGBB
}

type RemoteEditorConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	URL               string `mapstructure:"url"`
	APIGlobal         string `mapstructure:"api_global"`
	BrowserBin        string `mapstructure:"browser_bin"`
	Headless          bool   `mapstructure:"headless"`
	NoSandbox         bool   `mapstructure:"no_sandbox"`
	NavigationTimeout int    `mapstructure:"navigation_timeout"` // milliseconds
	PollAttempts      int    `mapstructure:"poll_attempts"`
	PollInterval      int    `mapstructure:"poll_interval"`  // milliseconds
	DocumentWait      int    `mapstructure:"document_wait"`  // milliseconds
	ExportTimeout     int    `mapstructure:"export_timeout"` // milliseconds
	MaxSessions       int    `mapstructure:"max_sessions"`
}
