package generatemockup

import (
	"fmt"
	"strings"
	"time"

	"mockup-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	ReportTimeout time.Duration // bounds the complete/fail call, separate from Timeout
	PublicBaseURL string
	PublicPath    string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 4,
		Timeout:       10 * time.Minute,
		ReportTimeout: 30 * time.Second,
		PublicPath:    "/mockups",
	}
}

// LoadConfig reads the worker section and the public URL settings of the app config.
func LoadConfig(appCfg *config.Config) *Config {
	c := DefaultConfig()
	if appCfg == nil {
		return c
	}
	wc := config.GetWorkerConfig(appCfg, TaskType)
	c.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		c.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	if appCfg.Camunda.RequestTimeout > 0 {
		c.ReportTimeout = config.GetDuration(appCfg.Camunda.RequestTimeout)
	}
	c.PublicBaseURL = appCfg.Mockup.PublicBaseURL
	if appCfg.Mockup.PublicPath != "" {
		c.PublicPath = appCfg.Mockup.PublicPath
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ReportTimeout <= 0 {
		return fmt.Errorf("report timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

// MockupURL is where the static file server publishes filename.
func (c *Config) MockupURL(filename string) string {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	p := "/" + strings.Trim(c.PublicPath, "/")
	if p == "/" {
		p = ""
	}
	return base + p + "/" + filename
}
