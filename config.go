package coap

import (
	"os"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"
)

// Config is the optional, YAML-loadable configuration surface the
// teacher's debug.go lacked entirely (SPEC_FULL.md section 1.3). Every
// field has a zero-value-safe default; NewServer/NewClient work fine
// without ever touching a Config.
type Config struct {
	LocalPort        int     `yaml:"local_port"`
	QueueDepth       int     `yaml:"queue_depth"`
	RateLimitPerSec  float64 `yaml:"rate_limit_per_sec"`
	LogLevel         int     `yaml:"log_level"`
	Debug            bool    `yaml:"debug"`
	HealthMonitor    bool    `yaml:"health_monitor"`
}

// DefaultConfig returns a Config with the library's built-in defaults.
func DefaultConfig() Config {
	return Config{
		LocalPort:  DefaultPort,
		QueueDepth: DefaultQueueDepth,
		LogLevel:   7,
	}
}

// LoadConfig reads a YAML file into a Config seeded from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errWrapf(ErrTransport, "read config %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errWrapf(ErrTransport, "parse config %s: %v", path, err)
	}
	return cfg, nil
}

// EngineOptions renders a Config into the EngineOption list Open expects.
func (c Config) EngineOptions() []EngineOption {
	opts := []EngineOption{WithQueueDepth(c.QueueDepth)}
	if c.RateLimitPerSec > 0 {
		opts = append(opts, WithRateLimiter(rate.NewLimiter(rate.Limit(c.RateLimitPerSec), 1)))
	}
	return opts
}

// Apply installs the Config's logging/health-monitor toggles process-wide
// (mirrors the teacher's Debug()/HealthMonitor() globals).
func (c Config) Apply() {
	Debug(c.Debug)
	HealthMonitor(c.HealthMonitor)
}
