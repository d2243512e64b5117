package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the scan service.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Worker     WorkerConfig
	Sonar      SonarConfig
	Screenshot ScreenshotConfig

	// Warnings collects recoverable problems found while loading, to be
	// logged once a logger exists.
	Warnings []string
}

type ServerConfig struct {
	Port           int           `mapstructure:"API_PORT"`
	ReadTimeout    time.Duration `mapstructure:"API_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"API_WRITE_TIMEOUT"`
	RateLimit      int           `mapstructure:"API_RATE_LIMIT"`
	GinMode        string        `mapstructure:"GIN_MODE"`
	MetricsEnabled bool          `mapstructure:"METRICS_ENABLED"`
}

type LogConfig struct {
	Level string `mapstructure:"LOG_LEVEL"`
	JSON  bool   `mapstructure:"USE_JSON_LOG"`
}

type WorkerConfig struct {
	Concurrency    int `mapstructure:"WORKER_CONCURRENCY"`
	MaxTaskHistory int `mapstructure:"MAX_TASK_HISTORY"`
	MaxLogBytes    int `mapstructure:"MAX_LOG_BYTES"`
}

type SonarConfig struct {
	HostURL          string        `mapstructure:"SONAR_HOST_URL"`
	Token            string        `mapstructure:"SONAR_LOGIN_TOKEN"`
	Exclusions       string        `mapstructure:"SONAR_EXCLUSIONS"`
	ScannerPath      string        `mapstructure:"SONAR_SCANNER_PATH"`
	GitPath          string        `mapstructure:"GIT_PATH"`
	HeapMin          string        `mapstructure:"SCANNER_HEAP_MIN"`
	HeapLimit        string        `mapstructure:"SCANNER_HEAP_LIMIT"`
	NiceAdjustment   int           `mapstructure:"CPU_NICE_ADJUSTMENT"`
	CPUAffinity      string        `mapstructure:"CPU_AFFINITY"`
	CPDMinimumTokens int           `mapstructure:"SONAR_CPD_MINIMUM_TOKENS"`
	Debug            bool          `mapstructure:"SONAR_DEBUG"`
	UserHome         string        `mapstructure:"SONAR_USER_HOME"`
	CloneTimeout     time.Duration `mapstructure:"CLONE_TIMEOUT"`
	ScanTimeout      time.Duration `mapstructure:"SCAN_TIMEOUT"`
}

type ScreenshotConfig struct {
	WebURL          string        `mapstructure:"SONARQUBE_WEB_URL"`
	Username        string        `mapstructure:"SONAR_USERNAME"`
	Password        string        `mapstructure:"SONAR_PASSWORD"`
	Dir             string        `mapstructure:"SCREENSHOT_DIR"`
	TTL             time.Duration `mapstructure:"SCREENSHOT_TTL_HOURS"`
	ChromePath      string        `mapstructure:"CHROME_PATH"`
	ChromeNoSandbox bool          `mapstructure:"CHROME_NO_SANDBOX"`
}

const defaultTTLHours = 24

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_READ_TIMEOUT", "10s")
	v.SetDefault("API_WRITE_TIMEOUT", "30s")
	v.SetDefault("API_RATE_LIMIT", 100)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("USE_JSON_LOG", true)
	v.SetDefault("WORKER_CONCURRENCY", 1)
	v.SetDefault("MAX_TASK_HISTORY", 100)
	v.SetDefault("MAX_LOG_BYTES", 50_000)
	v.SetDefault("SONAR_HOST_URL", "")
	v.SetDefault("SONAR_LOGIN_TOKEN", "")
	v.SetDefault("SONAR_EXCLUSIONS", "")
	v.SetDefault("SONAR_SCANNER_PATH", "sonar-scanner")
	v.SetDefault("GIT_PATH", "git")
	v.SetDefault("SCANNER_HEAP_MIN", "-Xms512m")
	v.SetDefault("SCANNER_HEAP_LIMIT", "-Xmx1900m")
	v.SetDefault("CPU_NICE_ADJUSTMENT", 0)
	v.SetDefault("CPU_AFFINITY", "")
	v.SetDefault("SONAR_CPD_MINIMUM_TOKENS", 0)
	v.SetDefault("SONAR_DEBUG", false)
	v.SetDefault("SONAR_USER_HOME", "/cache")
	v.SetDefault("CLONE_TIMEOUT", "5m")
	v.SetDefault("SCAN_TIMEOUT", "30m")
	v.SetDefault("SONARQUBE_WEB_URL", "")
	v.SetDefault("SONAR_USERNAME", "")
	v.SetDefault("SONAR_PASSWORD", "")
	v.SetDefault("SCREENSHOT_DIR", "./static/screenshots")
	v.SetDefault("SCREENSHOT_TTL_HOURS", strconv.Itoa(defaultTTLHours))
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("CHROME_NO_SANDBOX", false)

	// Attempt to read .env file (non-fatal if missing)
	_ = v.ReadInConfig()

	cfg := &Config{}
	cfg.Server.Port = v.GetInt("API_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("API_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("API_WRITE_TIMEOUT")
	cfg.Server.RateLimit = v.GetInt("API_RATE_LIMIT")
	cfg.Server.GinMode = v.GetString("GIN_MODE")
	cfg.Server.MetricsEnabled = v.GetBool("METRICS_ENABLED")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.JSON = v.GetBool("USE_JSON_LOG")

	cfg.Worker.Concurrency = v.GetInt("WORKER_CONCURRENCY")
	cfg.Worker.MaxTaskHistory = v.GetInt("MAX_TASK_HISTORY")
	cfg.Worker.MaxLogBytes = v.GetInt("MAX_LOG_BYTES")

	cfg.Sonar.HostURL = strings.TrimSpace(v.GetString("SONAR_HOST_URL"))
	cfg.Sonar.Token = strings.TrimSpace(v.GetString("SONAR_LOGIN_TOKEN"))
	cfg.Sonar.Exclusions = v.GetString("SONAR_EXCLUSIONS")
	cfg.Sonar.ScannerPath = v.GetString("SONAR_SCANNER_PATH")
	cfg.Sonar.GitPath = v.GetString("GIT_PATH")
	cfg.Sonar.HeapMin = v.GetString("SCANNER_HEAP_MIN")
	cfg.Sonar.HeapLimit = v.GetString("SCANNER_HEAP_LIMIT")
	cfg.Sonar.NiceAdjustment = v.GetInt("CPU_NICE_ADJUSTMENT")
	cfg.Sonar.CPUAffinity = v.GetString("CPU_AFFINITY")
	cfg.Sonar.CPDMinimumTokens = v.GetInt("SONAR_CPD_MINIMUM_TOKENS")
	cfg.Sonar.Debug = v.GetBool("SONAR_DEBUG")
	cfg.Sonar.UserHome = v.GetString("SONAR_USER_HOME")
	cfg.Sonar.CloneTimeout = v.GetDuration("CLONE_TIMEOUT")
	cfg.Sonar.ScanTimeout = v.GetDuration("SCAN_TIMEOUT")

	cfg.Screenshot.WebURL = strings.TrimSpace(v.GetString("SONARQUBE_WEB_URL"))
	cfg.Screenshot.Username = v.GetString("SONAR_USERNAME")
	cfg.Screenshot.Password = v.GetString("SONAR_PASSWORD")
	cfg.Screenshot.Dir = v.GetString("SCREENSHOT_DIR")
	cfg.Screenshot.ChromePath = v.GetString("CHROME_PATH")
	cfg.Screenshot.ChromeNoSandbox = v.GetBool("CHROME_NO_SANDBOX")

	ttl, err := parseTTLHours(v.GetString("SCREENSHOT_TTL_HOURS"))
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, err.Error())
	}
	cfg.Screenshot.TTL = ttl

	if cfg.Worker.Concurrency < 1 {
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("WORKER_CONCURRENCY=%d is not positive; using 1", cfg.Worker.Concurrency))
		cfg.Worker.Concurrency = 1
	}
	if cfg.Worker.MaxTaskHistory < 1 {
		return nil, fmt.Errorf("MAX_TASK_HISTORY must be positive, got %d", cfg.Worker.MaxTaskHistory)
	}

	return cfg, nil
}

// parseTTLHours turns SCREENSHOT_TTL_HOURS into a duration. Zero or negative
// disables purging; garbage falls back to the default.
func parseTTLHours(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTTLHours * time.Hour, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return defaultTTLHours * time.Hour,
			fmt.Errorf("invalid SCREENSHOT_TTL_HOURS=%q; using default %d", raw, defaultTTLHours)
	}
	if hours <= 0 {
		return 0, nil
	}
	return time.Duration(hours) * time.Hour, nil
}
