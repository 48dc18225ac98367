// Package config loads the optional hikcam configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonas-koeritz/hikcam/libhikvision"
)

// InitPolicy decides what happens when the SDK runtime fails to initialize
type InitPolicy string

const (
	// InitDegrade reports the failure and carries on, later calls fail with NET_DVR_NOINIT
	InitDegrade InitPolicy = "degrade"
	// InitFailFast aborts with the initialization error code
	InitFailFast InitPolicy = "fail-fast"
)

// DeviceConfig describes how to reach the camera
type DeviceConfig struct {
	Address  string        `yaml:"address"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Scheme   string        `yaml:"scheme"`  // http or https
	Timeout  time.Duration `yaml:"timeout"` // per request
}

// CaptureConfig holds the capture parameters
type CaptureConfig struct {
	Channel int                         `yaml:"channel"`
	Quality libhikvision.PictureQuality `yaml:"quality"`
	Size    libhikvision.PictureSize    `yaml:"size"` // 255 = current stream resolution
	OutFile string                      `yaml:"outfile"`
}

// Config aggregates all configuration
type Config struct {
	Device     DeviceConfig              `yaml:"device"`
	Capture    CaptureConfig             `yaml:"capture"`
	SDKLog     libhikvision.SDKLogConfig `yaml:"sdk_log"`
	InitPolicy InitPolicy                `yaml:"init_policy"`
}

// Default returns the configuration used without a config file
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Address:  "192.168.1.64",
			Port:     8000,
			Username: "admin",
			Password: "12345",
			Scheme:   "http",
			Timeout:  libhikvision.DefaultISAPITimeout,
		},
		Capture: CaptureConfig{
			Channel: libhikvision.DefaultChannel,
			Quality: libhikvision.QualityBest,
			Size:    libhikvision.SizeAuto,
			OutFile: "capture.jpg",
		},
		SDKLog:     libhikvision.DefaultSDKLogConfig(),
		InitPolicy: InitDegrade,
	}
}

// Load reads a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no device call could succeed with
func (c *Config) Validate() error {
	if c.Device.Port < 1 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port must be between 1 and 65535, got %d", c.Device.Port)
	}
	if c.Device.Scheme != "http" && c.Device.Scheme != "https" {
		return fmt.Errorf("device.scheme must be http or https, got %q", c.Device.Scheme)
	}
	if c.Device.Timeout < 0 {
		return fmt.Errorf("device.timeout must not be negative, got %s", c.Device.Timeout)
	}
	if c.Capture.Channel < 1 {
		return fmt.Errorf("capture.channel must be >= 1, got %d", c.Capture.Channel)
	}
	if c.Capture.Quality > libhikvision.QualityNormal {
		return fmt.Errorf("capture.quality must be 0, 1 or 2, got %d", c.Capture.Quality)
	}
	if _, _, ok := c.Capture.Size.Resolution(); !ok && c.Capture.Size != libhikvision.SizeAuto {
		return fmt.Errorf("capture.size %d is not supported", c.Capture.Size)
	}
	if c.SDKLog.Level < libhikvision.SDKLogOff || c.SDKLog.Level > libhikvision.SDKLogDebug {
		return fmt.Errorf("sdk_log.level must be between 0 and 3, got %d", c.SDKLog.Level)
	}
	return c.InitPolicy.Validate()
}

// Validate checks for a known policy
func (p InitPolicy) Validate() error {
	switch p {
	case InitDegrade, InitFailFast:
		return nil
	}
	return fmt.Errorf("init_policy must be %q or %q, got %q", InitDegrade, InitFailFast, string(p))
}

// JPEGParams returns the capture parameters for the session
func (c *Config) JPEGParams() libhikvision.JPEGParams {
	return libhikvision.JPEGParams{
		Quality: c.Capture.Quality,
		Size:    c.Capture.Size,
	}
}
