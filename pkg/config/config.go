package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Radio brands the bridge can speak to. BrandNone selects the simulator
// so the dashboard can be exercised with no hardware attached.
const (
	BrandYaesu   = "yaesu"
	BrandKenwood = "kenwood"
	BrandIcom    = "icom"
	BrandNone    = "none"
)

// Config represents the rigbridged configuration
type Config struct {
	Radio struct {
		Brand        string `yaml:"brand"`
		Device       string `yaml:"device"`
		BaudRate     int    `yaml:"baud_rate"`
		DataBits     int    `yaml:"data_bits"`
		StopBits     int    `yaml:"stop_bits"`
		Parity       string `yaml:"parity"`
		CIVAddress   byte   `yaml:"civ_address"`
		PollInterval int    `yaml:"poll_interval"` // milliseconds
		AllowTX      bool   `yaml:"allow_tx"`
	} `yaml:"radio"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
		Console    bool   `yaml:"console"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.Radio.Brand == "" {
		config.Radio.Brand = BrandNone
	}
	if config.Radio.BaudRate == 0 {
		config.Radio.BaudRate = 38400
	}
	if config.Radio.DataBits == 0 {
		config.Radio.DataBits = 8
	}
	if config.Radio.StopBits == 0 {
		// Yaesu CAT links conventionally run two stop bits.
		if config.Radio.Brand == BrandYaesu {
			config.Radio.StopBits = 2
		} else {
			config.Radio.StopBits = 1
		}
	}
	if config.Radio.Parity == "" {
		config.Radio.Parity = "none"
	}
	if config.Radio.CIVAddress == 0 {
		config.Radio.CIVAddress = 0x94 // IC-7300 factory default
	}
	if config.Radio.PollInterval == 0 {
		config.Radio.PollInterval = 500
	}
	if config.Web.Port == 0 {
		config.Web.Port = 8073
	}
	if config.Web.BindAddress == "" {
		config.Web.BindAddress = "0.0.0.0"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 10
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 3
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 28
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Radio.Brand {
	case BrandYaesu, BrandKenwood, BrandIcom, BrandNone:
	default:
		return fmt.Errorf("unknown radio brand %q (expected yaesu, kenwood, icom or none)", c.Radio.Brand)
	}
	if c.Radio.Brand != BrandNone && c.Radio.Device == "" {
		return fmt.Errorf("radio device is required for brand %q", c.Radio.Brand)
	}
	switch c.Radio.Parity {
	case "none", "odd", "even":
	default:
		return fmt.Errorf("invalid parity %q (expected none, odd or even)", c.Radio.Parity)
	}
	if c.Radio.StopBits != 1 && c.Radio.StopBits != 2 {
		return fmt.Errorf("invalid stop_bits %d (expected 1 or 2)", c.Radio.StopBits)
	}
	if c.Radio.PollInterval < 100 {
		return fmt.Errorf("poll_interval %d ms is too short (minimum 100)", c.Radio.PollInterval)
	}
	return nil
}
