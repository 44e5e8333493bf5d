package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/rgbscan/pkg/adc"
	"github.com/itohio/rgbscan/pkg/sampler"
)

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig   `yaml:"serial"`
	Sampler sampler.Config `yaml:"sampler"`
	Sim     adc.SimConfig  `yaml:"sim"`
	Client  ClientConfig   `yaml:"client"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ClientConfig contains host client parameters.
type ClientConfig struct {
	BufferSize     int `yaml:"buffer_size"`
	AverageSamples int `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
	Resolution     int `yaml:"resolution"`      // Bits per sample of the connected board
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Sampler: sampler.Config{
			Timeout:      100 * time.Millisecond,
			PollInterval: 0,
			HoistSetup:   false,
		},
		Sim: adc.DefaultSimConfig(),
		Client: ClientConfig{
			BufferSize:     100,
			AverageSamples: 0,
			Resolution:     12,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sampler.Timeout == 0 {
		c.Sampler.Timeout = def.Sampler.Timeout
	}

	if len(c.Sim.Values) == 0 {
		c.Sim.Values = def.Sim.Values
	}
	if c.Sim.Resolution == 0 {
		c.Sim.Resolution = def.Sim.Resolution
	}

	if c.Client.BufferSize == 0 {
		c.Client.BufferSize = def.Client.BufferSize
	}
	if c.Client.Resolution == 0 {
		c.Client.Resolution = def.Client.Resolution
	}
}
