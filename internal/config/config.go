// Package config loads the daemon's wiring configuration.
// Only hardware wiring and outer surfaces are configurable; rail thresholds
// and the averaging depth are fixed in the monitor package.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/testpod-monitor/internal/adc"
	"github.com/sweeney/testpod-monitor/internal/dna"
	"github.com/sweeney/testpod-monitor/internal/gpio"
	"github.com/sweeney/testpod-monitor/internal/monitor"
)

type Config struct {
	Poll time.Duration `yaml:"poll"`
	ADC  ADCConfig     `yaml:"adc"`
	GPIO GPIOConfig    `yaml:"gpio"`
	I2C  I2CConfig     `yaml:"i2c"`
	MQTT MQTTConfig    `yaml:"mqtt"`
	HTTP HTTPConfig    `yaml:"http"`
}

// ---- ADC ----

type ADCConfig struct {
	Driver   string         `yaml:"driver"`
	Device   string         `yaml:"device"`
	SpeedHz  int64          `yaml:"speed_hz"`
	BitBang  BitBangConfig  `yaml:"bitbang"`
	Channels ChannelsConfig `yaml:"channels"`
}

type BitBangConfig struct {
	Sclk  int           `yaml:"sclk"`
	Ssz   int           `yaml:"ssz"`
	Mosi  int           `yaml:"mosi"`
	Miso  int           `yaml:"miso"`
	Clock time.Duration `yaml:"clock"`
}

type ChannelsConfig struct {
	RGA    uint8 `yaml:"rga"`
	Rail5V uint8 `yaml:"rail_5v"`
	VIO    uint8 `yaml:"rail_vio"`
	Rail33 uint8 `yaml:"rail_3v3"`
}

// ---- GPIO ----

type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	ModePin   int    `yaml:"mode_pin"`
	Status5V  int    `yaml:"status_5v"`
	StatusVIO int    `yaml:"status_vio"`
	Status3V3 int    `yaml:"status_3v3"`
}

// ---- SECONDARY CHANNEL ----

type I2CConfig struct {
	Enabled bool          `yaml:"enabled"`
	Bus     int           `yaml:"bus"`
	Sysfs   string        `yaml:"sysfs"`
	Refresh time.Duration `yaml:"refresh"`
}

// ---- OUTER SURFACES ----

type MQTTConfig struct {
	Broker    string        `yaml:"broker"` // empty disables MQTT
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status page
}

// Default returns the standard test pod wiring.
func Default() *Config {
	pins := gpio.DefaultPins()
	return &Config{
		Poll: 10 * time.Millisecond,
		ADC: ADCConfig{
			Driver: adc.DriverSPIDev,
			Device: adc.DefaultSPIDevice,
			BitBang: BitBangConfig{
				Sclk:  11,
				Ssz:   8,
				Mosi:  10,
				Miso:  9,
				Clock: adc.DefaultBitBangClock,
			},
			Channels: ChannelsConfig{
				RGA:    0,
				Rail5V: monitor.DefaultChannels[monitor.Rail5V],
				VIO:    monitor.DefaultChannels[monitor.RailVIO],
				Rail33: monitor.DefaultChannels[monitor.Rail3V3],
			},
		},
		GPIO: GPIOConfig{
			Chip:      gpio.DefaultChip,
			ModePin:   pins.Mode,
			Status5V:  pins.Status[0],
			StatusVIO: pins.Status[1],
			Status3V3: pins.Status[2],
		},
		I2C: I2CConfig{
			Enabled: true,
			Bus:     1,
			Sysfs:   dna.DefaultSysfsRoot,
			Refresh: dna.DefaultRefresh,
		},
		MQTT: MQTTConfig{
			ClientID:  "testpod-monitor",
			Heartbeat: 15 * time.Minute,
		},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Channels returns the rail to ADC input mapping.
func (c *Config) Channels() monitor.Channels {
	return monitor.Channels{
		monitor.Rail5V:  c.ADC.Channels.Rail5V,
		monitor.RailVIO: c.ADC.Channels.VIO,
		monitor.Rail3V3: c.ADC.Channels.Rail33,
	}
}

// Pins returns the GPIO line offsets.
func (c *Config) Pins() gpio.Pins {
	return gpio.Pins{
		Mode:   c.GPIO.ModePin,
		Status: [3]int{c.GPIO.Status5V, c.GPIO.StatusVIO, c.GPIO.Status3V3},
	}
}

// ADCOptions returns the options for adc.Open.
func (c *Config) ADCOptions() adc.Options {
	return adc.Options{
		Driver:  c.ADC.Driver,
		Device:  c.ADC.Device,
		SpeedHz: c.ADC.SpeedHz,
		Pins: adc.BitBangPins{
			Sclk: c.ADC.BitBang.Sclk,
			Ssz:  c.ADC.BitBang.Ssz,
			Mosi: c.ADC.BitBang.Mosi,
			Miso: c.ADC.BitBang.Miso,
		},
		Clock: c.ADC.BitBang.Clock,
	}
}
