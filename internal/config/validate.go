package config

import (
	"fmt"
	"sort"

	"github.com/sweeney/testpod-monitor/internal/adc"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", cfg.Poll)
	}

	// ---- ADC ----

	switch cfg.ADC.Driver {
	case adc.DriverSPIDev:
		if cfg.ADC.Device == "" {
			return fmt.Errorf("adc: device is required for driver %q", cfg.ADC.Driver)
		}
	case adc.DriverBitBang:
		bb := cfg.ADC.BitBang
		if err := uniquePins("adc.bitbang", map[string]int{
			"sclk": bb.Sclk,
			"ssz":  bb.Ssz,
			"mosi": bb.Mosi,
		}); err != nil {
			return err
		}
		// mosi and miso may share a line
		if bb.Miso < 0 || (bb.Miso != bb.Mosi && (bb.Miso == bb.Sclk || bb.Miso == bb.Ssz)) {
			return fmt.Errorf("adc.bitbang: miso pin %d conflicts", bb.Miso)
		}
	default:
		return fmt.Errorf("adc: unknown driver %q (want %q or %q)", cfg.ADC.Driver, adc.DriverSPIDev, adc.DriverBitBang)
	}

	ch := cfg.ADC.Channels
	seen := map[uint8]string{}
	for _, c := range []struct {
		name string
		ch   uint8
	}{
		{"rga", ch.RGA},
		{"rail_5v", ch.Rail5V},
		{"rail_vio", ch.VIO},
		{"rail_3v3", ch.Rail33},
	} {
		if c.ch >= adc.Channels {
			return fmt.Errorf("adc.channels: %s channel %d out of range (0-%d)", c.name, c.ch, adc.Channels-1)
		}
		if other, ok := seen[c.ch]; ok {
			return fmt.Errorf("adc.channels: %s and %s share channel %d", other, c.name, c.ch)
		}
		seen[c.ch] = c.name
	}

	// ---- GPIO ----

	if cfg.GPIO.Chip == "" {
		return fmt.Errorf("gpio: chip is required")
	}
	if err := uniquePins("gpio", map[string]int{
		"mode_pin":   cfg.GPIO.ModePin,
		"status_5v":  cfg.GPIO.Status5V,
		"status_vio": cfg.GPIO.StatusVIO,
		"status_3v3": cfg.GPIO.Status3V3,
	}); err != nil {
		return err
	}

	// The bit-banged ADC and the mode/status lines sit on the same chip.
	if cfg.ADC.Driver == adc.DriverBitBang {
		bb := cfg.ADC.BitBang
		lines := map[string]int{
			"adc.sclk":        bb.Sclk,
			"adc.ssz":         bb.Ssz,
			"adc.mosi":        bb.Mosi,
			"gpio.mode_pin":   cfg.GPIO.ModePin,
			"gpio.status_5v":  cfg.GPIO.Status5V,
			"gpio.status_vio": cfg.GPIO.StatusVIO,
			"gpio.status_3v3": cfg.GPIO.Status3V3,
		}
		if bb.Miso != bb.Mosi {
			lines["adc.miso"] = bb.Miso
		}
		if err := uniquePins("adc.bitbang/gpio", lines); err != nil {
			return err
		}
	}

	// ---- I2C ----

	if cfg.I2C.Enabled {
		if cfg.I2C.Bus < 0 {
			return fmt.Errorf("i2c: bus must not be negative, got %d", cfg.I2C.Bus)
		}
		if cfg.I2C.Sysfs == "" {
			return fmt.Errorf("i2c: sysfs root is required when enabled")
		}
	}

	// ---- MQTT ----

	if cfg.MQTT.Broker != "" && cfg.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt: client_id is required when broker is set")
	}
	if cfg.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt: heartbeat must not be negative, got %v", cfg.MQTT.Heartbeat)
	}

	return nil
}

// uniquePins rejects negative and shared line offsets.
func uniquePins(section string, pins map[string]int) error {
	owner := map[int]string{}
	for _, name := range sortedKeys(pins) {
		p := pins[name]
		if p < 0 {
			return fmt.Errorf("%s: %s pin must not be negative, got %d", section, name, p)
		}
		if other, ok := owner[p]; ok {
			return fmt.Errorf("%s: %s and %s share pin %d", section, other, name, p)
		}
		owner[p] = name
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
