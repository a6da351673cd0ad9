package dna

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultSysfsRoot is where the kernel exposes I2C adapters and clients.
const DefaultSysfsRoot = "/sys/bus/i2c/devices"

// DefaultRefresh is how often the register window is re-asserted.
const DefaultRefresh = 5 * time.Second

// slaveFlag marks a client address as a local slave (I2C_OWN_SLAVE_ADDRESS).
const slaveFlag = 0x1000

// slaveDriver is the kernel's EEPROM-emulating slave backend. The 24c512
// variant takes the two-byte sub-address the carrier sends.
const slaveDriver = "slave-24c512"

// SysfsSlave runs the slave through the kernel's i2c-slave-eeprom backend.
// The adapter must support slave mode.
type SysfsSlave struct {
	Root    string
	Bus     int
	Refresh time.Duration

	mu    sync.Mutex
	addr  uint16
	image []byte
	bound bool
}

// NewSysfsSlave creates a slave on the given adapter number.
func NewSysfsSlave(bus int) *SysfsSlave {
	return &SysfsSlave{Root: DefaultSysfsRoot, Bus: bus, Refresh: DefaultRefresh}
}

func (s *SysfsSlave) adapterFile(name string) string {
	return filepath.Join(s.Root, fmt.Sprintf("i2c-%d", s.Bus), name)
}

func (s *SysfsSlave) eepromFile() string {
	return filepath.Join(s.Root, fmt.Sprintf("%d-%04x", s.Bus, s.addr), "slave-eeprom")
}

// Init instantiates the slave client and writes the image into it.
func (s *SysfsSlave) Init(addr uint8, image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound {
		return fmt.Errorf("slave already bound at 0x%04x", s.addr)
	}

	s.addr = slaveFlag | uint16(addr)
	line := fmt.Sprintf("%s 0x%04x\n", slaveDriver, s.addr)
	if err := os.WriteFile(s.adapterFile("new_device"), []byte(line), 0o644); err != nil {
		return fmt.Errorf("new_device: %w", err)
	}
	s.bound = true
	s.image = append([]byte(nil), image...)

	if err := s.writeImage(); err != nil {
		return errors.Join(err, s.unbind())
	}
	return nil
}

func (s *SysfsSlave) writeImage() error {
	if err := os.WriteFile(s.eepromFile(), s.image, 0o600); err != nil {
		return fmt.Errorf("write slave-eeprom: %w", err)
	}
	return nil
}

// refreshRegisters rewrites the register window only. The DNA store and the
// reserved area keep whatever the bus master wrote there.
func (s *SysfsSlave) refreshRegisters() error {
	f, err := os.OpenFile(s.eepromFile(), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open slave-eeprom: %w", err)
	}
	window := s.image
	if len(window) > DNABase {
		window = window[:DNABase]
	}
	if _, err := f.WriteAt(window, RegisterBase); err != nil {
		f.Close()
		return fmt.Errorf("refresh registers: %w", err)
	}
	return f.Close()
}

// Serve re-asserts the register window every Refresh interval, undoing any
// register writes the bus master made. It unbinds the slave when ctx is
// done.
func (s *SysfsSlave) Serve(ctx context.Context) error {
	refresh := s.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Close()
		case <-ticker.C:
			s.mu.Lock()
			var err error
			if s.bound {
				err = s.refreshRegisters()
			}
			s.mu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

// Close removes the slave client.
func (s *SysfsSlave) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unbind()
}

func (s *SysfsSlave) unbind() error {
	if !s.bound {
		return nil
	}
	s.bound = false
	line := fmt.Sprintf("0x%04x\n", s.addr)
	if err := os.WriteFile(s.adapterFile("delete_device"), []byte(line), 0o644); err != nil {
		return fmt.Errorf("delete_device: %w", err)
	}
	return nil
}
