package adc

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultSPIDevice is the spidev port the ADC sits on.
const DefaultSPIDevice = "/dev/spidev0.0"

// DefaultSPISpeed is slow enough for the MCP3008 at 3.3V.
const DefaultSPISpeed = 1 * physic.MegaHertz

// SPIDev drives an MCP3008 through a kernel spidev port.
type SPIDev struct {
	port    spi.PortCloser
	conn    spi.Conn
	ch      uint8
	pending bool
	result  uint16
}

// OpenSPIDev initialises the host drivers and connects to the ADC on the
// named SPI port.
func OpenSPIDev(device string, speed physic.Frequency) (*SPIDev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("open spi port %s: %w", device, err)
	}

	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi %s: %w", device, err)
	}

	d := newSPIDev(conn)
	d.port = port
	return d, nil
}

func newSPIDev(conn spi.Conn) *SPIDev {
	return &SPIDev{conn: conn}
}

// SelectInput latches the channel used by the next conversion.
func (d *SPIDev) SelectInput(ch uint8) error {
	if ch >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	d.ch = ch
	return nil
}

// StartConversion runs the SPI transaction. The MCP3008 samples and shifts
// the result out within the same frame, so the value is held until read.
func (d *SPIDev) StartConversion() error {
	w := mcp3008Request(d.ch)
	var r [3]byte
	if err := d.conn.Tx(w[:], r[:]); err != nil {
		d.pending = false
		return fmt.Errorf("spi tx: %w", err)
	}
	d.result = mcp3008Value(r)
	d.pending = true
	return nil
}

// ReadSample returns the value captured by the last conversion.
func (d *SPIDev) ReadSample() (uint16, error) {
	if !d.pending {
		return 0, ErrNoConversion
	}
	d.pending = false
	return d.result, nil
}

// Close releases the SPI port.
func (d *SPIDev) Close() error {
	if d.port == nil {
		return nil
	}
	if err := d.port.Close(); err != nil {
		return fmt.Errorf("close spi port: %w", err)
	}
	return nil
}
