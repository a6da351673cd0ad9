package dna

import (
	"context"
	"fmt"
	"log"

	"github.com/sweeney/testpod-monitor/internal/monitor"
)

// Slave is an I2C slave endpoint serving the register image.
type Slave interface {
	// Init binds the slave to addr and loads the image.
	Init(addr uint8, image []byte) error

	// Serve keeps the slave serviced until ctx is done, then unbinds it.
	Serve(ctx context.Context) error

	// Close unbinds the slave if Serve has not already done so.
	Close() error
}

// Session is a running secondary channel.
type Session struct {
	Address uint8
	done    chan struct{}
}

// Done is closed once the slave's service loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// BringUp takes a one-shot reading of the RGA input, derives the slave
// address and, if it is valid, starts the slave.
// It returns a nil Session when the reading is zero or matches no address;
// the channel then stays down for the life of the process.
func BringUp(ctx context.Context, adc monitor.ADC, rga uint8, slave Slave, regs Registers) (*Session, error) {
	raw, err := monitor.Sample(adc, rga)
	if err != nil {
		return nil, fmt.Errorf("read rga: %w", err)
	}
	if raw == 0 {
		log.Printf("dna: rga reading is zero, secondary channel disabled")
		return nil, nil
	}

	addr := AddressFromReading(raw)
	if addr == 0 {
		log.Printf("dna: rga reading %d (%dmV) matches no address, secondary channel disabled", raw, monitor.Millivolts(raw))
		return nil, nil
	}

	if err := slave.Init(addr, regs.Image()); err != nil {
		return nil, fmt.Errorf("init slave at 0x%02x: %w", addr, err)
	}

	s := &Session{Address: addr, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		if err := slave.Serve(ctx); err != nil {
			log.Printf("dna: slave service error: %v", err)
		}
	}()

	log.Printf("dna: secondary channel up at 0x%02x (rga %dmV)", addr, monitor.Millivolts(raw))
	return s, nil
}
