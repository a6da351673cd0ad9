package dna

// Firmware and DNA format versions reported to the carrier.
const (
	FirmwareMajor = 0x01
	FirmwareMinor = 0x01
	DNAMajor      = 0x01
	DNAMinor      = 0x00
)

// DNASize is the DNA storage advertised in the register block, in bytes.
const DNASize = 1024

// Sub-address map seen by the carrier. Sub-addresses are 16 bits wide.
const (
	RegisterBase = 0x0000
	DNABase      = 0x8000
	ReservedBase = 0x9000
)

// ImageSize is the size of the image served on the bus. It matches the
// 24c512 EEPROM slave backend, which takes 16-bit sub-addresses.
const ImageSize = 0x10000

// Registers is the read-only SYZYGY register block:
// {FW major, FW minor, DNA major, DNA minor, DNA size high, DNA size low}.
type Registers [6]byte

// DefaultRegisters returns the register block for this firmware.
func DefaultRegisters() Registers {
	return Registers{
		FirmwareMajor, FirmwareMinor,
		DNAMajor, DNAMinor,
		byte(DNASize >> 8), byte(DNASize & 0xFF),
	}
}

// ReadReg returns the register at addr, or 0xFF past the end of the block.
func (r Registers) ReadReg(addr uint16) byte {
	if int(addr) < len(r) {
		return r[addr]
	}
	return 0xFF
}

// Image renders the full bus image: the register window below DNABase, an
// erased DNA store at DNABase and 0xFF everywhere else.
// Only the register window is owned by this firmware; the DNA store belongs
// to the carrier once the slave is running.
func (r Registers) Image() []byte {
	img := make([]byte, ImageSize)
	for i := range img {
		img[i] = 0xFF
	}
	for i := RegisterBase; i < DNABase; i++ {
		img[i] = r.ReadReg(uint16(i))
	}
	return img
}
