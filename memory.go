package chip8

import "fmt"

const (
	MemorySize  = 0x1000
	AddressMask = MemorySize - 1
	FontAddress = 0x50
	FontHeight  = 5

	// MaxROMSize is the number of bytes available from StartAddress to the end of memory.
	MaxROMSize = MemorySize - StartAddress
)

// Memory is the 4KB address space of the machine.
type Memory [MemorySize]uint8

var fontSet = [16 * FontHeight]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

func (mem *Memory) clear() {
	*mem = Memory{}
	copy(mem[FontAddress:], fontSet[:])
}

func (mem *Memory) read(addr uint16) uint8 {
	return mem[addr&AddressMask]
}

func (mem *Memory) write(addr uint16, val uint8) {
	mem[addr&AddressMask] = val
}

// fetchOpcode reads a big-endian instruction word.
func (mem *Memory) fetchOpcode(addr uint16) uint16 {
	return uint16(mem.read(addr))<<8 | uint16(mem.read(addr+1))
}

func (mem *Memory) loadROM(rom []byte) error {
	if len(rom) > MaxROMSize {
		return fmt.Errorf("%w: %d bytes, %d available", ErrROMTooLarge, len(rom), MaxROMSize)
	}
	copy(mem[StartAddress:], rom)
	return nil
}
