// Package chip8 implements a CHIP-8 virtual machine that is stepped one
// instruction at a time by a host frame loop.
//
// A host resets the machine, loads a ROM and then, for every rendered frame,
// executes a number of instructions with Tick, decrements both timers, reopens
// the draw gate with SetVBlank and renders DisplayBitmap. All methods mutate
// shared state and must not be called concurrently.
package chip8

import (
	"fmt"
	"image"
	"io"
	"os"

	tm "github.com/buger/goterm"
	"github.com/retroenv/retrogolib/log"
)

type System struct {
	cpu    CPU
	mem    Memory
	gfx    Graphics
	keypad Keypad

	delayTimer timer
	soundTimer timer

	vblank bool // draw gate, consumed by DXYN and reopened once per frame
	idle   bool

	logger *log.Logger
	rng    io.Reader
	trace  bool
}

// New returns a reset system.
func New(options ...Option) *System {
	sys := &System{}
	defaultOptions(sys)
	for _, option := range options {
		option(sys)
	}
	sys.Reset()
	return sys
}

// Reset reinitializes memory, registers, stack, display, keys and timers.
func (sys *System) Reset() {
	sys.cpu.reset()
	sys.mem.clear()
	sys.gfx.clear()
	sys.keypad.reset()

	sys.delayTimer = 0
	sys.soundTimer = 0

	sys.vblank = true
	sys.idle = false
}

// Print writes the CPU state to w.
func (sys *System) Print(w io.Writer) {
	sys.cpu.Print(w, &sys.mem)
	fmt.Fprintf(w, "DT = %d, ST = %d, idle = %t\n", sys.delayTimer, sys.soundTimer, sys.idle)
}

// PrintScreen clears the terminal and prints the display and CPU state.
func (sys *System) PrintScreen() {
	tm.Clear()
	tm.MoveCursor(1, 1)

	for y := 0; y < GfxHeight; y++ {
		line := make([]rune, GfxWidth)
		for x := range line {
			if sys.gfx.getPixel(x, y) {
				line[x] = '█'
			} else {
				line[x] = ' '
			}
		}
		tm.Println(string(line))
	}
	sys.Print(tm.Screen)

	tm.Flush()
}

// Tick executes one instruction and returns whether the machine is idle.
// An idle machine does not execute anything until it is reset or a ROM is loaded.
func (sys *System) Tick() (bool, error) {
	if sys.idle {
		return true, nil
	}

	pc := sys.cpu.PC
	opc := sys.mem.fetchOpcode(pc)
	if sys.trace {
		sys.logger.Debug("Executing instruction",
			log.Hex("pc", pc),
			log.Hex("opcode", opc),
			log.String("instruction", Disassemble(opc)))
	}

	if err := sys.cpu.step(sys, opc); err != nil {
		return false, fmt.Errorf("executing opcode 0x%04x at 0x%04x: %w", opc, pc, err)
	}
	return sys.idle, nil
}

// Frame runs the per frame host sequence: cycles instructions, one timer
// decrement each and reopening the draw gate. It stops executing
// instructions early when the machine turns idle or fails.
func (sys *System) Frame(cycles int) (bool, error) {
	var idle bool
	var err error
	for i := 0; i < cycles && !idle; i++ {
		if idle, err = sys.Tick(); err != nil {
			return false, err
		}
	}

	sys.DecDelayTimer()
	sys.DecSoundTimer()
	sys.SetVBlank()
	return idle, nil
}

// DecDelayTimer decrements the delay timer if it is positive and returns its value.
func (sys *System) DecDelayTimer() uint8 {
	return sys.delayTimer.dec()
}

// DecSoundTimer decrements the sound timer if it is positive and returns its value.
func (sys *System) DecSoundTimer() uint8 {
	return sys.soundTimer.dec()
}

// SetVBlank reopens the draw gate, allowing one sprite draw.
func (sys *System) SetVBlank() {
	sys.vblank = true
}

// Load reads a ROM file and loads it.
func (sys *System) Load(filename string) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading rom file: %w", err)
	}
	if err := sys.LoadROM(bytes); err != nil {
		return err
	}
	sys.logger.Info("Loaded ROM", log.String("file", filename), log.Int("size", len(bytes)))
	return nil
}

// LoadReader loads a ROM from a reader.
func (sys *System) LoadReader(r io.Reader) error {
	bytes, err := io.ReadAll(io.LimitReader(r, MaxROMSize+1))
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}
	return sys.LoadROM(bytes)
}

// LoadROM copies the program to StartAddress and leaves the idle state.
func (sys *System) LoadROM(rom []byte) error {
	if err := sys.mem.loadROM(rom); err != nil {
		return err
	}
	sys.idle = false
	return nil
}

// KeyDown marks the key as pressed and records it as last pressed key.
func (sys *System) KeyDown(key uint8) {
	sys.keypad.down(key)
}

// KeyUp marks the key as released.
func (sys *System) KeyUp(key uint8) {
	sys.keypad.up(key)
}

// DisplayBitmap returns a new RGBA image of the display.
func (sys *System) DisplayBitmap() *image.RGBA {
	return sys.gfx.bitmap()
}

// Pixel returns whether the display pixel is set.
func (sys *System) Pixel(x, y int) bool {
	return sys.gfx.getPixel(x, y)
}

// Memory returns a copy of the memory.
func (sys *System) Memory() Memory {
	return sys.mem
}

// Registers returns V0 to VF.
func (sys *System) Registers() [16]uint8 {
	return sys.cpu.V
}

// Stack returns the return addresses of the call stack, innermost last.
func (sys *System) Stack() []uint16 {
	stack := make([]uint16, sys.cpu.SP)
	copy(stack, sys.cpu.Stack[:sys.cpu.SP])
	return stack
}

func (sys *System) PC() uint16 {
	return sys.cpu.PC
}

func (sys *System) I() uint16 {
	return sys.cpu.I
}

func (sys *System) Keys() [KeyCount]bool {
	return sys.keypad.keys
}

func (sys *System) DelayTimer() uint8 {
	return uint8(sys.delayTimer)
}

func (sys *System) SoundTimer() uint8 {
	return uint8(sys.soundTimer)
}

// Idle returns whether the machine executed the idle instruction.
func (sys *System) Idle() bool {
	return sys.idle
}

// Waiting returns whether the last instruction stalled on the draw gate or a key.
func (sys *System) Waiting() bool {
	return sys.cpu.wait != waitNone
}
