package chip8

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newSystem(t *testing.T, rom ...byte) *System {
	t.Helper()
	sys := New(WithLogger(log.NewTestLogger(t)))
	assert.NoError(t, sys.LoadROM(rom))
	return sys
}

func tick(t *testing.T, sys *System, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		idle, err := sys.Tick()
		assert.NoError(t, err)
		assert.False(t, idle)
	}
}

func TestReset(t *testing.T) {
	sys := newSystem(t, 0x60, 0x05, 0x22, 0x06, 0xA0, 0x50, 0xD0, 0x15, 0x00, 0x00)
	tick(t, sys, 2)
	sys.KeyDown(3)
	sys.delayTimer = 9
	sys.soundTimer = 7

	sys.Reset()

	assert.Equal(t, uint16(StartAddress), sys.PC())
	assert.Equal(t, uint16(0), sys.I())
	assert.Equal(t, [16]uint8{}, sys.Registers())
	assert.Empty(t, sys.Stack())
	assert.Equal(t, [KeyCount]bool{}, sys.Keys())
	assert.Equal(t, uint8(0), sys.DelayTimer())
	assert.Equal(t, uint8(0), sys.SoundTimer())
	assert.True(t, sys.vblank)
	assert.False(t, sys.Idle())
	assert.False(t, sys.Waiting())
	assert.Equal(t, [GfxHeight]uint64{}, sys.gfx.rows)

	var want Memory
	copy(want[FontAddress:], fontSet[:])
	mem := sys.Memory()
	if diff := cmp.Diff(want[:], mem[:]); diff != "" {
		t.Errorf("memory after reset: (-want, +got)\n%s", diff)
	}
}

func TestTick_ClearScreen(t *testing.T) {
	sys := newSystem(t, 0x00, 0xE0)
	tick(t, sys, 1)

	assert.Equal(t, uint16(0x202), sys.PC())
	assert.Equal(t, [GfxHeight]uint64{}, sys.gfx.rows)
}

func TestTick_AddImmediate(t *testing.T) {
	sys := newSystem(t, 0x60, 0x05, 0x70, 0x03)
	tick(t, sys, 2)

	assert.Equal(t, uint8(0x08), sys.Registers()[0])
}

func TestTick_AddCarry(t *testing.T) {
	sys := newSystem(t, 0x80, 0x14)
	sys.cpu.V[0] = 0xFF
	sys.cpu.V[1] = 0x01
	tick(t, sys, 1)

	assert.Equal(t, uint8(0x00), sys.Registers()[0])
	assert.Equal(t, uint8(1), sys.Registers()[RegCarry])
}

func TestTick_DrawGate(t *testing.T) {
	// I = sprite of 0, draw it twice at (0, 0)
	sys := newSystem(t, 0xA0, 0x50, 0xD0, 0x05, 0xD0, 0x05)
	tick(t, sys, 2)
	assert.Equal(t, uint16(0x204), sys.PC())
	assert.False(t, sys.vblank)
	assert.True(t, sys.Pixel(0, 0))

	for i := 0; i < 5; i++ {
		tick(t, sys, 1)
		assert.Equal(t, uint16(0x204), sys.PC())
		assert.True(t, sys.Waiting())
	}

	sys.SetVBlank()
	tick(t, sys, 1)
	assert.Equal(t, uint16(0x206), sys.PC())
	assert.False(t, sys.Waiting())
	assert.False(t, sys.vblank)
	assert.Equal(t, uint8(1), sys.Registers()[RegCarry])
	assert.Equal(t, [GfxHeight]uint64{}, sys.gfx.rows)
}

func TestTick_DrawGateKeepsFlag(t *testing.T) {
	sys := newSystem(t, 0xD0, 0x01)
	sys.vblank = false
	sys.cpu.V[RegCarry] = 7
	tick(t, sys, 1)

	assert.Equal(t, uint8(7), sys.Registers()[RegCarry])
	assert.Equal(t, uint16(StartAddress), sys.PC())
}

func TestTick_KeyWait(t *testing.T) {
	sys := newSystem(t, 0xF3, 0x0A, 0x00, 0x00)

	tick(t, sys, 3)
	assert.Equal(t, uint16(StartAddress), sys.PC())
	assert.Equal(t, waitKeyPress, sys.cpu.wait)

	sys.KeyDown(5)
	tick(t, sys, 1)
	assert.Equal(t, uint8(5), sys.Registers()[3])
	assert.Equal(t, uint16(StartAddress), sys.PC())
	assert.Equal(t, waitKeyRelease, sys.cpu.wait)

	tick(t, sys, 3)
	assert.Equal(t, uint16(StartAddress), sys.PC())
	assert.Equal(t, waitKeyRelease, sys.cpu.wait)

	sys.KeyUp(5)
	tick(t, sys, 1)
	assert.Equal(t, uint16(0x202), sys.PC())
	assert.False(t, sys.Waiting())

	idle, err := sys.Tick()
	assert.NoError(t, err)
	assert.True(t, idle)
}

func TestTick_KeyWaitIgnoresOtherKeys(t *testing.T) {
	sys := newSystem(t, 0xF0, 0x0A)
	sys.KeyDown(2)
	tick(t, sys, 1)
	assert.Equal(t, uint8(2), sys.Registers()[0])

	// a second key becomes the last key down, the latched key release is not observed
	sys.KeyDown(7)
	sys.KeyUp(2)
	tick(t, sys, 1)
	assert.Equal(t, uint16(StartAddress), sys.PC())

	sys.KeyUp(7)
	tick(t, sys, 1)
	assert.Equal(t, uint16(0x202), sys.PC())
}

func TestTick_Idle(t *testing.T) {
	sys := newSystem(t, 0x00, 0x00, 0x60, 0x01)

	for i := 0; i < 3; i++ {
		idle, err := sys.Tick()
		assert.NoError(t, err)
		assert.True(t, idle)
	}
	assert.True(t, sys.Idle())
	assert.Equal(t, uint16(0x202), sys.PC())
	assert.Equal(t, uint8(0), sys.Registers()[0])

	assert.NoError(t, sys.LoadROM([]byte{0x00, 0x00, 0x60, 0x01}))
	tick(t, sys, 1)
	assert.Equal(t, uint8(1), sys.Registers()[0])

	sys.Reset()
	assert.False(t, sys.Idle())
}

func TestTick_StackUnderflow(t *testing.T) {
	sys := newSystem(t, 0x00, 0xEE)

	_, err := sys.Tick()
	assert.True(t, errors.Is(err, ErrStackUnderflow))
	assert.Equal(t, uint16(StartAddress), sys.PC())
}

func TestTick_StackOverflow(t *testing.T) {
	// calls itself
	sys := newSystem(t, 0x22, 0x00)
	tick(t, sys, StackDepth)
	assert.Len(t, sys.Stack(), StackDepth)

	_, err := sys.Tick()
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, uint16(StartAddress), sys.PC())
	assert.Len(t, sys.Stack(), StackDepth)
	for _, addr := range sys.Stack() {
		assert.Equal(t, uint16(0x202), addr)
	}
}

func TestDecTimers(t *testing.T) {
	sys := newSystem(t, 0x60, 0x02, 0xF0, 0x15, 0xF0, 0x18)
	tick(t, sys, 3)

	assert.Equal(t, uint8(1), sys.DecDelayTimer())
	assert.Equal(t, uint8(0), sys.DecDelayTimer())
	for i := 0; i < 300; i++ {
		assert.Equal(t, uint8(0), sys.DecDelayTimer())
	}

	assert.Equal(t, uint8(1), sys.DecSoundTimer())
	assert.Equal(t, uint8(0), sys.DecSoundTimer())
	assert.Equal(t, uint8(0), sys.DecSoundTimer())
	assert.Equal(t, uint8(2), sys.Registers()[0])
}

func TestDisplayBitmap(t *testing.T) {
	sys := newSystem(t, 0xA0, 0x50, 0xD0, 0x05)
	tick(t, sys, 2)

	first := sys.DisplayBitmap()
	second := sys.DisplayBitmap()
	if diff := cmp.Diff(first.Pix, second.Pix); diff != "" {
		t.Errorf("bitmap changed without tick: (-first, +second)\n%s", diff)
	}
	assert.True(t, first != second)
	assert.Len(t, first.Pix, GfxWidth*GfxHeight*4)

	// first font row is 0xF0
	for x := 0; x < 8; x++ {
		offset := first.PixOffset(x, 0)
		want := pixelOff
		if x < 4 {
			want = pixelOn
		}
		if diff := cmp.Diff(want[:], first.Pix[offset:offset+4]); diff != "" {
			t.Errorf("pixel %d: (-want, +got)\n%s", x, diff)
		}
	}
}

func TestLoadROM(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"empty", 0, false},
		{"fits", MaxROMSize, false},
		{"too large", MaxROMSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := New(WithLogger(log.NewTestLogger(t)))
			rom := bytes.Repeat([]byte{0xAB}, tt.size)
			err := sys.LoadROM(rom)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrROMTooLarge))
				assert.Equal(t, uint8(0), sys.Memory()[StartAddress])
				return
			}
			assert.NoError(t, err)
			if tt.size > 0 {
				assert.Equal(t, uint8(0xAB), sys.Memory()[MemorySize-1])
			}
		})
	}
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.ch8")
	assert.NoError(t, os.WriteFile(file, []byte{0x61, 0x2A}, 0o600))

	sys := New(WithLogger(log.NewTestLogger(t)))
	assert.NoError(t, sys.Load(file))
	tick(t, sys, 1)
	assert.Equal(t, uint8(0x2A), sys.Registers()[1])

	assert.Error(t, sys.Load(filepath.Join(t.TempDir(), "missing.ch8")))
}

func TestLoadReader(t *testing.T) {
	sys := New(WithLogger(log.NewTestLogger(t)))
	assert.NoError(t, sys.LoadReader(bytes.NewReader([]byte{0x12, 0x34})))
	assert.Equal(t, uint16(0x1234), sys.mem.fetchOpcode(StartAddress))

	err := sys.LoadReader(bytes.NewReader(make([]byte, MaxROMSize+10)))
	assert.True(t, errors.Is(err, ErrROMTooLarge))
}

func TestFrame(t *testing.T) {
	// V0 += 1, jump back, delay timer preset to 3
	sys := newSystem(t, 0x70, 0x01, 0x12, 0x00)
	sys.delayTimer = 3
	sys.vblank = false

	idle, err := sys.Frame(10)
	assert.NoError(t, err)
	assert.False(t, idle)
	assert.Equal(t, uint8(5), sys.Registers()[0])
	assert.Equal(t, uint8(2), sys.DelayTimer())
	assert.True(t, sys.vblank)
}

func TestFrame_StopsWhenIdle(t *testing.T) {
	sys := newSystem(t, 0x70, 0x01, 0x00, 0x00, 0x70, 0x01)

	idle, err := sys.Frame(10)
	assert.NoError(t, err)
	assert.True(t, idle)
	assert.Equal(t, uint8(1), sys.Registers()[0])
}

func TestFrame_Error(t *testing.T) {
	sys := newSystem(t, 0x00, 0xEE)
	sys.delayTimer = 3

	_, err := sys.Frame(10)
	assert.True(t, errors.Is(err, ErrStackUnderflow))
	assert.Equal(t, uint8(3), sys.DelayTimer())
}

func TestPrint(t *testing.T) {
	sys := newSystem(t, 0x6A, 0x42)
	tick(t, sys, 1)

	var buf bytes.Buffer
	sys.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "PC = 0x0202")
	assert.Contains(t, out, "VA = 0x42")
	assert.Contains(t, out, "idle = false")
}

func BenchmarkLoop(b *testing.B) {
	// counts V0 up, draws a font sprite and loops forever
	benchmarkRom(b, []byte{
		0x70, 0x01, // ADD V0, 1
		0xF0, 0x29, // LD F, V0
		0xD1, 0x25, // DRW V1, V2, 5
		0x80, 0x14, // ADD V0, V1
		0x12, 0x00, // JP 0x200
	}, 10000)
}

func benchmarkRom(b *testing.B, rom []byte, cycles int) {
	sys := New()
	if err := sys.LoadROM(rom); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for i := 0; i < cycles; i++ {
			if _, err := sys.Tick(); err != nil {
				b.Fatal(err)
			}
			sys.SetVBlank()
		}
	}
}
