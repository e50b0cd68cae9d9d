package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.2/glfw"
	chip8 "github.com/p47t/chip8vm"
	"github.com/p47t/chip8vm/internal/cli"
	"github.com/retroenv/retrogolib/log"
)

const (
	ScreenWidth  = chip8.GfxWidth
	ScreenHeight = chip8.GfxHeight
)

type Emulator struct {
	sys    *chip8.System
	logger *log.Logger
	opts   cli.Options

	window                *glfw.Window
	fullScreenTriangleVAO uint32
	bufferTexture         uint32
	shaderProgram         uint32
}

const vertexShader = `
#version 330

noperspective out vec2 TexCoord;

void main(void) {
    TexCoord.x = (gl_VertexID == 2)? 2.0: 0.0;
    TexCoord.y = (gl_VertexID == 1)? 2.0: 0.0;

	gl_Position = vec4(2.0 * TexCoord - 1.0, 0.0, 1.0);
}
`

// the bitmap rows are stored top down, texture coordinates start at the bottom
const fragmentShader = `
#version 330

uniform sampler2D buffer;
noperspective in vec2 TexCoord;

out vec3 outColor;

void main(void) {
	outColor = texture(buffer, vec2(TexCoord.x, 1.0 - TexCoord.y)).rgb;
}
`

var keyMap = map[glfw.Key]uint8{
	glfw.Key1: 0x1,
	glfw.Key2: 0x2,
	glfw.Key3: 0x3,
	glfw.Key4: 0xC,
	glfw.KeyQ: 0x4,
	glfw.KeyW: 0x5,
	glfw.KeyE: 0x6,
	glfw.KeyR: 0xD,
	glfw.KeyA: 0x7,
	glfw.KeyS: 0x8,
	glfw.KeyD: 0x9,
	glfw.KeyF: 0xE,
	glfw.KeyZ: 0xA,
	glfw.KeyX: 0x0,
	glfw.KeyC: 0xB,
	glfw.KeyV: 0xF,
}

// NewEmulator opens the window and sets up the texture the display is rendered to.
func NewEmulator(sys *chip8.System, logger *log.Logger, opts cli.Options) (*Emulator, error) {
	emu := &Emulator{
		sys:    sys,
		logger: logger,
		opts:   opts,
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing glfw: %w", err)
	}

	// Create window
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	window, err := glfw.CreateWindow(ScreenWidth*opts.Scale, ScreenHeight*opts.Scale, "Chip8", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating window: %w", err)
	}
	emu.window = window
	emu.window.MakeContextCurrent()

	// Key events are delivered on the main thread inside PollEvents,
	// between two frames of the emulation.
	emu.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		c8Key, ok := keyMap[key]
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			emu.sys.KeyDown(c8Key)
		case glfw.Release:
			emu.sys.KeyUp(c8Key)
		}
	})

	if err := emu.initGL(); err != nil {
		glfw.Terminate()
		return nil, err
	}
	return emu, nil
}

func (emu *Emulator) initGL() error {
	// Initialize Glow
	if err := gl.Init(); err != nil {
		return fmt.Errorf("initializing gl: %w", err)
	}
	gl.ClearColor(1.0, 0.0, 0.0, 1.0)

	gl.GenVertexArrays(1, &emu.fullScreenTriangleVAO)
	gl.BindVertexArray(emu.fullScreenTriangleVAO)

	emu.shaderProgram = gl.CreateProgram()

	vs, err := compileShader(vertexShader, gl.VERTEX_SHADER)
	if err != nil {
		return err
	}
	defer gl.DeleteShader(vs)
	gl.AttachShader(emu.shaderProgram, vs)
	defer gl.DetachShader(emu.shaderProgram, vs)

	fs, err := compileShader(fragmentShader, gl.FRAGMENT_SHADER)
	if err != nil {
		return err
	}
	defer gl.DeleteShader(fs)
	gl.AttachShader(emu.shaderProgram, fs)
	defer gl.DetachShader(emu.shaderProgram, fs)

	var status int32
	gl.LinkProgram(emu.shaderProgram)
	gl.GetProgramiv(emu.shaderProgram, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return errors.New("failed to link shader program")
	}

	bitmap := emu.sys.DisplayBitmap()

	gl.GenTextures(1, &emu.bufferTexture)
	gl.BindTexture(gl.TEXTURE_2D, emu.bufferTexture)

	gl.TexImage2D(
		gl.TEXTURE_2D, 0, gl.RGBA,
		ScreenWidth, ScreenHeight, 0,
		gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&bitmap.Pix[0]))

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	bufferLoc := gl.GetUniformLocation(emu.shaderProgram, gl.Str("buffer"+"\x00"))
	gl.UseProgram(emu.shaderProgram)
	gl.Uniform1i(bufferLoc, 0)

	gl.Disable(gl.DEPTH_TEST)
	return nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))

		return 0, fmt.Errorf("failed to compile %v: %v", source, infoLog)
	}

	return shader, nil
}

func (emu *Emulator) UpdateTexture() {
	bitmap := emu.sys.DisplayBitmap()

	gl.TexSubImage2D(
		gl.TEXTURE_2D, 0, 0, 0,
		ScreenWidth, ScreenHeight, gl.RGBA, gl.UNSIGNED_BYTE,
		unsafe.Pointer(&bitmap.Pix[0]))

	gl.BindVertexArray(emu.fullScreenTriangleVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}

// Loop runs one emulation frame per 60 Hz display frame until the window is
// closed, the context is cancelled, the frame limit is reached or the
// program fails.
func (emu *Emulator) Loop(ctx context.Context) error {
	idleLogged := false
	for frame := 0; !emu.window.ShouldClose(); frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if emu.opts.Frames > 0 && frame >= emu.opts.Frames {
			return nil
		}
		start := time.Now()

		glfw.PollEvents()

		idle, err := emu.sys.Frame(emu.opts.CyclesPerFrame)
		if err != nil {
			var state strings.Builder
			emu.sys.Print(&state)
			emu.logger.Error("CPU fault", log.Err(err), log.String("state", state.String()))
			return err
		}
		if idle && !idleLogged {
			emu.logger.Info("Program is idle", log.Hex("pc", emu.sys.PC()))
			idleLogged = true
		}

		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		emu.UpdateTexture()
		emu.window.SwapBuffers()

		if elapsed, slice := time.Since(start), time.Second/chip8.TimerHz; elapsed < slice {
			time.Sleep(slice - elapsed)
		}
	}
	return nil
}

func (emu *Emulator) Terminate() {
	gl.DeleteVertexArrays(1, &emu.fullScreenTriangleVAO)
	gl.DeleteTextures(1, &emu.bufferTexture)
	gl.DeleteProgram(emu.shaderProgram)
	glfw.Terminate()
}
