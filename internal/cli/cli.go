// Package cli handles command line interface logic of the emulator hosts.
package cli

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	chip8 "github.com/p47t/chip8vm"
)

// ROMExtension is the conventional extension of CHIP-8 ROM files.
const ROMExtension = ".ch8"

// Options contains the host options.
type Options struct {
	ROM string

	CyclesPerFrame int
	Scale          int
	Frames         int // 0 runs until the machine turns idle

	Debug bool
	Quiet bool
	Trace bool
}

// ParseFlags parses the command line arguments, without the program name.
func ParseFlags(name string, args []string) (Options, error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	var opts Options
	readOptionFlags(flags, &opts)

	err := flags.Parse(args)
	rest := flags.Args()
	if err != nil || len(rest) == 0 {
		return opts, &UsageError{name: name, flags: flags}
	}

	if err := validateArgs(rest); err != nil {
		return opts, err
	}
	opts.ROM = rest[0]

	if err := validateOptions(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	name  string
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: %s [options] <rom file>\n\n", e.name)
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks that the ROM is the only and last argument.
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && strings.HasPrefix(arg, "-") {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after rom file, please pass the rom file as last argument", arg),
			}
		}
	}
	if len(args) > 1 {
		return &UsageError{msg: fmt.Sprintf("only one rom file can be run, got %d", len(args))}
	}
	return nil
}

func validateOptions(opts *Options) error {
	if opts.CyclesPerFrame < 1 {
		return fmt.Errorf("invalid cycles per frame %d, must be positive", opts.CyclesPerFrame)
	}
	if opts.Scale < 1 {
		return fmt.Errorf("invalid display scale %d, must be positive", opts.Scale)
	}
	if opts.Frames < 0 {
		return fmt.Errorf("invalid frame count %d, must not be negative", opts.Frames)
	}
	return nil
}

// HasROMExtension returns whether the file name uses the conventional ROM extension.
func HasROMExtension(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ROMExtension)
}

func readOptionFlags(flags *flag.FlagSet, opts *Options) {
	flags.IntVar(&opts.CyclesPerFrame, "cpf", chip8.SystemHz/chip8.TimerHz, "instructions executed per 60 Hz frame")
	flags.IntVar(&opts.Scale, "scale", 10, "display scale factor")
	flags.IntVar(&opts.Frames, "frames", 0, "number of frames to run, 0 runs until the program idles")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction, requires -debug")
}
