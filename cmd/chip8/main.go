// Package main implements a CHIP-8 emulator rendering to an OpenGL window.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	chip8 "github.com/p47t/chip8vm"
	"github.com/p47t/chip8vm/internal/cli"
	"github.com/p47t/chip8vm/internal/config"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

func main() {
	opts, err := cli.ParseFlags("chip8", os.Args[1:])
	if err != nil {
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(opts)
			usageErr.ShowUsage()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	printBanner(opts)
	if !cli.HasROMExtension(opts.ROM) {
		logger.Warn("ROM file has an unexpected extension", log.String("file", opts.ROM))
	}

	sys := chip8.New(chip8.WithLogger(logger), chip8.WithTrace(opts.Trace))
	if err := sys.Load(opts.ROM); err != nil {
		logger.Error("Loading ROM failed", log.Err(err))
		os.Exit(1)
	}

	emu, err := NewEmulator(sys, logger, opts)
	if err != nil {
		logger.Error("Initializing display failed", log.Err(err))
		os.Exit(1)
	}
	defer emu.Terminate()

	if err := emu.Loop(app.Context()); err != nil {
		logger.Error("Emulation stopped", log.Err(err))
	}
}

func printBanner(opts cli.Options) {
	if !opts.Quiet {
		fmt.Println("[-------------------------]")
		fmt.Println("[ chip8 - CHIP-8 emulator ]")
		fmt.Printf("[-------------------------]\n\n")
		fmt.Printf("version: %s\n\n", buildinfo.Version(version, commit, date))
	}
}
