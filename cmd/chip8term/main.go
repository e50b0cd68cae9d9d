// Package main implements a CHIP-8 emulator that renders to the terminal.
// It has no keyboard input and is meant for running and inspecting
// programs that need none.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	chip8 "github.com/p47t/chip8vm"
	"github.com/p47t/chip8vm/internal/cli"
	"github.com/p47t/chip8vm/internal/config"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

// redrawInterval limits terminal output to a few redraws per second.
const redrawInterval = chip8.TimerHz / 10

func main() {
	opts, err := cli.ParseFlags("chip8term", os.Args[1:])
	if err != nil {
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			usageErr.ShowUsage()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	sys := chip8.New(chip8.WithLogger(logger), chip8.WithTrace(opts.Trace))
	if err := sys.Load(opts.ROM); err != nil {
		logger.Error("Loading ROM failed", log.Err(err))
		os.Exit(1)
	}

	if err := run(app.Context(), sys, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Emulation cancelled")
			return
		}
		logger.Error("Emulation stopped", log.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, sys *chip8.System, opts cli.Options) error {
	ticker := time.NewTicker(time.Second / chip8.TimerHz)
	defer ticker.Stop()

	for frame := 0; opts.Frames == 0 || frame < opts.Frames; frame++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		idle, err := sys.Frame(opts.CyclesPerFrame)
		if err != nil {
			sys.PrintScreen()
			return err
		}
		if idle {
			sys.PrintScreen()
			return nil
		}
		if frame%redrawInterval == 0 {
			sys.PrintScreen()
		}
	}
	sys.PrintScreen()
	return nil
}
