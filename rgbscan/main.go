package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/multierr"

	"github.com/itohio/rgbscan/pkg/adc"
	"github.com/itohio/rgbscan/pkg/board"
	"github.com/itohio/rgbscan/pkg/config"
	"github.com/itohio/rgbscan/pkg/sampler"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		stdioFlag  = flag.Bool("stdio", false, "Use standard input/output as the console instead of a serial port")
		hoistFlag  = flag.Bool("hoist", false, "Configure the converter once instead of before every scan")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *hoistFlag {
		cfg.Sampler.HoistSetup = true
	}

	var b board.Board
	if *stdioFlag {
		b = board.NewStdio()
	} else {
		b = board.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate)
	}

	if err := b.Init(); err != nil {
		log.Fatalf("Failed to initialize board: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// Stdin reads cannot be interrupted; a second interrupt kills the process
	context.AfterFunc(ctx, stop)

	if err := run(ctx, b, adc.NewSim(&cfg.Sim), cfg.Sampler); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Sampler failed: %v", err)
	}
}

// run drives the sampler loop on the board console and shuts down the
// converter and the board afterwards. Cancelling ctx closes the board, which
// fails a pending console read.
func run(ctx context.Context, b board.Board, conv adc.Converter, cfg sampler.Config) (err error) {
	console := b.Console()

	closeBoard := sync.OnceValue(b.Close)
	stopWatch := context.AfterFunc(ctx, func() { closeBoard() })

	defer func() {
		stopWatch()
		err = multierr.Combine(err, conv.Close(), closeBoard())
	}()

	if _, err := fmt.Fprintf(console, "\nSystem clock rate: %d Hz", b.CoreClock()); err != nil {
		return fmt.Errorf("failed to write console: %w", err)
	}
	if err := sampler.Banner(console); err != nil {
		return fmt.Errorf("failed to write console: %w", err)
	}

	loop := sampler.New(conv, bufio.NewReader(console), console, sampler.WithConfig(cfg))
	if err := loop.Run(ctx); err != nil && !errors.Is(err, sampler.ErrInputClosed) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	if _, err := fmt.Fprint(console, "\nExit ADC sample code\n"); err != nil {
		return fmt.Errorf("failed to write console: %w", err)
	}
	return nil
}
