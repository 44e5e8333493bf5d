package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/itohio/rgbscan/pkg/client"
	"github.com/itohio/rgbscan/pkg/config"
	"github.com/itohio/rgbscan/pkg/sample"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use an in-process simulated scanner instead of serial port")
		listFlag           = flag.Bool("list", false, "List serial ports and exit")
		countFlag          = flag.Int("n", 10, "Number of scans to trigger (0 = until interrupted)")
		intervalFlag       = flag.Duration("interval", 100*time.Millisecond, "Delay between scans")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
	)
	flag.Parse()

	if *listFlag {
		ports, err := client.Ports()
		if err != nil {
			log.Fatalf("Failed to list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Client.AverageSamples = *averageSamplesFlag
	}

	var device client.Device
	if *mockFlag {
		device = client.NewLoopback(cfg)
		fmt.Println("Using simulated scanner")
	} else {
		device = client.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Client.BufferSize)
	}

	if err := device.Connect(); err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.Serial.Port, err)
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Printf("Error closing device: %v", err)
		}
	}()

	// Base converter always used, averaging chained when enabled
	stream := sample.NewConverter(cfg.Client.Resolution, cfg.Client.BufferSize)(device.Samples())
	if cfg.Client.AverageSamples > 0 {
		stream = sample.NewAveragingConverter(cfg.Client.AverageSamples, cfg.Client.BufferSize)(stream)
	}

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for s := range stream {
			fmt.Printf("%s %s R=%.3f G=%.3f B=%.3f\n",
				s.Timestamp.Format(time.RFC3339Nano), s.Raw, s.R, s.G, s.B)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ticker := time.NewTicker(*intervalFlag)
	defer ticker.Stop()

scan:
	for i := 0; *countFlag == 0 || i < *countFlag; i++ {
		if err := device.Trigger(); err != nil {
			log.Printf("Failed to trigger scan: %v", err)
			break
		}
		select {
		case <-ticker.C:
		case <-interrupt:
			break scan
		}
	}

	if err := device.Stop(); err != nil {
		log.Printf("Failed to stop scanner: %v", err)
	}

	// The loop stops on its own; serial boards keep the port open, so give
	// the last result a moment before closing
	select {
	case <-printed:
	case <-time.After(time.Second):
	}
}
