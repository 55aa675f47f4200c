package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func main() {
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat := FlakyResponder{Delay: cfg.Latency, DropRate: cfg.DropRate}
	boxes := GenerateFleet(FleetConfig{Boxes: cfg.Boxes, MotesPerBox: cfg.MotesPerBox})
	runBoxes(ctx, boxes, cfg, strat)
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.IntVar(&cfg.Boxes, "boxes", 19, "number of simulated otboxes")
	flag.IntVar(&cfg.MotesPerBox, "motes-per-box", 4, "motes hosted by each box")
	flag.DurationVar(&cfg.Latency, "latency", 0, "response latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "probability of staying mute per command")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func runBoxes(ctx context.Context, boxes []*SimulatedBox, cfg Config, strat ResponseStrategy) {
	var wg sync.WaitGroup
	for _, box := range boxes {
		box.Broker = cfg.Broker
		box.Strategy = strat
		wg.Add(1)
		go func(b *SimulatedBox) {
			defer wg.Done()
			if err := b.Run(ctx); err != nil {
				log.Printf("%s: %v", b.ID, err)
			}
		}(box)
	}
	wg.Wait()
}

// Config holds parameters for the simulator.
type Config struct {
	Broker      string
	Boxes       int
	MotesPerBox int
	Latency     time.Duration
	DropRate    float64
	Verbose     bool
}

// Validate rejects configurations that cannot describe a deployment.
func (c Config) Validate() error {
	if c.Boxes <= 0 {
		return fmt.Errorf("boxes must be positive, got %d", c.Boxes)
	}
	if c.MotesPerBox < 0 {
		return fmt.Errorf("motes-per-box must not be negative, got %d", c.MotesPerBox)
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop-rate must be within [0,1], got %g", c.DropRate)
	}
	return nil
}
