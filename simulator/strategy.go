package main

import (
	"context"
	"log"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// ResponseStrategy defines how a simulated device answers a command.
type ResponseStrategy interface {
	Respond(ctx context.Context, cli paho.Client, topic string, payload []byte)
}

// AutoResponder answers every command after an optional fixed delay.
type AutoResponder struct {
	Delay time.Duration
}

// Respond implements ResponseStrategy.
func (a AutoResponder) Respond(ctx context.Context, cli paho.Client, topic string, payload []byte) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishResponse(cli, topic, payload)
}

// FlakyResponder stays mute with the configured probability and waits for
// the delay before answering. Muted commands surface as MUTE devices in the
// dispatch report, which makes timeout handling observable end to end.
type FlakyResponder struct {
	Delay    time.Duration
	DropRate float64
}

// Respond implements ResponseStrategy.
func (f FlakyResponder) Respond(ctx context.Context, cli paho.Client, topic string, payload []byte) {
	if f.DropRate > 0 && rng.Float64() < f.DropRate {
		return
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishResponse(cli, topic, payload)
}

func publishResponse(cli paho.Client, topic string, payload []byte) {
	token := cli.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("response publish timeout on %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("publish response error on %s: %v", topic, err)
	}
}
