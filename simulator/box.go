package main

import (
	"context"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

// SimulatedMote is one mote hosted by a simulated box.
type SimulatedMote struct {
	EUI64      string
	SerialPort string
}

// request is one pending answer: where to publish and what.
type request struct {
	respTopic string
	payload   []byte
}

// SimulatedBox connects to MQTT and answers testbed commands for itself and
// for its hosted motes, the way the otbox agent does on real hardware. Every
// box listens on its own command topics and on the class broadcast address.
type SimulatedBox struct {
	ID       string
	Motes    []SimulatedMote
	Broker   string
	Strategy ResponseStrategy

	client paho.Client
	reqCh  chan request
}

// Run connects to the broker and answers commands until ctx is done.
func (b *SimulatedBox) Run(ctx context.Context) error {
	cli, err := newMQTTClient(b.Broker, "sim-"+b.ID)
	if err != nil {
		return err
	}
	b.client = cli
	b.reqCh = make(chan request, 50)
	for i := 0; i < 2; i++ {
		go b.worker(ctx)
	}

	for _, kind := range []testbed.CommandKind{testbed.KindEcho, testbed.KindDiscover, testbed.KindChangeSoftware} {
		if err := b.subscribeBox(kind); err != nil {
			cli.Disconnect(250)
			return err
		}
	}
	if err := b.subscribeMotes(); err != nil {
		cli.Disconnect(250)
		return err
	}

	<-ctx.Done()
	cli.Disconnect(250)
	return nil
}

// subscribeBox listens for one box-class command on the box's own address
// and on the broadcast address.
func (b *SimulatedBox) subscribeBox(kind testbed.CommandKind) error {
	for _, id := range []string{b.ID, testbed.Wildcard} {
		topic := testbed.CommandTopic(testbed.ClassBox, testbed.DeviceID(id), kind)
		if token := b.client.Subscribe(topic, 0, b.onBoxCommand(kind)); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

// subscribeMotes listens for the program command on each hosted mote's
// address and once on the mote broadcast address, which every hosted mote
// answers independently.
func (b *SimulatedBox) subscribeMotes() error {
	if len(b.Motes) == 0 {
		return nil
	}
	all := testbed.CommandTopic(testbed.ClassMote, testbed.Wildcard, testbed.KindProgram)
	if token := b.client.Subscribe(all, 0, b.onProgram(b.Motes)); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	for _, m := range b.Motes {
		topic := testbed.CommandTopic(testbed.ClassMote, testbed.DeviceID(m.EUI64), testbed.KindProgram)
		if token := b.client.Subscribe(topic, 0, b.onProgram([]SimulatedMote{m})); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

func (b *SimulatedBox) onBoxCommand(kind testbed.CommandKind) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var payload []byte
		switch kind {
		case testbed.KindEcho:
			payload = buildEchoResponse(msg.Payload())
		case testbed.KindDiscover:
			payload = buildDiscoverResponse(b.Motes)
		default:
			payload = buildCountedResponse()
		}
		b.enqueue(request{
			respTopic: testbed.ResponseTopic(testbed.ClassBox, testbed.DeviceID(b.ID), kind),
			payload:   payload,
		})
	}
}

func (b *SimulatedBox) onProgram(motes []SimulatedMote) paho.MessageHandler {
	return func(_ paho.Client, _ paho.Message) {
		for _, m := range motes {
			b.enqueue(request{
				respTopic: testbed.ResponseTopic(testbed.ClassMote, testbed.DeviceID(m.EUI64), testbed.KindProgram),
				payload:   buildCountedResponse(),
			})
		}
	}
}

func (b *SimulatedBox) enqueue(req request) {
	select {
	case b.reqCh <- req:
	default:
		log.Printf("%s: request queue full, dropping answer on %s", b.ID, req.respTopic)
	}
}

func (b *SimulatedBox) worker(ctx context.Context) {
	for {
		select {
		case req := <-b.reqCh:
			b.Strategy.Respond(ctx, b.client, req.respTopic, req.payload)
		case <-ctx.Done():
			return
		}
	}
}
