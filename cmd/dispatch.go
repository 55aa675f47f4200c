package cmd

import (
	"context"
	"fmt"

	"github.com/openwsn-berkeley/opentb/core/dispatch"
	"github.com/openwsn-berkeley/opentb/core/events"
	"github.com/openwsn-berkeley/opentb/core/testbed"
	"github.com/openwsn-berkeley/opentb/infra/logger"
	"github.com/openwsn-berkeley/opentb/infra/mqtt"
	"github.com/openwsn-berkeley/opentb/internal/eventbus"
)

// runDispatch wires a testbed command against the broker and runs it to
// completion. The runner owns the MQTT session once constructed and tears
// it down on every exit path.
func runDispatch(ctx context.Context, command dispatch.Command, devices []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logg := logger.New(string(command.Kind()))
	targets := testbed.NewTargetSet(devices...)

	session, err := mqtt.Dial(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt session: %w", err)
	}

	bus := eventbus.New()
	defer bus.Close()
	evCh := bus.Subscribe()
	go func() {
		for ev := range evCh {
			if resp, ok := ev.(events.ResponseEvent); ok {
				logg.Debugw("response", map[string]any{
					"device":  string(resp.Device),
					"success": resp.Success,
					"latency": resp.Latency.String(),
				})
			}
		}
	}()

	runner, err := dispatch.NewRunner(session, cfg.Dispatch.Timeout(), cfg.Dispatch.FleetSize(), logg, bus)
	if err != nil {
		session.Close()
		return fmt.Errorf("dispatch runner: %w", err)
	}
	if _, err := runner.Run(ctx, command, targets); err != nil {
		return fmt.Errorf("%s: %w", command.Kind(), err)
	}
	return nil
}
