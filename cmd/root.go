package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openwsn-berkeley/opentb/config"
	"github.com/openwsn-berkeley/opentb/infra/logger"
)

var (
	cfgPath  string
	broker   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "opentb",
	Short: "OpenTestbed fleet control",
	Long: `opentb drives an OpenTestbed deployment over MQTT: it discovers the
motes attached to each otbox, checks box liveness, flashes firmware on
the motes, rolls out otbox software updates and records testbed traffic
to disk.`,
	Example: `  opentb echo
  opentb discover -d otbox05,otbox13
  opentb program -x firmware/main.ihex
  opentb record testlogs --runtime 60`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.SetLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&broker, "broker", "b", "", "MQTT broker address")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "loglevel", "l", "info", "log level (debug, info, warn, error)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the optional configuration file and applies command
// line overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	return cfg, nil
}
