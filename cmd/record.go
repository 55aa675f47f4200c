package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwsn-berkeley/opentb/infra/datalog"
	"github.com/openwsn-berkeley/opentb/infra/logger"
	"github.com/openwsn-berkeley/opentb/infra/mqtt"
)

var (
	recordTopic     string
	recordName      string
	recordRuntime   float64
	recordTimestamp int64
	metricsAddr     string
)

var recordCmd = &cobra.Command{
	Use:   "record [directory]",
	Short: "Record testbed traffic to a JSON Lines file",
	Long: `record subscribes to a data topic and appends every JSON payload it
receives to a timestamped JSON Lines file, one message per line. With a
runtime of zero it records until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordTopic, "data-topic", "", "MQTT topic to record")
	recordCmd.Flags().StringVarP(&recordName, "name", "n", "", "log file name prefix")
	recordCmd.Flags().Float64VarP(&recordRuntime, "runtime", "e", 0, "recording duration in seconds, 0 runs until interrupted")
	recordCmd.Flags().Int64VarP(&recordTimestamp, "timestamp", "t", 0, "unix timestamp for the log file name, 0 uses the current time")
	recordCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rc := cfg.Record
	if len(args) == 1 {
		rc.Directory = args[0]
	}
	if recordTopic != "" {
		rc.DataTopic = recordTopic
	}
	if recordName != "" {
		rc.Name = recordName
	}
	if metricsAddr != "" {
		rc.MetricsAddr = metricsAddr
	}

	logg := logger.New("record")

	jsonl, err := datalog.NewJSONLSink(rc.Directory, rc.Name, recordTimestamp)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logg.Infof("recording %s to %s", rc.DataTopic, jsonl.Path())

	var sink datalog.Sink = jsonl
	if rc.Influx.Enabled() {
		sink = datalog.NewMultiSink(jsonl, datalog.NewInfluxSinkWithFallback(rc.Influx))
	}

	if rc.MetricsAddr != "" {
		go func() {
			if err := datalog.StartMetricsServer(ctx, rc.MetricsAddr); err != nil {
				logg.Errorf("metrics server: %v", err)
			}
		}()
	}

	session, err := mqtt.Dial(cfg.MQTT)
	if err != nil {
		if cerr := sink.Close(); cerr != nil {
			logg.Errorf("close sink: %v", cerr)
		}
		return fmt.Errorf("mqtt session: %w", err)
	}
	rec, err := datalog.NewRecorder(session, sink, rc.DataTopic, logg)
	if err != nil {
		session.Close()
		if cerr := sink.Close(); cerr != nil {
			logg.Errorf("close sink: %v", cerr)
		}
		return err
	}

	runErr := rec.Run(ctx, time.Duration(recordRuntime*float64(time.Second)))
	if cerr := sink.Close(); cerr != nil {
		logg.Errorf("close sink: %v", cerr)
	}
	return runErr
}
