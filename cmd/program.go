package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openwsn-berkeley/opentb/core/dispatch"
	"github.com/openwsn-berkeley/opentb/core/firmware"
	"github.com/openwsn-berkeley/opentb/core/testbed"
)

const supportedBoard = "openmote-b"

var (
	programDevices []string
	programBoard   string
	flashFile      string
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Flash a firmware image on the target motes",
	Long: `program distributes a firmware image to the target motes over MQTT.
The image is checked before dispatch: firmware that would overwrite the
CC2538 bootloader backdoor configuration is refused.`,
	RunE: runProgram,
}

func init() {
	programCmd.Flags().StringSliceVarP(&programDevices, "devices", "d", []string{testbed.Wildcard}, "target motes")
	programCmd.Flags().StringVarP(&flashFile, "flashfile", "x", "", "firmware image to flash (ihex or bin)")
	programCmd.Flags().StringVar(&programBoard, "board", supportedBoard, "target board type")
	_ = programCmd.MarkFlagRequired("flashfile")
	rootCmd.AddCommand(programCmd)
}

func runProgram(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if programBoard != supportedBoard {
		return fmt.Errorf("unsupported board %q, the testbed only hosts %s", programBoard, supportedBoard)
	}
	img, err := firmware.Load(flashFile)
	if err != nil {
		return fmt.Errorf("load firmware: %w", err)
	}
	command, err := dispatch.NewProgramCommand(img)
	if err != nil {
		return err
	}
	return runDispatch(ctx, command, programDevices)
}
