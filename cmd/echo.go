package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openwsn-berkeley/opentb/core/dispatch"
	"github.com/openwsn-berkeley/opentb/core/testbed"
)

var echoDevices []string

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Check which otboxes are alive",
	RunE:  runEcho,
}

func init() {
	echoCmd.Flags().StringSliceVarP(&echoDevices, "devices", "d", []string{testbed.Wildcard}, "target otboxes")
	rootCmd.AddCommand(echoCmd)
}

func runEcho(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDispatch(ctx, dispatch.EchoCommand{}, echoDevices)
}
