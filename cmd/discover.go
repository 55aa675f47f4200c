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

var discoverDevices []string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the motes attached to each otbox",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().StringSliceVarP(&discoverDevices, "devices", "d", []string{testbed.Wildcard}, "target otboxes")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDispatch(ctx, dispatch.DiscoverCommand{}, discoverDevices)
}
