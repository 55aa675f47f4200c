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

var (
	changeDevices []string
	softwareURL   string
	softwareTag   string
)

var changeSoftwareCmd = &cobra.Command{
	Use:   "changesoftware",
	Short: "Roll out a new otbox software version",
	Long: `changesoftware instructs the target otboxes to fetch and install a new
software release. The download URL is probed before dispatch so a typo
does not strand the fleet on a dead link.`,
	RunE: runChangeSoftware,
}

func init() {
	changeSoftwareCmd.Flags().StringSliceVarP(&changeDevices, "devices", "d", []string{testbed.Wildcard}, "target otboxes")
	changeSoftwareCmd.Flags().StringVarP(&softwareURL, "url", "u", "", "URL of the software release to install")
	changeSoftwareCmd.Flags().StringVarP(&softwareTag, "version", "v", "", "version tag to install")
	_ = changeSoftwareCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(changeSoftwareCmd)
}

func runChangeSoftware(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, err := dispatch.NewChangeSoftwareCommand(softwareURL, softwareTag)
	if err != nil {
		return err
	}
	return runDispatch(ctx, command, changeDevices)
}
