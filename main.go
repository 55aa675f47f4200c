package main

import (
	"os"

	"github.com/openwsn-berkeley/opentb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
