// Licensed under the MIT license which can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LB-00/knx-tunnel/knx"
	"github.com/LB-00/knx-tunnel/knx/dpt"
)

var monitorDPT string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print group traffic as it appears on the bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := newCLIHandler(logger)

		tunnel, err := openTunnel(handler)
		if err != nil {
			return err
		}
		defer tunnel.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-sig:
				return nil

			case <-tunnel.Done():
				return fmt.Errorf("tunnel stopped")

			case ev := <-handler.events:
				printEvent(ev, monitorDPT)
			}
		}
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorDPT, "dpt", "", "decode payloads as the given datapoint type")
}

// printEvent writes one event line, decoding the payload when a datapoint
// type was given.
func printEvent(ev knx.GroupEvent, dptName string) {
	stamp := time.Now().Format("15:04:05.000")

	if dptName != "" && ev.Command != knx.GroupRead {
		if value, err := dpt.Decode(dptName, ev.Data); err == nil {
			fmt.Printf("%s %-8v %v -> %v  %v\n", stamp, ev.Command, ev.Source, ev.Destination, value)
			return
		}
	}

	fmt.Printf("%s %-8v %v -> %v  % x\n", stamp, ev.Command, ev.Source, ev.Destination, ev.Data)
}
