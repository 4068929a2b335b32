// Licensed under the MIT license which can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LB-00/knx-tunnel/knx"
	"github.com/LB-00/knx-tunnel/knx/cemi"
	"github.com/LB-00/knx-tunnel/knx/dpt"
)

var (
	writeDPT     string
	writeTimeout time.Duration
)

var writeCmd = &cobra.Command{
	Use:   "write <group address> <value>",
	Short: "Encode a value and send it as a group write",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cemi.ParseGroupAddr(args[0])
		if err != nil {
			return err
		}

		value, err := dpt.Parse(writeDPT, args[1])
		if err != nil {
			return err
		}

		data, err := dpt.Encode(writeDPT, value)
		if err != nil {
			return err
		}

		handler := newCLIHandler(logger)

		tunnel, err := openTunnel(handler)
		if err != nil {
			return err
		}
		defer tunnel.Stop()

		tunnel.Cast(knx.OutboundGroupEvent(knx.GroupEvent{
			Command:     knx.GroupWrite,
			Destination: addr,
			Data:        data,
		}, tunnel.BusAddr()))

		select {
		case <-handler.acks:
			logger.Debug("write acknowledged", "destination", addr)
			return nil

		case <-tunnel.Done():
			return fmt.Errorf("tunnel stopped")

		case <-time.After(writeTimeout):
			return fmt.Errorf("write to %v was not acknowledged within %v", addr, writeTimeout)
		}
	},
}

func init() {
	writeCmd.Flags().StringVar(&writeDPT, "dpt", "1.001", "datapoint type of the value")
	writeCmd.Flags().DurationVar(&writeTimeout, "timeout", 5*time.Second, "time to wait for the acknowledgement")
}
