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
	readDPT     string
	readTimeout time.Duration
)

var readCmd = &cobra.Command{
	Use:   "read <group address>",
	Short: "Send a group read and await the response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cemi.ParseGroupAddr(args[0])
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
			Command:     knx.GroupRead,
			Destination: addr,
		}, tunnel.BusAddr()))

		deadline := time.After(readTimeout)

		for {
			select {
			case <-deadline:
				return fmt.Errorf("no response from %v within %v", addr, readTimeout)

			case <-tunnel.Done():
				return fmt.Errorf("tunnel stopped")

			case ev := <-handler.events:
				if ev.Command != knx.GroupResponse || ev.Destination != addr {
					continue
				}

				if readDPT != "" {
					value, err := dpt.Decode(readDPT, ev.Data)
					if err != nil {
						return err
					}

					fmt.Println(value)
					return nil
				}

				fmt.Printf("% x\n", ev.Data)
				return nil
			}
		}
	},
}

func init() {
	readCmd.Flags().StringVar(&readDPT, "dpt", "", "decode the response as the given datapoint type")
	readCmd.Flags().DurationVar(&readTimeout, "timeout", 5*time.Second, "time to wait for the response")
}
