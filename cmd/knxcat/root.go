// Licensed under the MIT license which can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LB-00/knx-tunnel/knx"
	"github.com/LB-00/knx-tunnel/knx/knxnet"
)

var (
	cfgFile    string
	serverIP   string
	serverPort uint16
	localIP    string
	verbose    bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "knxcat",
	Short: "A KNXnet/IP Tunnelling client CLI",
	Long: `knxcat talks to a KNXnet/IP server over a tunnel connection.

It can monitor group traffic, read group values and write group values,
with optional datapoint decoding.

Examples:
  # Print decoded group traffic
  knxcat monitor --server 192.168.1.10

  # Read a group value and decode it as a temperature
  knxcat read 1/2/3 --dpt 9.001

  # Switch a light on
  knxcat write 1/2/4 true --dpt 1.001`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))

		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.knxcat.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverIP, "server", "s", "127.0.0.1", "KNXnet/IP server address")
	rootCmd.PersistentFlags().Uint16Var(&serverPort, "server-port", knxnet.DefaultPort, "KNXnet/IP server control port")
	rootCmd.PersistentFlags().StringVar(&localIP, "local", "", "local address to bind to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("server-port", rootCmd.PersistentFlags().Lookup("server-port"))
	viper.BindPFlag("local", rootCmd.PersistentFlags().Lookup("local"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".knxcat")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("KNX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// tunnelConfig builds the tunnel configuration from the global flags.
func tunnelConfig() knx.TunnelConfig {
	return knx.TunnelConfig{
		LocalIP:           viper.GetString("local"),
		ServerIP:          viper.GetString("server"),
		ServerControlPort: uint16(viper.GetUint("server-port")),
		Logger:            logger,
	}
}

// openTunnel connects a tunnel with the given handler and waits for the
// first connection to be established.
func openTunnel(handler *cliHandler) (*knx.Tunnel, error) {
	tunnel, err := knx.NewTunnel(handler, tunnelConfig())
	if err != nil {
		return nil, err
	}

	select {
	case <-handler.connected:
		return tunnel, nil

	case <-tunnel.Done():
		return nil, fmt.Errorf("tunnel stopped before a connection was established")

	case <-time.After(15 * time.Second):
		tunnel.Stop()
		return nil, fmt.Errorf("timed out waiting for a connection")
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("knxcat version 1.0.0")
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
