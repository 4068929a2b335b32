// Licensed under the MIT license which can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/LB-00/knx-tunnel/knx/cemi"
)

// Config is the bridge configuration, loaded from a yaml file with
// environment overrides.
type Config struct {
	MQTT   MQTTConfig
	KNX    KNXConfig
	Groups map[cemi.GroupAddr]string
}

// MQTTConfig locates the broker.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// KNXConfig locates the KNXnet/IP server.
type KNXConfig struct {
	Server     string
	ServerPort uint16
	Local      string
}

// LoadConfig reads the configuration file. Group addresses are given in
// their three-level form, mapped to the datapoint type of the group.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetEnvPrefix("KNX_MQTT")
	v.AutomaticEnv()

	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.client_id", "knx-mqtt-bridge")
	v.SetDefault("mqtt.topic_prefix", "knx")
	v.SetDefault("knx.server", "127.0.0.1")
	v.SetDefault("knx.server_port", 3671)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := &Config{
		MQTT: MQTTConfig{
			Broker:      v.GetString("mqtt.broker"),
			ClientID:    v.GetString("mqtt.client_id"),
			Username:    v.GetString("mqtt.username"),
			Password:    v.GetString("mqtt.password"),
			TopicPrefix: v.GetString("mqtt.topic_prefix"),
		},
		KNX: KNXConfig{
			Server:     v.GetString("knx.server"),
			ServerPort: uint16(v.GetUint("knx.server_port")),
			Local:      v.GetString("knx.local"),
		},
		Groups: make(map[cemi.GroupAddr]string),
	}

	for name, dptName := range v.GetStringMapString("groups") {
		addr, err := cemi.ParseGroupAddr(name)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}

		config.Groups[addr] = dptName
	}

	if len(config.Groups) == 0 {
		return nil, fmt.Errorf("no groups configured")
	}

	return config, nil
}
