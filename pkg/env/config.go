// Package env connects commands to a bridge by URL.
package env

import (
	"flag"
	"os"
)

// Config selects the bridge transport.
type Config struct {
	// BridgeURL is one of
	//   mqtt://host:port/topic-prefix/
	//   tcp://host:port
	//   ws://host:port/path
	BridgeURL string

	// ID names the bridge under the MQTT topic prefix.
	ID string
}

var defaultConfig = Config{
	BridgeURL: "mqtt://localhost:1883/lillib/",
}

func init() {
	if val := os.Getenv("LILLIB_BRIDGE_URL"); val != "" {
		defaultConfig.BridgeURL = val
	}
	if val := os.Getenv("LILLIB_BRIDGE_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BridgeURL, "bridge", defaultConfig.BridgeURL, "Bridge URL (mqtt://, tcp://, ws://)")
	flag.StringVar(&defaultConfig.ID, "bridge-id", defaultConfig.ID, "Bridge ID")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
