package sim

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Config describes the simulated bus.
type Config struct {
	// Targets lists memory targets as ADDR:SIZE pairs separated by commas,
	// e.g. 0x50:256,0x64:16.
	Targets string

	StopDelay time.Duration
}

var defaultConfig = Config{
	Targets:   "0x50:256",
	StopDelay: 20 * time.Microsecond,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Targets, "sim-targets", defaultConfig.Targets, "Simulated memory targets ADDR:SIZE,...")
	flag.DurationVar(&defaultConfig.StopDelay, "sim-stop-delay", defaultConfig.StopDelay, "Simulated STOP duration")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewBus creates a Bus with the configured targets attached.
func (c *Config) NewBus() (*Bus, map[byte]*Memory, error) {
	b := NewBus()
	b.StopDelay = c.StopDelay
	mems := make(map[byte]*Memory)
	for _, item := range strings.Split(c.Targets, ",") {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		pair := strings.SplitN(item, ":", 2)
		if len(pair) != 2 {
			return nil, nil, fmt.Errorf("invalid target %q, expect ADDR:SIZE", item)
		}
		addr, err := strconv.ParseUint(pair[0], 0, 7)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid target address %q: %w", pair[0], err)
		}
		size, err := strconv.Atoi(pair[1])
		if err != nil || size <= 0 || size > 256 {
			return nil, nil, fmt.Errorf("invalid target size %q", pair[1])
		}
		if _, exist := mems[byte(addr)]; exist {
			return nil, nil, fmt.Errorf("duplicated target address 0x%02x", addr)
		}
		mem := NewMemory(size)
		mems[byte(addr)] = mem
		b.Attach(byte(addr), mem)
	}
	return b, mems, nil
}

// MustNewBus creates a Bus and fails on error.
func (c *Config) MustNewBus() (*Bus, map[byte]*Memory) {
	b, mems, err := c.NewBus()
	if err != nil {
		log.Fatalln(err)
	}
	return b, mems
}
