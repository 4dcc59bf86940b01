package twi

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
)

// Config defines the bus timing and waiting policy.
type Config struct {
	// CPUFrequency is the peripheral clock in Hz.
	CPUFrequency uint32

	// BitRate is the target SCL frequency in Hz.
	BitRate uint32

	// OwnAddress is programmed into the slave address register.
	OwnAddress byte

	// Timeout bounds each transaction including its STOP. Zero relies on
	// the caller's context alone.
	Timeout time.Duration

	// StopPollInterval is how often the control register is polled
	// while waiting for STOP.
	StopPollInterval time.Duration
}

// Defaults.
const (
	DefaultCPUFrequency     uint32        = 16000000
	DefaultBitRate          uint32        = 100000
	DefaultOwnAddress       byte          = 0x55
	DefaultTimeout          time.Duration = 100 * time.Millisecond
	DefaultStopPollInterval time.Duration = 50 * time.Microsecond
)

var defaultConfig = Config{
	CPUFrequency:     DefaultCPUFrequency,
	BitRate:          DefaultBitRate,
	OwnAddress:       DefaultOwnAddress,
	Timeout:          DefaultTimeout,
	StopPollInterval: DefaultStopPollInterval,
}

func init() {
	if val := os.Getenv("LILLIB_TWI_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.Timeout = d
		} else {
			glog.Warningf("ignore LILLIB_TWI_TIMEOUT: %v", err)
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Func("twi-cpu-freq", "Peripheral clock in Hz", uintFlag(&defaultConfig.CPUFrequency))
	flag.Func("twi-bitrate", "SCL frequency in Hz", uintFlag(&defaultConfig.BitRate))
	flag.DurationVar(&defaultConfig.Timeout, "twi-timeout", defaultConfig.Timeout, "Transaction timeout, 0 to wait for the caller only")
}

func uintFlag(v *uint32) func(string) error {
	return func(s string) error {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return err
		}
		*v = uint32(n)
		return nil
	}
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

// NewEngine creates an Engine for p using the config and initializes it.
func (c *Config) NewEngine(p Peripheral) (*Engine, error) {
	e := &Engine{Peripheral: p, Config: *c}
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustNewEngine creates an Engine and fails on error.
func (c *Config) MustNewEngine(p Peripheral) *Engine {
	e, err := c.NewEngine(p)
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

var prescalers = [...]uint32{1, 4, 16, 64}

// BitRateDivisor computes the bit rate register value and prescaler select
// bits for SCL = CPU / (16 + 2 * divisor * prescaler), using the smallest
// prescaler that fits.
func BitRateDivisor(cpu, scl uint32) (divisor, prescaler byte, err error) {
	if scl == 0 || cpu/scl < 16 {
		return 0, 0, fmt.Errorf("twi: bit rate %d Hz unreachable from %d Hz", scl, cpu)
	}
	n := (cpu/scl - 16) / 2
	for sel, mult := range prescalers {
		if v := n / mult; v <= 0xff {
			return byte(v), byte(sel), nil
		}
	}
	return 0, 0, fmt.Errorf("twi: bit rate %d Hz too slow for %d Hz", scl, cpu)
}

// BitRate returns the SCL frequency produced by divisor and prescaler.
func BitRate(cpu uint32, divisor, prescaler byte) uint32 {
	return cpu / (16 + 2*uint32(divisor)*prescalers[prescaler&3])
}
