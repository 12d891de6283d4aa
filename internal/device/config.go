package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Transport names
const (
	TransportSerial   = "serial"
	TransportTCP      = "tcp"
	TransportEmulator = "emulator"
)

// Config holds device connection and transfer configuration
type Config struct {
	Transport        string        `mapstructure:"transport" json:"transport" yaml:"transport"`
	Port             string        `mapstructure:"port" json:"port" yaml:"port"`
	Address          string        `mapstructure:"address" json:"address" yaml:"address"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	ProgressInterval uint64        `mapstructure:"progress_interval" json:"progress_interval" yaml:"progress_interval"`
	WatchdogInterval uint64        `mapstructure:"watchdog_interval" json:"watchdog_interval" yaml:"watchdog_interval"`
	ExtCsdDumpPath   string        `mapstructure:"ext_csd_dump" json:"ext_csd_dump" yaml:"ext_csd_dump"`
	EmulatorDir      string        `mapstructure:"emulator_dir" json:"emulator_dir" yaml:"emulator_dir"`
}

// SetDefaults registers the configuration defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("transport", TransportSerial)
	v.SetDefault("port", "/dev/ttyACM0")
	v.SetDefault("address", "127.0.0.1:7342")
	v.SetDefault("read_timeout", "5s")
	v.SetDefault("progress_interval", 10)
	v.SetDefault("watchdog_interval", 0)
	v.SetDefault("ext_csd_dump", "ext_csd.bin")
	v.SetDefault("emulator_dir", "")
}

// LoadConfig loads device configuration using Viper. When configFile is empty
// emmc-config.yaml is searched for in the usual places; a missing file is not
// an error. EMMC_* environment variables override file values.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("emmc-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.emmc")
		v.AddConfigPath("/etc/emmc")
	}

	SetDefaults(v)

	// Allow environment variables
	v.SetEnvPrefix("EMMC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the selected transport has what it needs.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSerial:
		if c.Port == "" {
			return fmt.Errorf("serial transport requires a port")
		}
	case TransportTCP:
		if c.Address == "" {
			return fmt.Errorf("tcp transport requires an address")
		}
	case TransportEmulator:
		if c.EmulatorDir == "" {
			return fmt.Errorf("emulator transport requires emulator_dir")
		}
	default:
		return fmt.Errorf("unknown transport %q (valid: %s, %s, %s)", c.Transport, TransportSerial, TransportTCP, TransportEmulator)
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	return nil
}
