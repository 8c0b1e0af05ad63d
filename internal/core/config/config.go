package config

import (
	"errors"
	"time"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultPath is the config file name looked up next to the executable.
const DefaultPath = "chains.toml"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus" yaml:"prometheus"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Chains     []ChainConfig    `mapstructure:"chains"     yaml:"chains,omitempty"`
}

// PrometheusConfig holds the metrics server settings.
type PrometheusConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// Reset clears every gauge on this interval. Zero disables resetting.
	Reset Duration `mapstructure:"reset" yaml:"reset,omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level,omitempty"` // debug, info, warn, error
}

// ChainConfig holds the settings of one chain and the channels watched on it.
type ChainConfig struct {
	ID       string          `mapstructure:"id"        yaml:"id"`
	GRPCAddr string          `mapstructure:"grpc_addr" yaml:"grpc_addr"`
	Channels []ChannelConfig `mapstructure:"channels"  yaml:"channels,omitempty"`
}

// ChannelConfig is a channel entry as written in the file. MinTotal stays a
// string so that the exposed label matches the configured text.
type ChannelConfig struct {
	PortID                        string        `mapstructure:"port_id"                           yaml:"port_id"`
	ChannelID                     string        `mapstructure:"channel_id"                        yaml:"channel_id"`
	DestinationChainID            string        `mapstructure:"destination_chain_id"              yaml:"destination_chain_id"`
	MinTotal                      string        `mapstructure:"min_total"                         yaml:"min_total"`
	Refresh                       Duration      `mapstructure:"refresh"                           yaml:"refresh"`
	MinTimeBeforeClientExpiration string        `mapstructure:"min_time_before_client_expiration" yaml:"min_time_before_client_expiration,omitempty"`
}

// Duration is a time.Duration that is written back out in its string form.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
