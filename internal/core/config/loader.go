package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/ibc-watcher/internal/core/domain"
)

// Load reads configuration from a TOML or YAML file and validates it.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	configType := strings.TrimPrefix(filepath.Ext(path), ".")
	switch configType {
	case "yaml", "yml":
		configType = "yaml"
	default:
		configType = "toml"
	}

	return Parse(data, configType)
}

// Parse decodes raw configuration of the given type ("toml" or "yaml").
func Parse(data []byte, configType string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType(configType)
	setDefaults(v)

	// Expand environment variables in the content
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var cfg AppConfig
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
		dc.DecodeHook = durationHook()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	applyDefaults(&cfg)

	if _, err := cfg.ChainSpecs(); err != nil {
		return nil, err
	}
	if cfg.Prometheus.Port <= 0 || cfg.Prometheus.Port > 65535 {
		return nil, fmt.Errorf("%w: prometheus port %d out of range", ErrInvalidConfig, cfg.Prometheus.Port)
	}
	if cfg.Prometheus.Reset < 0 {
		return nil, fmt.Errorf("%w: prometheus reset must not be negative", ErrInvalidConfig)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prometheus.host", "0.0.0.0")
	v.SetDefault("prometheus.port", 9090)
	v.SetDefault("logging.level", "info")
}

// viper defaults do not reach into array-of-tables entries.
func applyDefaults(cfg *AppConfig) {
	for i := range cfg.Chains {
		for j := range cfg.Chains[i].Channels {
			if cfg.Chains[i].Channels[j].Refresh == 0 {
				cfg.Chains[i].Channels[j].Refresh = Duration(domain.DefaultRefresh)
			}
		}
	}
}

// ChainSpecs converts the raw configuration into validated domain specs.
func (c *AppConfig) ChainSpecs() ([]domain.ChainSpec, error) {
	specs := make([]domain.ChainSpec, 0, len(c.Chains))

	for _, chain := range c.Chains {
		if chain.ID == "" {
			return nil, fmt.Errorf("%w: chain without id", ErrInvalidConfig)
		}
		if chain.GRPCAddr == "" {
			return nil, fmt.Errorf("%w: chain %s has no grpc_addr", ErrInvalidConfig, chain.ID)
		}

		spec := domain.ChainSpec{
			ChainID:         domain.ChainID(chain.ID),
			EndpointAddress: chain.GRPCAddr,
			Channels:        make([]domain.ChannelSpec, 0, len(chain.Channels)),
		}

		for _, ch := range chain.Channels {
			channel, err := ch.spec()
			if err != nil {
				return nil, fmt.Errorf("%w: chain %s channel %s/%s: %v",
					ErrInvalidConfig, chain.ID, ch.PortID, ch.ChannelID, err)
			}
			spec.Channels = append(spec.Channels, channel)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func (c ChannelConfig) spec() (domain.ChannelSpec, error) {
	if c.PortID == "" || c.ChannelID == "" {
		return domain.ChannelSpec{}, fmt.Errorf("port_id and channel_id are required")
	}

	minTotal, err := ParseMinTotal(c.MinTotal)
	if err != nil {
		return domain.ChannelSpec{}, err
	}

	refresh := c.Refresh.Std()
	if refresh == 0 {
		refresh = domain.DefaultRefresh
	}
	if refresh < 0 {
		return domain.ChannelSpec{}, fmt.Errorf("refresh must be positive, got %s", refresh)
	}

	spec := domain.ChannelSpec{
		PortID:             c.PortID,
		ChannelID:          c.ChannelID,
		DestinationChainID: domain.ChainID(c.DestinationChainID),
		Refresh:            refresh,
		MinTotal:           minTotal,
	}

	if c.MinTimeBeforeClientExpiration != "" {
		d, err := ParseDuration(c.MinTimeBeforeClientExpiration)
		if err != nil {
			return domain.ChannelSpec{}, fmt.Errorf("min_time_before_client_expiration: %w", err)
		}
		spec.MinTimeBeforeClientExpiration = &d
	}

	return spec, nil
}

// Store writes the effective configuration as YAML.
func Store(cfg *AppConfig, w io.Writer) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = w.Write(out)
	return err
}
