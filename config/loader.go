package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix = "PACT"

// Load reads configuration from an optional YAML file and the environment,
// layered over the defaults, and validates the result. A missing file is
// not an error; a malformed or invalid one is.
//
// Environment variables override file values, with keys joined by
// underscores, e.g. PACT_FLOOD_MAX_RATE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	setDefaults(v, defaults)

	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("could not read config file %s: %w", path, err)
			}
		}
	}

	conf := &Config{}
	err := v.Unmarshal(conf, func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal configuration: %w", err)
	}

	err = conf.Validate()
	if err != nil {
		return nil, err
	}
	return conf, nil
}

// setDefaults registers every default value with viper, so partial files
// and env overrides merge onto a complete configuration.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("flood.min-rate", defaults.Flood.MinRate)
	v.SetDefault("flood.max-rate", defaults.Flood.MaxRate)
	v.SetDefault("flood.ramp-up-factor", defaults.Flood.RampUpFactor)
	v.SetDefault("flood.ramp-down-factor", defaults.Flood.RampDownFactor)
	v.SetDefault("session.tick-interval", defaults.Session.TickInterval)
	v.SetDefault("session.timeout", defaults.Session.Timeout)
	v.SetDefault("session.grace-period", defaults.Session.GracePeriod)
	v.SetDefault("session.queue-capacity", defaults.Session.QueueCapacity)
	v.SetDefault("committee.total-nodes", defaults.Committee.TotalNodes)
	v.SetDefault("committee.threshold", defaults.Committee.Threshold)
}
