package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkpoint-builder/checkpoint"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Config holds everything both binaries read from config/config.yaml
type Config struct {
	Network     string
	Interval    uint32
	MinAge      time.Duration
	Known       *checkpoint.KnownCheckpoint
	StartHeight uint32

	LevelDBPath     string
	OutputPath      string
	CheckpointsPath string

	LogFile  string
	LogLevel string

	ServerPort int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", "mainnet")
	v.SetDefault("sync.start_height", 0)
	v.SetDefault("leveldb.path", "data/headers")
	v.SetDefault("output.path", "checkpoints")
	v.SetDefault("checkpoints.path", "checkpoints")
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.port", 8080)
}

// Load reads the YAML file at path. Any key can be overridden from the
// environment as CHECKPOINTS_<KEY>, with dots replaced by underscores.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("checkpoints")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Network:         v.GetString("network"),
		StartHeight:     v.GetUint32("sync.start_height"),
		LevelDBPath:     v.GetString("leveldb.path"),
		OutputPath:      v.GetString("output.path"),
		CheckpointsPath: v.GetString("checkpoints.path"),
		LogFile:         v.GetString("log.app_log_file"),
		LogLevel:        v.GetString("log.level"),
		ServerPort:      v.GetInt("server.port"),
	}

	net := v.Sub("networks." + cfg.Network)
	if net == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, cfg.Network)
	}
	cfg.Interval = net.GetUint32("interval")
	cfg.MinAge = net.GetDuration("min_age")

	if net.IsSet("verify") {
		hash, err := parseHash(net.GetString("verify.hash"))
		if err != nil {
			return nil, fmt.Errorf("%w: networks.%s.verify.hash: %v", ErrInvalidConfig, cfg.Network, err)
		}
		cfg.Known = &checkpoint.KnownCheckpoint{
			BeforeTime: net.GetInt64("verify.before_time"),
			Height:     net.GetUint32("verify.height"),
			Hash:       hash,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs basic validation of the config
func (c *Config) Validate() error {
	switch {
	case c.Interval == 0:
		return fmt.Errorf("%w: networks.%s.interval must be positive", ErrInvalidConfig, c.Network)
	case c.MinAge < 0:
		return fmt.Errorf("%w: networks.%s.min_age is negative", ErrInvalidConfig, c.Network)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output.path is empty", ErrInvalidConfig)
	case c.LevelDBPath == "":
		return fmt.Errorf("%w: leveldb.path is empty", ErrInvalidConfig)
	}
	return nil
}

// Policy builds the selection policy relative to now
func (c *Config) Policy(now time.Time) checkpoint.Policy {
	return checkpoint.Policy{
		Interval: c.Interval,
		MinAge:   c.MinAge,
		Now:      now,
	}
}

func parseHash(s string) (common.Hash, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*common.HashLength {
		return common.Hash{}, fmt.Errorf("want %d hex characters, got %d", 2*common.HashLength, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}
