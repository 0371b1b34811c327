package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ORACLEWATCH"

// WaitConfig holds configuration for the wait command.
type WaitConfig struct {
	Schema         string
	Module         string
	Event          string
	Register       map[string]string
	Payload        string
	In             string
	Record         string
	RPCURL         string
	Xt             string
	Timeout        time.Duration
	Out            string
	PGDSN          string
	Checkpoint     string
	CheckpointName string
	FromBlock      uint64
	PollInterval   time.Duration
	BatchSize      uint64
	MaxRetries     int
	RetryBackoff   time.Duration
	LogLevel       string
}

// LoadWait merges config file, environment variables, and flags into WaitConfig.
func LoadWait(cfgFile string, flags *pflag.FlagSet) (WaitConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"module":          "OracleModule",
		"event":           "OracleCreated",
		"payload":         "raw",
		"checkpoint-name": "oraclewatch",
		"poll-interval":   6 * time.Second,
		"batch-size":      uint64(50),
		"max-retries":     5,
		"retry-backoff":   500 * time.Millisecond,
		"log-level":       "info",
	})
	if err != nil {
		return WaitConfig{}, err
	}

	cfg := WaitConfig{
		Schema:         v.GetString("schema"),
		Module:         v.GetString("module"),
		Event:          v.GetString("event"),
		Register:       getRegistrations(v, "register"),
		Payload:        v.GetString("payload"),
		In:             v.GetString("in"),
		Record:         v.GetString("record"),
		RPCURL:         v.GetString("rpc"),
		Xt:             v.GetString("xt"),
		Timeout:        v.GetDuration("timeout"),
		Out:            v.GetString("out"),
		PGDSN:          v.GetString("pg-dsn"),
		Checkpoint:     v.GetString("checkpoint"),
		CheckpointName: v.GetString("checkpoint-name"),
		FromBlock:      v.GetUint64("from"),
		PollInterval:   v.GetDuration("poll-interval"),
		BatchSize:      v.GetUint64("batch-size"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the combinations the wait command cannot run with.
func (c WaitConfig) Validate() error {
	if c.Schema == "" {
		return fmt.Errorf("schema path is required")
	}
	if c.Module == "" || c.Event == "" {
		return fmt.Errorf("module and event are required")
	}
	if c.In == "" && c.RPCURL == "" {
		return fmt.Errorf("one of --in or --rpc is required")
	}
	if c.In != "" && c.RPCURL != "" && c.Xt == "" {
		return fmt.Errorf("--in and --rpc are exclusive unless --xt is set")
	}
	if c.Xt != "" && c.RPCURL == "" {
		return fmt.Errorf("--xt requires --rpc")
	}
	switch c.Payload {
	case "raw", "oracle-created":
	default:
		return fmt.Errorf("unknown payload %q (raw, oracle-created)", c.Payload)
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

// getRegistrations accepts name=rule pairs as a comma-separated string or a
// list, which keeps type names case-sensitive. A YAML mapping also works but
// viper lowercases its keys.
func getRegistrations(v *viper.Viper, key string) map[string]string {
	if _, ok := v.Get(key).(map[string]interface{}); ok {
		return getStringMap(v, key)
	}
	return parseStringMap(strings.Join(getStringSlice(v, key), ","))
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
