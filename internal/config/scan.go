package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ScanConfig holds configuration for the scan command.
type ScanConfig struct {
	Schema   string
	In       []string
	Register map[string]string
	Out      string
	Errors   string
	LogLevel string
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return ScanConfig{}, err
	}

	cfg := ScanConfig{
		Schema:   v.GetString("schema"),
		In:       getStringSlice(v, "in"),
		Register: getRegistrations(v, "register"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Schema == "" {
		return ScanConfig{}, fmt.Errorf("schema path is required")
	}
	if len(cfg.In) == 0 {
		return ScanConfig{}, fmt.Errorf("at least one input file is required")
	}

	return cfg, nil
}
