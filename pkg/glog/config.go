package glog

import (
	"os"

	"gopkg.in/yaml.v3"

	"pulse/pkg/lib/xerror"
)

// Config controls the global logger.
type Config struct {
	// Path is the log file path. Empty disables the file sink.
	Path string `json:"path" yaml:"path"`
	// Level is one of: debug, info, warn, error, panic, fatal.
	Level string `json:"level" yaml:"level"`
	// PrintConsole tees log output to stdout.
	PrintConsole bool `json:"printConsole" yaml:"printConsole"`
	// File holds the rotation settings for the file sink.
	File FileConfig `json:"file" yaml:"file"`
}

// FileConfig is the lumberjack rotation config.
type FileConfig struct {
	// MaxSize is the maximum size in MB before rotation.
	MaxSize int `json:"maxSize" yaml:"maxSize"`
	// MaxBackups is the maximum number of rotated files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`
	// MaxAge is the maximum age in days of a rotated file.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
	// LocalTime uses local time in rotated file names.
	LocalTime bool `json:"localTime" yaml:"localTime"`
	// Compress gzips rotated files.
	Compress bool `json:"compress" yaml:"compress"`
}

func DefaultConfig() *Config {
	return &Config{
		Level:        "info",
		PrintConsole: true,
		File: FileConfig{
			MaxSize:    500,
			MaxBackups: 100,
			MaxAge:     30,
			LocalTime:  true,
		},
	}
}

// LoadFile reads a YAML config file, overlaying it on the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerror.Wrap(err, "glog: read config file")
	}
	cfg := DefaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, xerror.Wrap(err, "glog: unmarshal config")
	}
	return cfg, nil
}
