package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutput       = "transfers.txt"
	DefaultMaxDistance  = 500
	DefaultWalkingSpeed = 0.785
)

type Config struct {
	Transfers TransfersConfig `yaml:",inline"`
	Logging   LoggingConfig   `yaml:",inline"`
}

// TransfersConfig drives one stops.txt -> transfers.txt run
type TransfersConfig struct {
	InputPath    string  `yaml:"input" validate:"required"`
	OutputPath   string  `yaml:"output" validate:"required"`
	MaxDistance  float64 `yaml:"max_distance" validate:"notnan"`
	WalkingSpeed float64 `yaml:"walking_speed" validate:"gt=0"`
	TransferTime uint32  `yaml:"transfer_time"`
}

type LoggingConfig struct {
	Level    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	FilePath string `yaml:"log_file"`
}

// Load builds the configuration from, in increasing priority: built-in
// defaults, environment variables, the YAML file named by --config, and
// flags given on the command line. The result is validated. On --help the
// flag usage is written to usage and pflag.ErrHelp returned.
func Load(args []string, usage io.Writer) (Config, error) {
	cfg := fromEnv()

	fs := pflag.NewFlagSet("stops2transfers", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)
	configPath := fs.StringP("config", "c", "", "optional YAML configuration file")
	input := fs.StringP("input", "i", cfg.Transfers.InputPath, "GTFS stops.txt file (or GTFS zip)")
	output := fs.StringP("output", "o", cfg.Transfers.OutputPath, "GTFS transfers.txt file")
	maxDistance := fs.Float64P("max-distance", "d", cfg.Transfers.MaxDistance,
		"the max distance in meters to compute the transfer")
	walkingSpeed := fs.Float64P("walking-speed", "s", cfg.Transfers.WalkingSpeed,
		"the walking speed in meters per second. You may want to divide your initial speed by sqrt(2) to simulate Manhattan distances")
	transferTime := fs.Uint32P("transfer-time", "t", cfg.Transfers.TransferTime, "transfer time in seconds added to every transfer")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(usage, "Usage of stops2transfers:\n%s", fs.FlagUsages())
		}
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *configPath != "" {
		if err := mergeFile(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	}

	if fs.Changed("input") {
		cfg.Transfers.InputPath = *input
	}
	if fs.Changed("output") {
		cfg.Transfers.OutputPath = *output
	}
	if fs.Changed("max-distance") {
		cfg.Transfers.MaxDistance = *maxDistance
	}
	if fs.Changed("walking-speed") {
		cfg.Transfers.WalkingSpeed = *walkingSpeed
	}
	if fs.Changed("transfer-time") {
		cfg.Transfers.TransferTime = *transferTime
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("notnan", notNaN); err != nil {
		return err
	}
	if err := v.Struct(c.Transfers); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := v.Struct(c.Logging); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	return nil
}

// notNaN rejects NaN floats, which would compare false against every distance.
func notNaN(fl validator.FieldLevel) bool {
	return !math.IsNaN(fl.Field().Float())
}

func fromEnv() Config {
	return Config{
		Transfers: TransfersConfig{
			OutputPath:   getEnv("TRANSFERS_OUTPUT", DefaultOutput),
			MaxDistance:  getFloatEnv("TRANSFERS_MAX_DISTANCE", DefaultMaxDistance),
			WalkingSpeed: getFloatEnv("TRANSFERS_WALKING_SPEED", DefaultWalkingSpeed),
			TransferTime: getUint32Env("TRANSFERS_TRANSFER_TIME", 0),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", ""),
		},
	}
}

// mergeFile overlays the keys present in a YAML file onto cfg.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getUint32Env(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return defaultValue
}
