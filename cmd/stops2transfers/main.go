package main

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/stops2transfers/internal/common/config"
	"github.com/stops2transfers/internal/common/logger"
	"github.com/stops2transfers/internal/gtfs-static/parser"
	"github.com/stops2transfers/internal/gtfs-static/writer"
	"github.com/stops2transfers/internal/transfers"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run returns the process exit code. All diagnostics go to stderr.
func run(args []string, stderr io.Writer) int {
	bootstrap := logger.New(logger.ConsoleWriter(stderr))

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		bootstrap.Error("Failed to load .env file", "error", err)
		return 1
	}

	cfg, err := config.Load(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		bootstrap.Error("Failed to load configuration", "error", err)
		return 1
	}

	level, _ := logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = level
	loggerConfig.Console = stderr
	loggerConfig.FilePath = cfg.Logging.FilePath
	log := logger.NewFromConfig(loggerConfig)

	log.Debug("Configuration loaded",
		"input", cfg.Transfers.InputPath,
		"output", cfg.Transfers.OutputPath,
		"max_distance", cfg.Transfers.MaxDistance,
		"walking_speed", cfg.Transfers.WalkingSpeed,
		"transfer_time", cfg.Transfers.TransferTime,
	)

	if err := generate(cfg.Transfers, log); err != nil {
		log.Error("Failed to generate transfers", "error", err)
		return 1
	}
	return 0
}

// generate parses every stop into memory, then streams transfers straight
// into the output file.
func generate(cfg config.TransfersConfig, log logger.Logger) error {
	gen, err := transfers.New(transfers.Options{
		MaxDistance:  cfg.MaxDistance,
		WalkingSpeed: cfg.WalkingSpeed,
		TransferTime: cfg.TransferTime,
	}, log)
	if err != nil {
		return err
	}

	stops, err := parser.New(log).ParseStops(cfg.InputPath)
	if err != nil {
		return err
	}

	out, err := writer.Create(cfg.OutputPath)
	if err != nil {
		return err
	}
	if _, err := gen.Generate(stops, out.Write); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	log.Info("Transfers written",
		"input", cfg.InputPath,
		"output", cfg.OutputPath,
		"stops", len(stops),
		"transfers", out.Count(),
	)
	return nil
}
