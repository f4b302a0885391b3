// Command twdemo fills a timing wheel with synthetic request timeouts, ticks
// it until every one of them has expired and reports the throughput.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjiang/slabwheel"
	"github.com/panjf2000/ants/v2"
	"gopkg.in/yaml.v3"
)

// config is the demo configuration, loaded from YAML and overridden by flags.
type config struct {
	Timers  int    `yaml:"timers"`
	Spread  uint64 `yaml:"spread"`
	Report  uint64 `yaml:"report"`
	Workers int    `yaml:"workers"`

	Wheel struct {
		Levels   int `yaml:"levels"`
		SlotBits int `yaml:"slot_bits"`
	} `yaml:"wheel"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaultConfig() config {
	var c config
	c.Timers = 100_000
	c.Spread = 10_000
	c.Report = 1000
	c.Workers = 8
	c.Wheel.Levels = 4
	c.Wheel.SlotBits = 6
	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, logger); err != nil {
		logger.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

// parseConfig applies the YAML file named by -config, if any, and then every
// flag that was set explicitly.
func parseConfig(args []string) (config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("twdemo", flag.ContinueOnError)
	var (
		path      = fs.String("config", "", "YAML config file")
		timers    = fs.Int("timers", cfg.Timers, "number of timers to insert")
		spread    = fs.Uint64("spread", cfg.Spread, "deadlines fall in [1, spread]")
		report    = fs.Uint64("report", cfg.Report, "log progress every n ticks")
		workers   = fs.Int("workers", cfg.Workers, "size of the expiry handler pool")
		levels    = fs.Int("levels", cfg.Wheel.Levels, "wheel levels")
		slotBits  = fs.Int("slot-bits", cfg.Wheel.SlotBits, "log2 of slots per level")
		logLevel  = fs.String("log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
		logFormat = fs.String("log-format", cfg.Log.Format, "log format (text, json)")
	)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *path != "" {
		data, err := os.ReadFile(*path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", *path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", *path, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "timers":
			cfg.Timers = *timers
		case "spread":
			cfg.Spread = *spread
		case "report":
			cfg.Report = *report
		case "workers":
			cfg.Workers = *workers
		case "levels":
			cfg.Wheel.Levels = *levels
		case "slot-bits":
			cfg.Wheel.SlotBits = *slotBits
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})

	if cfg.Timers <= 0 || cfg.Spread == 0 || cfg.Workers <= 0 {
		return cfg, errors.New("timers, spread and workers must be positive")
	}
	return cfg, nil
}

func run(cfg config, logger *slog.Logger) error {
	tw := slabwheel.New[string](
		slabwheel.WithLevels(cfg.Wheel.Levels),
		slabwheel.WithSlotBits(cfg.Wheel.SlotBits),
		slabwheel.WithCapacity(cfg.Timers),
		slabwheel.WithLogger(slabwheel.NewSlogLogger(logger, slog.LevelDebug)),
	)

	var (
		wg      sync.WaitGroup
		handled atomic.Int64
	)
	pool, err := ants.NewPoolWithFunc(cfg.Workers, func(arg any) {
		defer wg.Done()
		handled.Add(1)
		logger.Debug("request timed out", "request", arg)
	}, ants.WithPanicHandler(func(p any) {
		logger.Error("expiry handler panicked", "panic", p)
	}))
	if err != nil {
		return fmt.Errorf("create handler pool: %w", err)
	}
	defer pool.Release()

	logger.Info("inserting timers", "timers", cfg.Timers, "spread", cfg.Spread)
	start := time.Now()
	for i := 0; i < cfg.Timers; i++ {
		deadline := uint64(i)%cfg.Spread + 1
		tw.Insert("Request-"+uuid.NewString(), deadline)
	}
	insertTime := time.Since(start)
	logger.Info("inserted timers",
		"elapsed", insertTime,
		"million_per_sec", float64(cfg.Timers)/insertTime.Seconds()/1e6,
	)

	var dispatchErr error
	dispatch := slabwheel.NewHandlerFunc(func(task string) {
		wg.Add(1)
		if err := pool.Invoke(task); err != nil {
			wg.Done()
			dispatchErr = errors.Join(dispatchErr, err)
		}
	})

	logger.Info("running tick loop")
	start = time.Now()
	expired := 0
	for tw.Len() > 0 {
		expired += tw.Advance(1, dispatch)
		if cfg.Report > 0 && tw.CurrentTime()%cfg.Report == 0 {
			logger.Info("progress", "tick", tw.CurrentTime(), "expired", expired)
		}
	}
	wg.Wait()
	tickTime := time.Since(start)

	if dispatchErr != nil {
		return fmt.Errorf("dispatch expired timers: %w", dispatchErr)
	}
	if expired != cfg.Timers || int(handled.Load()) != cfg.Timers {
		return fmt.Errorf("expired %d and handled %d of %d timers", expired, handled.Load(), cfg.Timers)
	}

	logger.Info("finished",
		"elapsed", tickTime,
		"ticks", tw.CurrentTime(),
		"expired", expired,
	)
	return nil
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
