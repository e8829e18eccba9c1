package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/getsentry/raven-go"

	"chronometer/internal/log"
	"chronometer/internal/meta"
	"chronometer/internal/metrics"
	"chronometer/internal/protocol"
	"chronometer/internal/timer"
)

func main() {
	configPath := flag.String(
		"config",
		os.Getenv("CHRONOMETER_CONFIG"),
		"path to the configuration file on disk; defaults are used when empty",
	)
	version := flag.Bool(
		"version",
		false,
		"print the compiled chronometer version SHA",
	)
	verbosity := flag.String(
		"verbosity",
		"error",
		"desired logging verbosity: one of error, warn, info, debug",
	)
	flag.Parse()

	// Report the compiled version and exit
	if *version {
		fmt.Printf("chronometer/%s\n", meta.VersionSHA)
		return
	}

	// Logging configuration; default to log.Error verbosity
	level, _ := log.ParseLevel(*verbosity)
	logger := log.NewConsoleLogger(level)

	// Parse application configuration
	logger.Debug("main: reading and parsing config: path=%s", *configPath)
	config, err := meta.ParseConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// A verbosity in the config file applies only when the flag was not passed explicitly
	if config.Application.Verbosity != nil && !flagPassed("verbosity") {
		level = *config.Application.Verbosity
		logger = log.NewConsoleLogger(level)
	}

	logger.Debug("main: initialized logger: level=%v", level)

	// Configure error reporting
	if config.Application.SentryDSN != "" {
		logger.Info("main: configuring sentry error reporting")

		if err := raven.SetDSN(config.Application.SentryDSN); err != nil {
			panic(err)
		}

		raven.SetRelease(meta.VersionSHA)
	}

	// Configure metrics reporting
	hook := metrics.NewNoopTimerHook()

	if config.Metrics != nil && config.Metrics.Statsd != nil {
		logger.Info(
			"main: configuring statsd metrics reporting: addr=%s sample_rate=%f",
			config.Metrics.Statsd.Address,
			config.Metrics.Statsd.SampleRate,
		)

		if hook, err = metrics.NewAsyncStatsdTimerHook(
			config.Timer.Name,
			config.Metrics.Statsd.Address,
			config.Metrics.Statsd.SampleRate,
		); err != nil {
			panic(err)
		}
	} else {
		logger.Warn("main: no metrics output engine specified; disabling metrics")
	}

	// Configure the timer
	var source clock.Clock = clock.New()
	if config.Timer.Clock == meta.ClockWall {
		source = timer.WallClock(source)
	}

	logger.Info("main: creating timer: name=%s clock=%s", config.Timer.Name, config.Timer.Clock)

	t := timer.New(timer.Opts{
		Clock:  source,
		Hook:   hook,
		Logger: logger,
	})

	h := &protocol.CommandHandler{
		Timer:  t,
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only the first signal is intercepted; a second one terminates the process immediately
	go func() {
		<-ctx.Done()
		stop()
	}()

	// Serve commands until standard input closes
	logger.Info("main: serving commands from standard input")
	err = h.Serve(ctx, os.Stdin, os.Stdout)
	if err == context.Canceled {
		logger.Info("main: received shutdown signal; exiting")
		return
	}

	if err != nil {
		logger.Error("main: session failed: err=%v", err)
		raven.CaptureErrorAndWait(err, nil)
		os.Exit(1)
	}
}

// flagPassed reports whether a flag was set explicitly on the command line.
func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})

	return passed
}
