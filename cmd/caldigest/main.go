package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"caldigest/internal/config"
	"caldigest/internal/digest"
	appLog "caldigest/internal/log"
	"caldigest/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("caldigest starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"time_format", conf.TimeFormat,
		"refresh", conf.RefreshCron,
		"horizon_years", conf.HorizonYears,
		"feed_count", len(conf.FeedURLs()),
		"once", flags.once,
	)

	engine, err := digest.New(conf)
	if err != nil {
		appLog.Error("failed to build digest engine", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := buildAndWrite(ctx, engine, conf.OutputPath); err != nil {
			appLog.Error("digest build failed", err)
			os.Exit(1)
		}
		return
	}

	// The engine itself is invoked once per delivery cycle; cron is the
	// external driver loop.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := buildAndWrite(ctx, engine, conf.OutputPath); err != nil {
			appLog.Error("scheduled digest build failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	if err := web.Serve(ctx, conf, engine); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	// Give in-flight log writes a moment before exiting.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("caldigest exiting")
}

func buildAndWrite(ctx context.Context, engine *digest.Engine, outputPath string) error {
	started := time.Now()
	out := engine.Build(ctx, time.Now())
	appLog.Info("digest built", "bytes", len(out), "took", time.Since(started).Round(time.Millisecond))

	if outputPath == "" {
		_, err := fmt.Fprintln(os.Stdout, out)
		return err
	}
	return os.WriteFile(outputPath, []byte(out), 0o644)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/caldigest/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Build one digest, write it, and exit")

	flag.Parse()

	return cfg
}
