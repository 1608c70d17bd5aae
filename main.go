package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, error")
	logDev := flag.Bool("log-dev", false, "Human readable console logs")
	once := flag.Bool("once", false, "Send one report now and exit")
	preview := flag.String("preview", "", "Render the report to this HTML file and exit without sending")
	flag.Parse()

	log, flush, err := newLogger(*logLevel, *logDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		home, _ := os.UserHomeDir()
		cfgPath = filepath.Join(home, ".infomail", "agent.yaml")
	}

	config, err := loadConfig(cfgPath)
	if err != nil {
		log.Error(err, "failed to load config", "path", cfgPath)
		flush()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	variant, err := detectHostVariant()
	if err != nil {
		log.Error(err, "host not recognized")
		flush()
		os.Exit(1)
	}

	diskPath := config.DiskPathFor(variant)
	pipeline := newPipeline(
		log.WithName("pipeline"),
		variant,
		config.Pi,
		newCollector(log.WithName("collector"), diskPath),
		newProber(log.WithName("probe"), config.IPEchoURL, config.ProbeTimeout),
		newRenderer(config.AssetsDir, config.SenderMail, config.ReceiverMail),
		newDispatcher(log.WithName("dispatcher"), config),
	)

	log.Info("infomail agent starting", "version", version, "variant", variant, "disk", diskPath, "config", cfgPath)

	switch {
	case *preview != "":
		if err := writePreview(ctx, pipeline, *preview); err != nil {
			log.Error(err, "preview failed")
			flush()
			os.Exit(1)
		}
		log.Info("preview written", "file", *preview)
		return
	case *once:
		runCtx, cancel := context.WithTimeout(ctx, config.RunTimeout)
		defer cancel()
		if err := pipeline.Run(runCtx); err != nil {
			log.Error(err, "report failed")
			flush()
			os.Exit(1)
		}
		return
	}

	if config.Status.Enabled() {
		if err := startStatusServer(ctx, log.WithName("status"), config, variant, pipeline); err != nil {
			log.Error(err, "status server")
			flush()
			os.Exit(1)
		}
	}

	scheduler := newScheduler(log.WithName("scheduler"), config.SendHour, config.SendMinute,
		config.CheckInterval, config.RunTimeout, pipeline.Run)
	scheduler.Start(ctx)

	<-ctx.Done()
	log.Info("shutting down")
	scheduler.Stop()
}

func newLogger(level string, dev bool) (logr.Logger, func(), error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if dev {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	zapLog, err := zapCfg.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("building logger: %w", err)
	}
	return zapr.NewLogger(zapLog), func() { _ = zapLog.Sync() }, nil
}

func writePreview(ctx context.Context, p *Pipeline, path string) error {
	doc, err := p.Render(ctx)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(inlineImage(doc)), 0o644)
}

func startStatusServer(ctx context.Context, log logr.Logger, config *Config, variant HostVariant, pipeline *Pipeline) error {
	srv := newServer(log, config, variant, pipeline)

	listener, err := net.Listen("tcp", config.Status.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", config.Status.Addr(), err)
	}
	if config.Status.Token == "" {
		log.Info("WARNING: no status token configured", "addr", listener.Addr().String())
	}
	log.Info("status server listening", "addr", listener.Addr().String())

	httpSrv := &http.Server{Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		httpSrv.Close()
	}()
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "status server stopped")
		}
	}()
	return nil
}
