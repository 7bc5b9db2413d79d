//go:build !test

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"status-image/src/internal/api"
	"status-image/src/internal/config"
	"status-image/src/internal/gateway"
	"status-image/src/internal/storage"
	"status-image/src/internal/system"
)

func main() {
	fs := pflag.NewFlagSet("status-image", pflag.ExitOnError)
	configFile := fs.String("config", "", "path to config file to load first")
	showVersion := fs.Bool("version", false, "print the version and exit")
	fs.String("server.addr", "", "listen address")
	fs.Bool("log.debug", false, "enable debug logging")
	fs.Bool("log.json", false, "log as JSON")
	fs.String("plugin.locale", "", "page locale (zh-cn or en)")
	fs.String("render.remote_url", "", "DevTools URL of a running browser")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(config.AppName, system.Describe())
		return
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg, err := config.Load(*configFile, onlyChanged(fs))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)
	slog.Info("starting", "app", config.AppName, "version", system.Describe())

	s, err := storage.New(cfg.StorageDir)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("storage ready", "dir", s.GetBaseDir())

	pidPath := filepath.Join(s.GetBaseDir(), "status-image.pid")
	release, err := writePIDFile(pidPath)
	if err != nil {
		slog.Error("failed to claim pidfile", "path", pidPath, "error", err)
		os.Exit(1)
	}
	defer release()

	// Warn if non-loopback bind without key (validation in config.Load)
	isLoopback := cfg.Server.EffectiveHost == "127.0.0.1" || cfg.Server.EffectiveHost == "localhost" || cfg.Server.EffectiveHost == "::1" || cfg.Server.EffectiveHost == "[::1]"
	if !isLoopback && cfg.Server.Key == "" {
		slog.Warn("binding to non-loopback address without server key; recommend setting config.server.key", "host", cfg.Server.EffectiveHost)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(ctx, cfg, s, system.AppVersion())
	if err != nil {
		slog.Error("failed to initialize gateway", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := gw.Close(); err != nil {
			slog.Error("failed to close gateway", "error", err)
		}
	}()
	if err := gw.Start(ctx); err != nil {
		slog.Error("failed to start status plugin", "error", err)
		return
	}

	server := api.NewServer(gw)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("starting status service", "addr", cfg.Server.Addr, "public_url", cfg.Server.PublicURL)
		return server.ListenAndServe(ctx, cfg.Server.Addr)
	})
	if err := g.Wait(); err != nil {
		slog.Error("service stopped with error", "error", err)
	}
}

// onlyChanged returns a flag set holding just the flags given on the command
// line, so unset flags do not shadow the config file.
func onlyChanged(fs *pflag.FlagSet) *pflag.FlagSet {
	out := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	fs.Visit(func(f *pflag.Flag) {
		out.AddFlag(f)
	})
	return out
}

func setupLogging(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.JSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// writePIDFile records this process in path, refusing to start when the
// recorded process is still alive. The returned func removes the file.
func writePIDFile(path string) (func(), error) {
	if pidBytes, err := os.ReadFile(path); err == nil {
		pidStr := strings.TrimSpace(string(pidBytes))
		if pid, err := strconv.Atoi(pidStr); err == nil && pid > 0 {
			if syscall.Kill(pid, 0) == nil {
				return nil, fmt.Errorf("%s already running with pid %d", config.AppName, pid)
			}
			// Stale PID: clean up
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove stale pidfile", "path", path, "error", err)
			} else {
				slog.Info("cleaned stale pidfile", "pid", pid)
			}
		}
	}

	if err := os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0644); err != nil {
		return nil, fmt.Errorf("write pidfile: %w", err)
	}
	return func() {
		if err := os.Remove(path); err != nil {
			slog.Error("failed to remove pidfile", "path", path, "error", err)
		}
	}, nil
}
