package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/2beens/trainingboard/internal"
	"github.com/2beens/trainingboard/internal/config"
	"github.com/2beens/trainingboard/internal/logging"
	"github.com/2beens/trainingboard/pkg"

	log "github.com/sirupsen/logrus"
)

// secrets never live in config.toml
type secrets struct {
	adminUsername     string
	adminPasswordHash string
	redisPassword     string
	sentryDSN         string
	honeycombEnabled  bool
}

func readSecrets() secrets {
	s := secrets{
		adminUsername:     os.Getenv("TRAININGBOARD_ADMIN_USERNAME"),
		adminPasswordHash: os.Getenv("TRAININGBOARD_ADMIN_PASSWORD_HASH"),
		redisPassword:     os.Getenv("TRAININGBOARD_REDIS_PASS"),
		sentryDSN:         os.Getenv("SENTRY_DSN"),
		honeycombEnabled:  os.Getenv("HONEYCOMB_ENABLED") == "true",
	}

	if s.adminUsername == "" || s.adminPasswordHash == "" {
		log.Warnln("TRAININGBOARD_ADMIN_USERNAME / TRAININGBOARD_ADMIN_PASSWORD_HASH not set, only app users can log in")
	}
	if s.redisPassword == "" {
		log.Errorln("TRAININGBOARD_REDIS_PASS not set")
	}
	if s.honeycombEnabled && os.Getenv("HONEYCOMB_API_KEY") == "" {
		log.Warnln("honeycomb enabled but HONEYCOMB_API_KEY not set")
	}

	return s
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %s\n", err)
		os.Exit(1)
	}

	sec := readSecrets()
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sec.sentryDSN,
		SentryServerName: "trainingboard-service",
	})

	version := versionInfo()
	log.WithFields(log.Fields{
		"env":          cfg.Environment,
		"port":         cfg.Port,
		"store_driver": cfg.StoreDriver,
		"version":      version,
	}).Info("starting trainingboard service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := internal.NewServer(ctx, internal.NewServerParams{
		Config:                  cfg,
		VersionInfo:             version,
		AdminUsername:           sec.adminUsername,
		AdminPasswordHash:       sec.adminPasswordHash,
		RedisPassword:           sec.redisPassword,
		HoneycombTracingEnabled: sec.honeycombEnabled,
	})
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	<-ctx.Done()
	log.Warnln("shutdown signal received")
	server.GracefulShutdown()
}

// versionInfo prefers the vcs revision stamped at build time, then falls back
// to asking git, which only works when running from the repo root.
func versionInfo() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}

	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		log.Tracef("failed to get last commit hash: %s", err)
		return "unknown"
	}
	return strings.TrimSpace(pkg.BytesToString(out))
}
