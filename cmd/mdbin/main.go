package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdbin/mdbin/internal/app"
	"github.com/mdbin/mdbin/internal/config"
	"github.com/mdbin/mdbin/internal/logging"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Usage = usage
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "serve"
	}

	cfg, errLoad := config.Load(config.ResolveConfigPath(*configPath))
	if errLoad != nil {
		fmt.Fprintln(os.Stderr, errLoad)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		if errRun := app.RunServer(ctx, cfg); errRun != nil {
			log.WithError(errRun).Fatal("server exited")
		}
	case "migrate":
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			log.WithError(errMigrate).Fatal("migration failed")
		}
		log.Info("migration complete")
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-config path] [serve|migrate]\n", os.Args[0])
	flag.PrintDefaults()
}
