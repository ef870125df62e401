package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dougsko/rigbridged/pkg/config"
	"github.com/dougsko/rigbridged/pkg/logging"
)

var (
	configPath = flag.String("config", "config.yaml", "Configuration file path")
	version    = flag.Bool("version", false, "Show version information")
)

const (
	Version = "0.1.0-dev"
	Build   = "development"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("rigbridged version %s (%s)\n", Version, Build)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logging system
	if err := logging.InitGlobalLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogger()

	logging.Infof("main", "rigbridged version %s starting...", Version)
	logging.Infof("main", "Radio: %s on %s", cfg.Radio.Brand, cfg.Radio.Device)
	logging.Infof("main", "Control API: http://%s:%d", cfg.Web.BindAddress, cfg.Web.Port)

	bridge, err := NewBridge(cfg)
	if err != nil {
		logging.Errorf("main", "Failed to create bridge: %v", err)
		os.Exit(1)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := bridge.Start(); err != nil {
		logging.Errorf("main", "Failed to start bridge: %v", err)
		os.Exit(1)
	}

	logging.Info("main", "rigbridged started successfully")

	// Wait for shutdown signal
	<-sigChan
	logging.Info("main", "Shutting down...")

	if err := bridge.Stop(); err != nil {
		logging.Errorf("main", "Error during shutdown: %v", err)
	}

	logging.Info("main", "rigbridged stopped")
}
