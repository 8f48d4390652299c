// Package main runs the farm back office HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/R3E-Network/farm_backoffice/internal/app/runtime"
)

func main() {
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before configuration")
	configFile := flag.String("config", "", "Optional YAML configuration file (overrides CONFIG_FILE)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load env (%s): %v", *envFile, err)
	}
	if *configFile != "" {
		os.Setenv("CONFIG_FILE", *configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := runtime.NewApplication(ctx)
	if err != nil {
		log.Fatalf("initialise application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[appserver] ")
}
