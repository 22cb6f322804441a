package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/eringen/metalworks"
	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/seed"
)

// storeConfig is the part of the configuration the offline commands need.
// Unlike the server they do not require the session and token secrets.
type storeConfig struct {
	DatabasePath string `env:"DATABASE_PATH" envDefault:"data/metalworks.db"`
}

func openStore() (*content.Store, error) {
	_ = godotenv.Load()
	var cfg storeConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return content.Open(cfg.DatabasePath)
}

func runServe() error {
	cfg, err := metalworks.LoadConfig()
	if err != nil {
		return err
	}
	app := metalworks.New(cfg, metalworks.DefaultViews())
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runSeed() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := seed.Load(context.Background(), store)
	if err != nil {
		return err
	}
	for kind, n := range res.Created {
		fmt.Printf("  seeded %d %s\n", n, kind)
	}
	for _, kind := range res.Skipped {
		fmt.Printf("  skipped %s (already has content)\n", kind)
	}
	return nil
}

func runExport(out string) (err error) {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		w = f
	}
	if err := store.Export(context.Background(), w); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	}
	return nil
}

func runImport(path string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := store.Import(context.Background(), f); err != nil {
		return err
	}
	fmt.Printf("imported %s\n", path)
	return nil
}

func runHashPassword(password string) error {
	if len(password) < content.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", content.MinPasswordLength)
	}
	hash, err := content.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
