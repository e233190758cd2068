// Command uatsim runs a discrete-time double-auction simulation over a
// generated hex airspace, wiring internal/hexspace, internal/pilot,
// internal/uat, internal/ledger and internal/statusapi together — adapted
// from the teacher's cmd/worldsim wiring (slog setup, seeded generation,
// SQLite open, HTTP API start, signal-triggered shutdown).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"uatsim/internal/hexspace"
	"uatsim/internal/ledger"
	"uatsim/internal/pilot"
	"uatsim/internal/seedsource"
	"uatsim/internal/statusapi"
	"uatsim/internal/uat"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("UAT permit simulation starting")

	seed := int64(42)
	if v := os.Getenv("UATSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = n
		}
	}
	dbPath := envOr("UATSIM_DB", "data/uatsim.db")
	apiPort := 8080
	if v := os.Getenv("UATSIM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiPort = n
		}
	}

	if err := os.MkdirAll("data", 0755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}

	led, err := ledger.Open(dbPath)
	if err != nil {
		slog.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer led.Close()
	slog.Info("ledger opened", "path", dbPath)

	slog.Info("generating airspace...")
	genCfg := hexspace.DefaultGenConfig()
	genCfg.Seed = seed
	grid := hexspace.Generate(genCfg)
	slog.Info("airspace generated", "cells", grid.CellCount(), "radius", genCfg.Radius)

	status := statusapi.NewServer(apiPort, led)
	status.Start()

	spawner := pilot.NewSpawner(seed, pilot.DefaultSpawnConfig())

	opts := uat.SimulationOpts{
		StopCriteria:   uat.TimeThreshold{TMax: 10_000},
		StatusCallback: status.Observe,
		TradeCallback:  led.RecordTrade,
		Seeds:          seedsource.NewDeterministic(seed),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		os.Exit(0)
	}()

	fmt.Printf("\nUAT airspace is live: %d cells, seed %d.\n", grid.CellCount(), seed)
	fmt.Printf("Status API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Starting simulation...")

	if err := uat.Simulate(spawner.Factory, grid, seed, opts); err != nil {
		slog.Error("simulation terminated with error", "error", err)
		os.Exit(1)
	}

	slog.Info("simulation finished")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
