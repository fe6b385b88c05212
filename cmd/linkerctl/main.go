package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"linker/internal/app"
	"linker/internal/config"
	"linker/internal/constants"
	"linker/internal/db"
	"linker/internal/db/repositories"
	"linker/internal/lock"
	"linker/internal/logging"
	"linker/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	if command == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load configuration: %v", err)
	}
	if err := logging.Init(cfg.AppEnv); err != nil {
		fail("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	ctx := context.Background()
	gdb, err := db.InitPostgresORM(cfg.Postgres.DSN())
	if err != nil {
		fail("Failed to connect to database: %v", err)
	}
	if command == "migrate" {
		if err := db.Migrate(gdb); err != nil {
			fail("%v", err)
		}
		fmt.Println("Schema migrated")
		return
	}

	// The CLI never needs PostGIS; the in-memory index works off the same tables.
	cfg.SpatialBackend = config.BackendMemory
	a, err := app.Build(ctx, cfg, gdb, nil, metrics.NewMetricsRegistry(prometheus.NewRegistry()))
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer a.Close()

	switch command {
	case "reset-simulation":
		err = resetSimulation(ctx, a)
	case "couple-trackers":
		err = coupleTrackers(ctx, a)
	case "trace":
		err = a.Tracer.TraceAll(ctx)
	case "ingest":
		err = a.IngestJob.Run(ctx)
	case "notify":
		err = a.Engine.RunAll(ctx, time.Now())
	case "switch":
		err = setSwitch(ctx, a, os.Args[2:])
	case "safe":
		err = setSafeWeide(ctx, a.Repo.Teams, os.Args[2:], time.Now())
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail("%s failed: %v", command, err)
	}
}

func resetSimulation(ctx context.Context, a *app.App) error {
	if a.Simulator == nil {
		return errors.New("SIMULATION_PATH is not set")
	}
	l, err := a.Locker.TryAcquire(ctx, constants.LockIngest, time.Minute)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return errors.New("an ingest cycle is running, try again")
		}
		return err
	}
	defer l.Release(ctx)

	if err := a.Simulator.Reset(ctx); err != nil {
		return err
	}
	fmt.Println("Simulation reset")
	return nil
}

func coupleTrackers(ctx context.Context, a *app.App) error {
	result, err := a.Coupler.CoupleAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Coupled %d team trackers and %d member trackers\n", result.Teams, result.Members)
	return nil
}

func setSwitch(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		return errors.New("usage: linkerctl switch <name> on|off")
	}
	if err := a.Repo.Settings.SetSwitch(ctx, args[0], args[1] == "on"); err != nil {
		return err
	}
	fmt.Printf("Switch %s is %s\n", args[0], args[1])
	return nil
}

// setSafeWeide marks a team safe at a meadow. An empty weide clears the mark.
func setSafeWeide(ctx context.Context, teams *repositories.TeamRepo, args []string, now time.Time) error {
	if len(args) != 2 {
		return errors.New(`usage: linkerctl safe <team> <weide|"">`)
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid team number %q", args[0])
	}
	found, err := teams.SetSafeWeide(ctx, number, args[1], now)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("team %d not found", number)
	}
	if args[1] == "" {
		fmt.Printf("Team %d is no longer marked safe\n", number)
	} else {
		fmt.Printf("Team %d is safe at %s\n", number, args[1])
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`linkerctl - maintenance commands for the linker backend

Usage:
  linkerctl <command> [options]

Commands:
  migrate            Create or update the database schema
  reset-simulation   Rewind the simulated event to its start
  couple-trackers    Link trackers to teams and members by their codes
  trace              Trace all teams once
  ingest             Run one ingest cycle
  notify             Reconcile all notification rules once
  switch <name> on|off   Toggle a runtime switch
  safe <team> <weide|"">  Mark a team safe at a meadow, or clear it with ""
  help               Show this help message`)
}
