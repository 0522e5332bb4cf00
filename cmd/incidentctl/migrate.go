package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/consolecfg"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/store/postgres"
)

func runMigrate(args []string) {
	if len(args) == 0 {
		printMigrateUsage()
		os.Exit(2)
	}
	action := args[0]

	fs := flag.NewFlagSet("incidentctl migrate "+action, flag.ExitOnError)
	configPath := fs.String("config", filepath.Join("config", "console.yaml"), "console config path")
	dsn := fs.String("postgres-dsn", "", "monitoring store DSN (overrides config)")
	_ = fs.Parse(args[1:])

	target := *dsn
	if target == "" {
		cfg, err := consolecfg.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		target = cfg.Storage.PostgresDSN
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	switch action {
	case "up":
		err = postgres.Migrate(ctx, target, logger)
	case "status":
		err = postgres.MigrationStatus(ctx, target)
	case "down":
		err = postgres.Rollback(ctx, target, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate action %q\n", action)
		printMigrateUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", action, err)
		os.Exit(1)
	}
}

func printMigrateUsage() {
	fmt.Println("Usage:")
	fmt.Println("  incidentctl migrate up|status|down [--config FILE | --postgres-dsn DSN]")
}
