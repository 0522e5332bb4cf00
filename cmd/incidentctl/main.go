package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "show":
		runShow(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "notify":
		runNotify(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version", "--version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  incidentctl show    --entity ID --trigger ID --check TYPE [--event ID] [--from TS --to TS]")
	fmt.Println("                      [--offset N --limit N | --all] [--failing-only] [--output text|json] [--validate]")
	fmt.Println("                      [--fixtures FILE.jsonl | --config FILE | --postgres-dsn DSN] [--now TS]")
	fmt.Println("  incidentctl export  <show selection flags> [--otlp-endpoint URL]")
	fmt.Println("  incidentctl notify  <show selection flags> [--webhook-url URL] [--secret S] [--format generic|pagerduty|opsgenie]")
	fmt.Println("  incidentctl migrate up|status|down [--config FILE | --postgres-dsn DSN]")
}
