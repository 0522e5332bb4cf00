package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/consolecfg"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/otel"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/webhook"
)

func runExport(args []string) {
	var sel selection
	fs := flag.NewFlagSet("incidentctl export", flag.ExitOnError)
	sel.register(fs)
	endpoint := fs.String("otlp-endpoint", "", "OTLP/HTTP logs URL (overrides config otlp.logs_endpoint)")
	timeout := fs.Duration("timeout", 5*time.Second, "export timeout")
	_ = fs.Parse(args)

	cfg, err := sel.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	target, err := logsEndpoint(*endpoint, cfg.OTLP)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report := buildReport(ctx, &sel)

	exporter := otel.NewIncidentExporter(target, "rsm-incidentctl", "", *timeout)
	if err := exporter.ExportBatch(ctx, []sla.Report{report}); err != nil {
		fmt.Fprintf(os.Stderr, "export incident: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exported report %s (%s)\n", report.ReportID, report.Incident.Disposition)
}

func runNotify(args []string) {
	var sel selection
	fs := flag.NewFlagSet("incidentctl notify", flag.ExitOnError)
	sel.register(fs)
	url := fs.String("webhook-url", "", "webhook URL (overrides config)")
	secret := fs.String("secret", "", "HMAC secret (overrides config)")
	format := fs.String("format", "", "payload format: generic|pagerduty|opsgenie (overrides config)")
	_ = fs.Parse(args)

	cfg, err := sel.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	wh := cfg.Webhook
	if *url != "" {
		wh.URL = *url
	}
	if *secret != "" {
		wh.Secret = *secret
	}
	if *format != "" {
		wh.Format = *format
	}
	if wh.URL == "" {
		fmt.Fprintln(os.Stderr, "webhook url is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	report := buildReport(ctx, &sel)

	exporter := webhook.New(wh.URL, wh.Secret, webhook.Format(wh.Format), wh.TimeoutMS)
	if err := exporter.Send(ctx, report); err != nil {
		fmt.Fprintf(os.Stderr, "notify webhook: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("delivered report %s (%s)\n", report.ReportID, report.Incident.Disposition)
}

// logsEndpoint picks the OTLP/HTTP logs URL. The trace endpoint is a gRPC
// host:port and is never reused here.
func logsEndpoint(flagValue string, cfg consolecfg.OTLPConfig) (string, error) {
	target := strings.TrimSpace(flagValue)
	if target == "" {
		target = strings.TrimSpace(cfg.LogsEndpoint)
	}
	if target == "" {
		return "", fmt.Errorf("--otlp-endpoint or otlp.logs_endpoint is required")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "", fmt.Errorf("otlp logs endpoint %q must be an http(s) URL", target)
	}
	return target, nil
}

func buildReport(ctx context.Context, sel *selection) sla.Report {
	inc, err := sel.reconstruct(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconstruct incident: %v\n", err)
		os.Exit(1)
	}
	report, err := sla.NewReport(inc, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "build report: %v\n", err)
		os.Exit(1)
	}
	return report
}
