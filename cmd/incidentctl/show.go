package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/schema"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

func runShow(args []string) {
	var sel selection
	fs := flag.NewFlagSet("incidentctl show", flag.ExitOnError)
	sel.register(fs)
	output := fs.String("output", "text", "output mode: text|json")
	validate := fs.Bool("validate", false, "validate the incident against the JSON contract")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inc, err := sel.reconstruct(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconstruct incident: %v\n", err)
		os.Exit(1)
	}
	if *validate {
		if err := schema.ValidateIncident(inc); err != nil {
			fmt.Fprintf(os.Stderr, "validate incident: %v\n", err)
			os.Exit(1)
		}
	}

	switch *output {
	case "json":
		payload, err := json.MarshalIndent(inc, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal incident: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(payload))
	case "text":
		summary, err := sla.Summarize(inc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "summarize incident: %v\n", err)
			os.Exit(1)
		}
		printIncident(os.Stdout, inc, summary)
	default:
		fmt.Fprintf(os.Stderr, "unsupported output mode %q\n", *output)
		os.Exit(2)
	}
}

func printIncident(w io.Writer, inc incident.Incident, summary sla.Summary) {
	fmt.Fprintf(w, "entity: %d  trigger: %d  check: %s\n", inc.EntityID, inc.TriggerID, inc.CheckType)
	fmt.Fprintf(w, "problem: event %d at %s\n", inc.ProblemEvent.ID, formatClock(inc.ProblemEvent.Clock))
	if inc.ResolutionEvent != nil {
		fmt.Fprintf(w, "resolution: event %d at %s (%s)\n", inc.ResolutionEvent.ID, formatClock(inc.ResolutionEvent.Clock), inc.ResolutionEvent.Value)
	} else {
		fmt.Fprintln(w, "resolution: none")
	}
	fmt.Fprintf(w, "disposition: %s\n", inc.Disposition)
	fmt.Fprintf(w, "debounce: fail=%d recovery=%d delay=%ds\n", inc.Debounce.FailCount, inc.Debounce.RecoveryCount, inc.Debounce.DelaySeconds)
	fmt.Fprintf(w, "natural window: %s .. %s\n", formatClock(inc.Natural.From), formatClock(inc.Natural.To))
	fmt.Fprintf(w, "window: %s .. %s\n", formatClock(inc.Window.From), formatClock(inc.Window.To))
	if inc.Page != nil {
		fmt.Fprintf(w, "page: offset=%d limit=%d of %d rows\n", inc.Page.Offset, inc.Page.Limit, inc.TotalProbes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "rows:")
	for _, row := range inc.Rows {
		metric := "-"
		if row.MetricValue != nil {
			metric = fmt.Sprintf("%.3f", *row.MetricValue)
		}
		marker := ""
		if row.IsStart {
			marker = "  <- incident start"
		}
		if row.IsEnd {
			marker += "  <- " + sla.EndMarkerText(inc.EndValue)
		}
		fmt.Fprintf(w, "- %s  %-4s  %8s%s\n", formatClock(row.Clock), row.Result, metric, marker)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "failed cycles: %d  downtime: %ds  availability: %.2f%%\n",
		summary.FailedCycles, summary.DowntimeSec, summary.Availability*100)
}

func formatClock(clock int64) string {
	return time.Unix(clock, 0).UTC().Format("2006-01-02 15:04:05")
}
