package otel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/semconv"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

// IncidentExporter sends incident reports to an OTLP/HTTP logs endpoint.
type IncidentExporter struct {
	endpoint    string
	serviceName string
	scopeName   string
	client      *http.Client
}

// NewIncidentExporter constructs an OTLP/HTTP logs exporter.
func NewIncidentExporter(
	endpoint string,
	serviceName string,
	scopeName string,
	timeout time.Duration,
) *IncidentExporter {
	if serviceName == "" {
		serviceName = "rsm-incident-toolkit"
	}
	if scopeName == "" {
		scopeName = "rsm-incident-toolkit/incident"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IncidentExporter{
		endpoint:    endpoint,
		serviceName: serviceName,
		scopeName:   scopeName,
		client:      &http.Client{Timeout: timeout},
	}
}

// ExportBatch posts one OTLP payload that contains all provided reports.
func (e *IncidentExporter) ExportBatch(ctx context.Context, reports []sla.Report) error {
	if len(reports) == 0 {
		return nil
	}
	if e.endpoint == "" {
		return fmt.Errorf("otlp endpoint is required")
	}

	payload := buildLogsPayload(e.serviceName, e.scopeName, reports)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal otlp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build otlp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send otlp payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("otlp endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

type logsPayload struct {
	ResourceLogs []resourceLogs `json:"resourceLogs"`
}

type resourceLogs struct {
	Resource  resource    `json:"resource"`
	ScopeLogs []scopeLogs `json:"scopeLogs"`
}

type resource struct {
	Attributes []keyValue `json:"attributes"`
}

type scopeLogs struct {
	Scope      scope       `json:"scope"`
	LogRecords []logRecord `json:"logRecords"`
}

type scope struct {
	Name string `json:"name"`
}

type logRecord struct {
	TimeUnixNano         string     `json:"timeUnixNano"`
	ObservedTimeUnixNano string     `json:"observedTimeUnixNano"`
	SeverityText         string     `json:"severityText"`
	Body                 anyValue   `json:"body"`
	Attributes           []keyValue `json:"attributes"`
}

type keyValue struct {
	Key   string   `json:"key"`
	Value anyValue `json:"value"`
}

// OTLP/JSON encodes 64-bit integers as strings.
type anyValue struct {
	StringValue string   `json:"stringValue,omitempty"`
	IntValue    string   `json:"intValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
}

func buildLogsPayload(serviceName string, scopeName string, reports []sla.Report) logsPayload {
	records := make([]logRecord, 0, len(reports))
	for _, report := range reports {
		records = append(records, toLogRecord(report))
	}

	return logsPayload{
		ResourceLogs: []resourceLogs{
			{
				Resource: resource{
					Attributes: []keyValue{
						strAttribute("service.name", serviceName),
					},
				},
				ScopeLogs: []scopeLogs{
					{
						Scope:      scope{Name: scopeName},
						LogRecords: records,
					},
				},
			},
		},
	}
}

func toLogRecord(report sla.Report) logRecord {
	now := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	inc := report.Incident
	ts := strconv.FormatInt(time.Unix(inc.ProblemEvent.Clock, 0).UnixNano(), 10)

	attrs := []keyValue{
		strAttribute(semconv.AttrReportID, report.ReportID),
		intAttribute(semconv.AttrEntityID, inc.EntityID),
		intAttribute(semconv.AttrTriggerID, inc.TriggerID),
		intAttribute(semconv.AttrEventID, inc.ProblemEvent.ID),
		strAttribute(semconv.AttrCheckType, inc.CheckType),
		strAttribute(semconv.AttrDisposition, string(inc.Disposition)),
		intAttribute(semconv.AttrWindowFrom, inc.Window.From),
		intAttribute(semconv.AttrWindowTo, inc.Window.To),
		intAttribute(semconv.AttrRows, int64(report.Summary.Rows)),
		intAttribute(semconv.AttrFailedCycles, int64(report.Summary.FailedCycles)),
		intAttribute(semconv.AttrDowntimeSec, report.Summary.DowntimeSec),
		doubleAttribute(semconv.AttrAvailability, report.Summary.Availability),
	}

	return logRecord{
		TimeUnixNano:         ts,
		ObservedTimeUnixNano: now,
		SeverityText:         severityFromDisposition(inc.Disposition),
		Body: anyValue{
			StringValue: fmt.Sprintf(
				"check=%s entity=%d disposition=%s failed_cycles=%d downtime=%ds",
				inc.CheckType,
				inc.EntityID,
				inc.Disposition,
				report.Summary.FailedCycles,
				report.Summary.DowntimeSec,
			),
		},
		Attributes: attrs,
	}
}

func strAttribute(key string, value string) keyValue {
	return keyValue{Key: key, Value: anyValue{StringValue: value}}
}

func intAttribute(key string, value int64) keyValue {
	return keyValue{Key: key, Value: anyValue{IntValue: strconv.FormatInt(value, 10)}}
}

func doubleAttribute(key string, value float64) keyValue {
	v := value
	return keyValue{Key: key, Value: anyValue{DoubleValue: &v}}
}

func severityFromDisposition(d incident.Disposition) string {
	switch d {
	case incident.DispositionActive:
		return "ERROR"
	case incident.DispositionResolvedNoData:
		return "WARN"
	default:
		return "INFO"
	}
}
