package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

func sampleReport() sla.Report {
	return sla.Report{
		ReportID:    "rep-test-01",
		GeneratedAt: time.Unix(2000, 0).UTC(),
		Incident: incident.Incident{
			EntityID:     7,
			TriggerID:    70,
			CheckType:    "rdds",
			ProblemEvent: incident.Event{ID: 11, Clock: 1000, Value: incident.EventTrue},
			Window:       incident.TimeWindow{From: 880, To: 2000},
			Disposition:  incident.DispositionActive,
		},
		Summary: sla.Summary{Rows: 10, FailedCycles: 6, DowntimeSec: 360, Availability: 0.4},
	}
}

func fastExporter(url, secret string, format Format) *Exporter {
	e := New(url, secret, format, 5000)
	e.BaseBackoff = time.Millisecond
	return e
}

func TestSendGenericPayload(t *testing.T) {
	var received []byte
	var deliveryID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		deliveryID = r.Header.Get("X-Delivery-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := fastExporter(server.URL, "", FormatGeneric)
	if err := e.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(received) == 0 {
		t.Fatal("expected payload")
	}
	if deliveryID == "" {
		t.Fatal("expected delivery id header")
	}

	var report sla.Report
	if err := json.Unmarshal(received, &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.ReportID != "rep-test-01" || report.Incident.Disposition != incident.DispositionActive {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestSendWithHMACSignature(t *testing.T) {
	secret := "test-secret-key"
	var signature string
	var body []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("X-Webhook-Signature")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := fastExporter(server.URL, secret, FormatGeneric)
	if err := e.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if signature == "" {
		t.Fatal("expected signature header")
	}
	if !VerifyHMAC(body, secret, signature) {
		t.Fatal("HMAC verification failed")
	}
	if VerifyHMAC(body, "other-secret", signature) {
		t.Fatal("HMAC verification should fail with a different secret")
	}
}

func TestRetryOn5xxKeepsDeliveryID(t *testing.T) {
	var attempts int32
	var mu sync.Mutex
	ids := map[string]bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			t.Fatalf("read request body: %v", err)
		}
		mu.Lock()
		ids[r.Header.Get("X-Delivery-ID")] = true
		mu.Unlock()
		count := atomic.AddInt32(&attempts, 1)
		if count < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := fastExporter(server.URL, "", FormatGeneric)
	e.MaxRetry = 3
	if err := e.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("send should succeed after retries: %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(ids) != 1 {
		t.Errorf("expected one delivery id across retries, got %d", len(ids))
	}
}

func TestFailAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			t.Fatalf("read request body: %v", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := fastExporter(server.URL, "", FormatGeneric)
	e.MaxRetry = 2
	if err := e.Send(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error after max retries")
	}
}

func TestSendHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	e := New(server.URL, "", FormatGeneric, 5000)
	e.BaseBackoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.Send(ctx, sampleReport()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestPagerDutyFormat(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := fastExporter(server.URL, "", FormatPagerDuty)
	if err := e.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(received, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["event_action"] != "trigger" {
		t.Errorf("expected event_action=trigger, got %v", payload["event_action"])
	}
	if payload["dedup_key"] != "rsm-7-70-11" {
		t.Errorf("unexpected dedup_key %v", payload["dedup_key"])
	}

	resolved := sampleReport()
	resolved.Incident.Disposition = incident.DispositionResolved
	data, _, err := BuildPagerDutyPayload(resolved)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	payload = map[string]interface{}{}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["event_action"] != "resolve" {
		t.Errorf("expected event_action=resolve, got %v", payload["event_action"])
	}
}

func TestOpsgenieFormat(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := fastExporter(server.URL, "", FormatOpsgenie)
	if err := e.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(received, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["alias"] != "rsm-7-70-11" {
		t.Errorf("expected alias=rsm-7-70-11, got %v", payload["alias"])
	}
	if payload["priority"] != "P1" {
		t.Errorf("expected priority=P1 for low availability, got %v", payload["priority"])
	}
}

func TestNoRetryOn4xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			t.Fatalf("read request body: %v", err)
		}
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	e := fastExporter(server.URL, "", FormatGeneric)
	e.MaxRetry = 3
	if err := e.Send(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error on 4xx")
	}
	// 4xx is not retried (only 5xx is)
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected 1 attempt for 4xx, got %d", attempts)
	}
}
