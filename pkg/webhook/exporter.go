package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/sla"
)

// Format selects the webhook payload format.
type Format string

const (
	FormatGeneric   Format = "generic"
	FormatPagerDuty Format = "pagerduty"
	FormatOpsgenie  Format = "opsgenie"
)

// Exporter delivers incident reports to an HTTP webhook endpoint.
type Exporter struct {
	URL         string
	Secret      string
	Format      Format
	TimeoutMS   int
	MaxRetry    int
	BaseBackoff time.Duration
	client      *http.Client
}

// New creates a webhook exporter with sensible defaults.
func New(url, secret string, format Format, timeoutMS int) *Exporter {
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	if format == "" {
		format = FormatGeneric
	}
	return &Exporter{
		URL:         url,
		Secret:      secret,
		Format:      format,
		TimeoutMS:   timeoutMS,
		MaxRetry:    3,
		BaseBackoff: time.Second,
		client: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
	}
}

// nonRetryableError wraps errors that should not be retried (e.g., 4xx).
type nonRetryableError struct{ err error }

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// Send delivers one incident report. Every attempt carries the same delivery ID
// so receivers can deduplicate retries.
func (e *Exporter) Send(ctx context.Context, report sla.Report) error {
	payload, contentType, err := e.buildPayload(report)
	if err != nil {
		return fmt.Errorf("build webhook payload: %w", err)
	}
	deliveryID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < e.MaxRetry; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * e.BaseBackoff
			if err := sleep(ctx, backoff); err != nil {
				return fmt.Errorf("webhook delivery cancelled: %w", err)
			}
		}

		lastErr = e.doPost(ctx, payload, contentType, deliveryID)
		if lastErr == nil {
			return nil
		}
		var nonRetryable *nonRetryableError
		if errors.As(lastErr, &nonRetryable) {
			return lastErr
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", e.MaxRetry, lastErr)
}

func (e *Exporter) buildPayload(report sla.Report) ([]byte, string, error) {
	switch e.Format {
	case FormatPagerDuty:
		return BuildPagerDutyPayload(report)
	case FormatOpsgenie:
		return BuildOpsgeniePayload(report)
	default:
		data, err := json.Marshal(report)
		return data, "application/json", err
	}
}

func (e *Exporter) doPost(ctx context.Context, payload []byte, contentType, deliveryID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return &nonRetryableError{err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "rsm-incident-toolkit/webhook")
	req.Header.Set("X-Delivery-ID", deliveryID)

	if e.Secret != "" {
		sig := computeHMAC(payload, e.Secret)
		req.Header.Set("X-Webhook-Signature", sig)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &nonRetryableError{err: fmt.Errorf("client error: HTTP %d", resp.StatusCode)}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks an HMAC-SHA256 signature against a payload and secret.
func VerifyHMAC(payload []byte, secret, signature string) bool {
	expected := computeHMAC(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// dedupKey identifies one incident across trigger and resolve notifications.
func dedupKey(report sla.Report) string {
	inc := report.Incident
	return fmt.Sprintf("rsm-%d-%d-%d", inc.EntityID, inc.TriggerID, inc.ProblemEvent.ID)
}
