// Package webhook forwards audit events to the election authority collector
// as HMAC-signed HTTP deliveries, retried in the background.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/audit"
)

const (
	HeaderSignature = "X-VoterID-Signature"
	HeaderTimestamp = "X-VoterID-Timestamp"
	HeaderEvent     = "X-VoterID-Event"
)

type Config struct {
	URL         string
	Secret      string
	QueueSize   int
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	Timeout     time.Duration
}

func DefaultConfig(url, secret string) Config {
	return Config{
		URL:         url,
		Secret:      secret,
		QueueSize:   1000,
		Workers:     4,
		MaxAttempts: 5,
		BaseBackoff: time.Second,
		Timeout:     10 * time.Second,
	}
}

// delivery is one queued audit event
type delivery struct {
	event    audit.Event
	attempts int
}

// Forwarder is an audit.Logger: every event goes to next synchronously and is
// queued for HTTP delivery. A full queue drops the delivery, never the audit line.
type Forwarder struct {
	config Config
	next   audit.Logger
	client *http.Client
	queue  chan delivery
	logger *slog.Logger
	now    func() time.Time
}

func NewForwarder(config Config, next audit.Logger, logger *slog.Logger) *Forwarder {
	if next == nil {
		next = &audit.NoOpLogger{}
	}
	return &Forwarder{
		config: config,
		next:   next,
		client: &http.Client{Timeout: config.Timeout},
		queue:  make(chan delivery, config.QueueSize),
		logger: logger.With("component", "audit_webhook"),
		now:    time.Now,
	}
}

func (f *Forwarder) Log(ctx context.Context, event audit.Event) error {
	// next receives a copy, so identity is fixed here for both sinks
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = f.now().UTC()
	}

	if err := f.next.Log(ctx, event); err != nil {
		return err
	}

	select {
	case f.queue <- delivery{event: event}:
	default:
		f.logger.Warn("audit webhook queue full, delivery dropped",
			slog.String("event_type", string(event.EventType)),
			slog.String("event_id", event.ID.String()),
		)
	}
	return nil
}

// Run delivers queued events on config.Workers goroutines until ctx is cancelled.
// An event waiting out its backoff holds only its own worker.
func (f *Forwarder) Run(ctx context.Context) {
	workers := f.config.Workers
	if workers < 1 {
		workers = 1
	}
	f.logger.Info("audit webhook workers started", slog.Int("workers", workers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.work(ctx)
		}()
	}
	wg.Wait()

	if n := len(f.queue); n > 0 {
		f.logger.Warn("audit webhook workers stopped with pending deliveries", slog.Int("pending", n))
	} else {
		f.logger.Info("audit webhook workers stopped")
	}
}

func (f *Forwarder) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-f.queue:
			f.deliverWithRetry(ctx, d)
		}
	}
}

func (f *Forwarder) deliverWithRetry(ctx context.Context, d delivery) {
	backoff := f.config.BaseBackoff

	for {
		d.attempts++
		err := f.send(ctx, d.event)
		if err == nil {
			return
		}

		if d.attempts >= f.config.MaxAttempts {
			f.logger.Error("audit webhook delivery failed",
				slog.String("event_id", d.event.ID.String()),
				slog.Int("attempts", d.attempts),
				slog.Any("error", err),
			)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (f *Forwarder) send(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ts := f.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(f.config.Secret, ts, payload))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	req.Header.Set(HeaderEvent, string(event.EventType))
	req.Header.Set("User-Agent", "VoterID-Webhook/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("collector returned HTTP %d", resp.StatusCode)
	}

	return nil
}

var _ audit.Logger = (*Forwarder)(nil)
