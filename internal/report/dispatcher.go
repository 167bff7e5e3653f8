package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/events"
	"github.com/ashureev/honeypot/internal/metrics"
)

const (
	defaultAttemptTimeout = 10 * time.Second
	defaultBackoff        = 500 * time.Millisecond
	ledgerTimeout         = 5 * time.Second
)

// Ledger records dispatched reports and their outcome.
type Ledger interface {
	CreateReport(ctx context.Context, rec *domain.ReportRecord) error
	UpdateReportStatus(ctx context.Context, reportID, status string, attempts int, lastError string) error
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Sender transmits reports. Nil disables transmission; reports are then
	// counted as skipped.
	Sender Sender
	// Ledger is optional.
	Ledger    Ledger
	Publisher events.Publisher
	// AttemptTimeout bounds each delivery attempt.
	AttemptTimeout time.Duration
	MaxAttempts    int
	// Backoff is the delay before the second attempt; it doubles after each
	// further failure.
	Backoff time.Duration
	Logger  *slog.Logger
}

// Dispatcher sends reports in the background. Dispatch never blocks on the
// network; delivery failures are logged and recorded, never returned.
type Dispatcher struct {
	sender      Sender
	ledger      Ledger
	publisher   events.Publisher
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:      opts.Sender,
		ledger:      opts.Ledger,
		publisher:   opts.Publisher,
		timeout:     opts.AttemptTimeout,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enabled reports whether reports are actually transmitted.
func (d *Dispatcher) Enabled() bool {
	return d.sender != nil
}

// Dispatch schedules delivery of p and returns the report ID, or "" when
// transmission is disabled.
func (d *Dispatcher) Dispatch(p Payload) string {
	if d.sender == nil {
		d.logger.Info("Report transmission disabled, skipping",
			"session_id", p.SessionID,
			"messages", p.TotalMessagesExchanged)
		metrics.RecordReport(metrics.OutcomeSkipped)
		return ""
	}

	reportID := uuid.NewString()
	d.logger.Info("Dispatching report",
		"session_id", p.SessionID,
		"report_id", reportID,
		"messages", p.TotalMessagesExchanged,
		"intelligence", p.ExtractedIntelligence.Total())

	ev := events.New(events.TypeReportDispatched, p.SessionID, p)
	ev.ReportID = reportID
	d.publisher.Publish(ev)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(reportID, p)
	}()
	return reportID
}

// Close waits for in-flight deliveries. If ctx expires first, remaining
// deliveries are canceled and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(reportID string, p Payload) {
	d.recordPending(reportID, p)

	var lastErr error
	attempts := 0
	for attempts < d.maxAttempts {
		if attempts > 0 && !d.sleep(d.backoff*time.Duration(1<<(attempts-1))) {
			break
		}
		attempts++

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		lastErr = d.sender.Send(ctx, p)
		cancel()
		if lastErr == nil {
			break
		}
		d.logger.Warn("Report attempt failed",
			"session_id", p.SessionID,
			"report_id", reportID,
			"attempt", attempts,
			"error", lastErr)
	}

	if lastErr == nil {
		d.logger.Info("Report delivered",
			"session_id", p.SessionID,
			"report_id", reportID,
			"attempts", attempts)
		d.finish(reportID, p.SessionID, domain.ReportDelivered, events.TypeReportDelivered, metrics.OutcomeDelivered, attempts, "")
		return
	}

	errText := lastErr.Error()
	d.logger.Error("Report delivery failed",
		"session_id", p.SessionID,
		"report_id", reportID,
		"attempts", attempts,
		"error", errText)
	d.finish(reportID, p.SessionID, domain.ReportFailed, events.TypeReportFailed, metrics.OutcomeFailed, attempts, errText)
}

// sleep waits for delay and reports false if the dispatcher was canceled.
func (d *Dispatcher) sleep(delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Dispatcher) recordPending(reportID string, p Payload) {
	if d.ledger == nil {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		d.logger.Error("Failed to encode report for ledger", "report_id", reportID, "error", err)
		return
	}
	now := time.Now()
	rec := &domain.ReportRecord{
		ReportID:  reportID,
		SessionID: p.SessionID,
		Payload:   body,
		Status:    domain.ReportPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := d.ledger.CreateReport(ctx, rec); err != nil {
		d.logger.Error("Failed to record report", "report_id", reportID, "session_id", p.SessionID, "error", err)
	}
}

func (d *Dispatcher) finish(reportID, sessionID, status, eventType, outcome string, attempts int, errText string) {
	metrics.RecordReport(outcome)

	ev := events.New(eventType, sessionID, map[string]any{"attempts": attempts, "error": errText})
	ev.ReportID = reportID
	d.publisher.Publish(ev)

	if d.ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := d.ledger.UpdateReportStatus(ctx, reportID, status, attempts, errText); err != nil {
		d.logger.Error("Failed to update report status", "report_id", reportID, "status", status, "error", err)
	}
}
