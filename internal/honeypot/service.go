// Package honeypot runs the per-message control flow: score and extract,
// accumulate into the session, gate and latch the terminal report, then
// reply in persona.
package honeypot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/honeypot/internal/agent"
	"github.com/ashureev/honeypot/internal/detect"
	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/events"
	"github.com/ashureev/honeypot/internal/metrics"
	"github.com/ashureev/honeypot/internal/report"
	"github.com/ashureev/honeypot/internal/session"
)

const statusSuccess = "success"

// Replier produces the persona's next message.
type Replier interface {
	Reply(ctx context.Context, d agent.Dialogue) agent.Reply
}

// Reporter schedules a terminal report and returns its ID, or "" when
// transmission is disabled.
type Reporter interface {
	Dispatch(p report.Payload) string
}

// Options configures a Service.
type Options struct {
	Engine    *detect.Engine
	Sessions  *session.Store
	Replier   Replier
	Reporter  Reporter
	Publisher events.Publisher
	MinTurns  int
	MaxTurns  int
	Logger    *slog.Logger
	Now       func() time.Time
}

// Service handles inbound honeypot messages.
type Service struct {
	engine    *detect.Engine
	sessions  *session.Store
	replier   Replier
	reporter  Reporter
	publisher events.Publisher
	minTurns  int
	maxTurns  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. Engine, Sessions, Replier and Reporter are
// required.
func NewService(opts Options) *Service {
	if opts.Publisher == nil {
		opts.Publisher = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		engine:    opts.Engine,
		sessions:  opts.Sessions,
		replier:   opts.Replier,
		reporter:  opts.Reporter,
		publisher: opts.Publisher,
		minTurns:  opts.MinTurns,
		maxTurns:  opts.MaxTurns,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// turn is what one message changed, captured under the session lock.
type turn struct {
	state   domain.SessionState
	payload *report.Payload
}

// Process handles one inbound message for req.SessionID.
func (s *Service) Process(ctx context.Context, req domain.HoneypotRequest) (domain.HoneypotResponse, error) {
	text := req.Message.Text
	score := s.engine.Score(text, req.HistoryTexts())
	intel := s.intelligence(req)
	tactics := s.engine.Tactics(text)

	t, err := s.apply(req.SessionID, score, intel, tactics)
	if err != nil {
		return domain.HoneypotResponse{}, fmt.Errorf("update session %s: %w", req.SessionID, err)
	}
	metrics.RecordMessage(score.Flagged, score.Confidence)
	metrics.SetSessions(s.sessions.Len())

	resp := domain.HoneypotResponse{
		Status:       statusSuccess,
		ScamDetected: t.state.Flagged,
		EngagementMetrics: domain.EngagementMetrics{
			EngagementDurationSeconds: t.state.DurationSeconds(s.now()),
			TotalMessagesExchanged:    t.state.MessageCount,
		},
		ExtractedIntelligence: t.state.Intelligence,
		AgentNotes:            t.state.NotesSummary(),
	}

	if t.state.Flagged {
		reply := s.replier.Reply(ctx, agent.Dialogue{
			SessionID: req.SessionID,
			Current:   req.Message,
			History:   req.ConversationHistory,
			Metadata:  req.Metadata,
		})
		metrics.RecordReply(reply.Source)
		resp.AgentResponse = &reply.Text
	}

	reportID := ""
	if t.payload != nil {
		reportID = s.reporter.Dispatch(*t.payload)
	}

	s.publisher.Publish(events.New(events.TypeSessionUpdated, req.SessionID, NewSessionView(t.state)))
	s.logger.Info("Message processed",
		"session_id", req.SessionID,
		"flagged", score.Flagged,
		"confidence", score.Confidence,
		"session_flagged", t.state.Flagged,
		"messages", t.state.MessageCount,
		"intelligence", t.state.Intelligence.Total(),
		"report_triggered", t.payload != nil,
		"report_id", reportID)
	return resp, nil
}

// apply folds one turn into the session. Gate evaluation and the report
// latch happen in the same critical section, so concurrent requests for a
// key trigger at most one report.
func (s *Service) apply(key string, score domain.ScoreResult, intel domain.IntelligenceRecord, tactics []string) (turn, error) {
	var t turn
	err := s.sessions.Update(key, func(st *domain.SessionState) error {
		st.RecordMessage(s.now())
		if score.Flagged {
			st.UpgradeFlag(score.Confidence, score.Reasons)
		}
		if st.Flagged {
			st.AddNotes(tactics...)
		}
		st.MergeIntelligence(intel)

		if report.ShouldReport(st, s.minTurns, s.maxTurns) && st.MarkReportSent() {
			p := report.NewPayload(*st)
			t.payload = &p
		}
		t.state = st.Snapshot()
		return nil
	})
	return t, err
}

// intelligence extracts from the current message and from every scammer
// message in the supplied history.
func (s *Service) intelligence(req domain.HoneypotRequest) domain.IntelligenceRecord {
	rec := s.engine.Extract(req.Message.Text)
	for _, m := range req.ConversationHistory {
		if m.Sender == domain.SenderScammer {
			rec.Merge(s.engine.Extract(m.Text))
		}
	}
	return rec
}

// Analyze scores and extracts the current message without touching session
// state.
func (s *Service) Analyze(req domain.HoneypotRequest) domain.AnalysisResult {
	score := s.engine.Score(req.Message.Text, req.HistoryTexts())
	return domain.AnalysisResult{
		IsScam:                score.Flagged,
		Confidence:            score.Confidence,
		Reasons:               score.Reasons,
		ExtractedIntelligence: s.engine.Extract(req.Message.Text),
	}
}

// Session returns the current view of a session.
func (s *Service) Session(key string) (SessionView, error) {
	st, ok := s.sessions.Get(key)
	if !ok {
		return SessionView{}, fmt.Errorf("session %s: %w", key, session.ErrUnknownSession)
	}
	return NewSessionView(st), nil
}
