package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBackendRequired = errors.New("backend is required")
)

// subscriberBuffer is how many unread turns a subscriber may lag behind.
const subscriberBuffer = 32

// Backend answers a single query. Implementations must not fail: errors are
// reported as an apology result.
type Backend interface {
	Query(ctx context.Context, text string) chat.QueryResult
}

// Service owns the per-session turn logs and drives each request/reply cycle.
//
// Submissions are not serialized: a second message may be sent while the
// first reply is pending, and replies are appended in completion order. Each
// bot turn's ReplyTo names the user turn it answers.
type Service struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.RWMutex
	sessions    map[string]chat.Session
	turns       map[string][]chat.Turn
	subscribers map[string]map[int]chan chat.Turn
	nextSubID   int

	inflight sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService bootstraps the in-memory chat service around b.
func NewService(b Backend, opts ...Option) (*Service, error) {
	if b == nil {
		return nil, ErrBackendRequired
	}

	s := &Service{
		backend:     b,
		logger:      zap.NewNop(),
		now:         time.Now,
		sessions:    make(map[string]chat.Session),
		turns:       make(map[string][]chat.Turn),
		subscribers: make(map[string]map[int]chan chat.Turn),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "chat"))
	return s, nil
}

// CreateSession provisions an empty session for the given host context.
func (s *Service) CreateSession(_ context.Context, host chat.HostContext) (chat.Session, error) {
	session := chat.Session{
		ID:          uuid.NewString(),
		HostContext: host,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.turns[session.ID] = make([]chat.Turn, 0, 16)
	s.mu.Unlock()

	s.logger.Info("session created",
		zap.String("session", session.ID),
		zap.String("channel", host.ChannelID))
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Transcript returns the session's turns in display order.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Submit appends a user turn for text and asks the backend for a reply in the
// background. Blank input is ignored: it returns false and appends nothing.
// The reply, or an apology if anything goes wrong, is appended later.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (chat.Turn, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Turn{}, false, nil
	}

	userTurn := chat.Turn{
		SessionID: sessionID,
		Text:      text,
	}
	userTurn, err := s.appendTurn(sessionID, userTurn)
	if err != nil {
		return chat.Turn{}, false, err
	}

	s.inflight.Add(1)
	go s.reply(context.WithoutCancel(ctx), userTurn)

	return userTurn, true, nil
}

// Drain blocks until every pending reply has been appended or ctx ends.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) reply(ctx context.Context, userTurn chat.Turn) {
	defer s.inflight.Done()

	result := s.query(ctx, userTurn)
	botTurn := chat.Turn{
		SessionID: userTurn.SessionID,
		Text:      result.Text,
		IsBot:     true,
		Component: result.Component,
		ReplyTo:   userTurn.ID,
	}
	if _, err := s.appendTurn(userTurn.SessionID, botTurn); err != nil {
		s.logger.Warn("dropping reply", zap.String("session", userTurn.SessionID), zap.Error(err))
	}
}

func (s *Service) query(ctx context.Context, userTurn chat.Turn) (result chat.QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("backend panicked",
				zap.String("session", userTurn.SessionID),
				zap.Any("panic", r))
			result = backend.Apology()
		}
	}()

	started := s.now()
	result = s.backend.Query(ctx, userTurn.Text)
	if result.Text == "" && result.Component == nil {
		result = backend.Apology()
	}

	fields := []zap.Field{
		zap.String("session", userTurn.SessionID),
		zap.String("turn", userTurn.ID),
		zap.Duration("elapsed", s.now().Sub(started)),
	}
	if result.Component != nil {
		fields = append(fields, zap.String("component", string(result.Component.Type)))
	}
	s.logger.Debug("reply received", fields...)
	return result
}

func (s *Service) appendTurn(sessionID string, turn chat.Turn) (chat.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return chat.Turn{}, ErrSessionNotFound
	}

	turn.ID = newTurnID()
	turn.SessionID = sessionID
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}

	s.turns[sessionID] = append(s.turns[sessionID], turn)
	s.publishLocked(sessionID, turn)
	return turn, nil
}

func newTurnID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
