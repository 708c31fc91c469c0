package chat

import (
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

// Subscribe streams every turn appended to the session from now on, in log
// order. Call cancel to stop; the channel is closed afterwards. A subscriber
// that falls subscriberBuffer turns behind is evicted: its channel is closed
// without cancel being called, and it must subscribe again and reload the
// transcript to catch up.
func (s *Service) Subscribe(sessionID string) (<-chan chat.Turn, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, nil, ErrSessionNotFound
	}

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan chat.Turn, subscriberBuffer)
	subs, ok := s.subscribers[sessionID]
	if !ok {
		subs = make(map[int]chan chat.Turn)
		s.subscribers[sessionID] = subs
	}
	subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if current, ok := s.subscribers[sessionID][id]; ok {
			delete(s.subscribers[sessionID], id)
			if len(s.subscribers[sessionID]) == 0 {
				delete(s.subscribers, sessionID)
			}
			close(current)
		}
	}
	return ch, cancel, nil
}

// publishLocked fans turn out to subscribers. Callers hold s.mu. A subscriber
// whose buffer is full is evicted instead of stalling the log.
func (s *Service) publishLocked(sessionID string, turn chat.Turn) {
	subs := s.subscribers[sessionID]
	for id, ch := range subs {
		select {
		case ch <- turn:
		default:
			delete(subs, id)
			close(ch)
			s.logger.Warn("subscriber lagging, evicted",
				zap.String("session", sessionID),
				zap.Int("subscriber", id),
				zap.String("turn", turn.ID))
		}
	}
	if len(subs) == 0 {
		delete(s.subscribers, sessionID)
	}
}
