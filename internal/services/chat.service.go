package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
)

var ErrInvalidChatMessage = errors.New("chat message requires a username and text")

type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Channel   string    `json:"channel"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatResult struct {
	Duplicate bool       `json:"duplicate"`
	Detected  bool       `json:"detected"`
	Submitted bool       `json:"submitted"`
	Play      *PlayEvent `json:"play,omitempty"`
}

// ChatService is the ingestion point for relayed chat lines. It keeps a
// short history for the dashboard and forwards announcements to the tracker.
type ChatService struct {
	channel  string
	limit    int
	messages []ChatMessage
	mu       sync.RWMutex
	detector *PlayEventDetector
	tracker  PlaySubmitter
	dedupe   Deduplicator
	eventBus events.Publisher
	log      logger.Logger
}

func NewChatService(
	channel string,
	detector *PlayEventDetector,
	tracker PlaySubmitter,
	dedupe Deduplicator,
	eventBus events.Publisher,
) *ChatService {
	return &ChatService{
		channel:  channel,
		limit:    ChatHistoryLimit,
		messages: make([]ChatMessage, 0, ChatHistoryLimit),
		detector: detector,
		tracker:  tracker,
		dedupe:   dedupe,
		eventBus: eventBus,
		log:      logger.New("chatService"),
	}
}

func (s *ChatService) HandleMessage(ctx context.Context, msg ChatMessage) (*ChatResult, error) {
	log := s.log.Function("HandleMessage").TraceFromContext(ctx)

	msg.ID = strings.TrimSpace(msg.ID)
	msg.Username = strings.TrimSpace(msg.Username)
	if msg.Username == "" || strings.TrimSpace(msg.Message) == "" {
		return nil, ErrInvalidChatMessage
	}
	if msg.Channel == "" {
		msg.Channel = s.channel
	}
	if now := time.Now().UTC(); msg.Timestamp.IsZero() || msg.Timestamp.After(now) {
		msg.Timestamp = now
	}

	if msg.ID != "" && s.dedupe != nil {
		first, err := s.dedupe.FirstSeen(ctx, msg.ID)
		if err != nil {
			log.Warn("Deduplication unavailable, processing message", "id", msg.ID, "error", err)
		} else if !first {
			log.Debug("Dropping redelivered message", "id", msg.ID)
			return &ChatResult{Duplicate: true}, nil
		}
	}

	s.store(msg)
	s.publish(msg)

	result := &ChatResult{}
	event, ok := s.detector.DetectFrom(msg.Username, msg.Message)
	if !ok {
		return result, nil
	}

	event.DetectedAt = msg.Timestamp
	result.Detected = true
	result.Play = &event
	if s.tracker != nil {
		result.Submitted = s.tracker.Submit(event)
	}
	if !result.Submitted {
		s.release(ctx, msg.ID, log)
	}

	log.Info("Detected play announcement", "title", event.Title, "submitted", result.Submitted)
	return result, nil
}

// release drops the delivery claim for a play the tracker did not accept, so
// the relay's redelivery is counted.
func (s *ChatService) release(ctx context.Context, id string, log logger.Logger) {
	if id == "" || s.dedupe == nil {
		return
	}
	if err := s.dedupe.Release(ctx, id); err != nil {
		log.Warn("Could not release message id, redelivery will be dropped", "id", id, "error", err)
	}
}

func (s *ChatService) store(msg ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) < s.limit {
		s.messages = append(s.messages, msg)
		return
	}
	copy(s.messages, s.messages[1:])
	s.messages[len(s.messages)-1] = msg
}

// Messages returns the retained history, oldest first.
func (s *ChatService) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]ChatMessage, len(s.messages))
	copy(messages, s.messages)
	return messages
}

func (s *ChatService) publish(msg ChatMessage) {
	if s.eventBus == nil {
		return
	}

	err := s.eventBus.Publish(events.BROADCAST_CHANNEL, events.Event{
		Type: events.CHAT_MESSAGE,
		Data: map[string]any{
			"id":        msg.ID,
			"channel":   msg.Channel,
			"username":  msg.Username,
			"message":   msg.Message,
			"timestamp": msg.Timestamp,
		},
	})
	if err != nil {
		s.log.Function("publish").Er("failed to publish chat message", err)
	}
}
