package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Event types published by the service.
const (
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
	EventQuizCompleted   = "quiz.completed"
)

// Broker topics.
const (
	TopicImports = "quiz-service.imports"
	TopicQuizzes = "quiz-service.quizzes"
)

// Event is the envelope every published message carries.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with service identity filled in.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "quiz-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ImportCompletedEvent is emitted after a file has been committed.
type ImportCompletedEvent struct {
	FileName          string `json:"file_name"`
	QuestionsImported int    `json:"questions_imported"`
	QuestionsUpdated  int    `json:"questions_updated"`
	DurationMs        int64  `json:"duration_ms"`
}

// ImportFailedEvent is emitted when a file is rejected and rolled back.
type ImportFailedEvent struct {
	FileName   string `json:"file_name"`
	ErrorCount int    `json:"error_count"`
	FirstError string `json:"first_error"`
}

// QuizCompletedEvent is emitted when a session is scored.
type QuizCompletedEvent struct {
	SessionID uint    `json:"session_id"`
	UserID    string  `json:"user_id"`
	ExamID    uint    `json:"exam_id"`
	Score     float64 `json:"score"`
	Passed    bool    `json:"passed"`
}

// EventPublisher abstracts the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close() error
}

// KafkaEventPublisher publishes events to Kafka through Watermill.
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// KafkaConfig holds broker connection settings.
type KafkaConfig struct {
	Brokers []string
}

func NewKafkaEventPublisher(config KafkaConfig, logger *slog.Logger) (*KafkaEventPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   config.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)

	if err := p.publisher.Publish(topic, msg); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event",
			"error", err,
			"topic", topic,
			"event_type", event.Type)
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Event published",
		"topic", topic,
		"event_type", event.Type,
		"event_id", event.ID)

	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}
