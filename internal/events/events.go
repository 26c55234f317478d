package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// TypeModelPromoted is the event type header value.
const TypeModelPromoted = "model.promoted"

// ModelPromoted announces a new production model.
type ModelPromoted struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id"`
	VersionID  string    `json:"version_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	ModelKey   string    `json:"model_key"`
	VersionKey string    `json:"version_key"`
	Score      float64   `json:"score"`
	BestScore  *float64  `json:"best_score"`
	Delta      float64   `json:"delta"`
	PromotedAt time.Time `json:"promoted_at"`
}

// Publisher announces promotions.
type Publisher interface {
	PublishPromoted(ctx context.Context, e ModelPromoted) error
	Close() error
}

// #region kafka
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes promotion events to one topic, keyed by version.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafkago.RequireAll,
		},
		topic: topic,
	}
}

func (p *KafkaPublisher) PublishPromoted(ctx context.Context, e ModelPromoted) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Message encodes e as a kafka message. Missing EventID and PromotedAt
// are filled in.
func Message(e ModelPromoted) (kafkago.Message, error) {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.PromotedAt.IsZero() {
		e.PromotedAt = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshal %s: %w", TypeModelPromoted, err)
	}
	return kafkago.Message{
		Key:   []byte(e.VersionID),
		Value: body,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(TypeModelPromoted)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: e.PromotedAt,
	}, nil
}

// #endregion kafka

// #region nop
// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishPromoted(context.Context, ModelPromoted) error { return nil }
func (Nop) Close() error                                         { return nil }

// #endregion nop
