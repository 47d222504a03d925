package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/domain"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes state changes as JSON, keyed by event ID so the
// changes of one event stay ordered within a partition.
type KafkaNotifier struct {
	writer      messageWriter
	maxAttempts int
	backoff     time.Duration
}

func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}

	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &KafkaNotifier{writer: w, maxAttempts: cfg.MaxAttempts, backoff: 100 * time.Millisecond}, nil
}

type stateChange struct {
	ID         string    `json:"id"`
	EntityKind string    `json:"tipo_entidad"`
	EntityID   string    `json:"entidad_id"`
	EventID    string    `json:"evento_id"`
	FromState  string    `json:"estado_anterior"`
	ToState    string    `json:"estado_nuevo"`
	Actor      string    `json:"actor"`
	Note       string    `json:"nota,omitempty"`
	Timestamp  time.Time `json:"fecha"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, e domain.HistoryEntry) error {
	value, err := json.Marshal(stateChange{
		ID:         e.ID.String(),
		EntityKind: string(e.EntityKind),
		EntityID:   e.EntityID.String(),
		EventID:    e.EventID.String(),
		FromState:  e.FromState,
		ToState:    e.ToState,
		Actor:      e.Actor,
		Note:       e.Note,
		Timestamp:  e.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("encode state change: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.EventID.String()),
		Value: value,
		Time:  e.Timestamp,
	}

	var lastErr error
	backoff := n.backoff

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if lastErr = n.writer.WriteMessages(ctx, msg); lastErr == nil {
			return nil
		}

		if attempt == n.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < 2*time.Second {
			backoff *= 2
		}
	}

	return fmt.Errorf("publish state change after %d attempts: %w", n.maxAttempts, lastErr)
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
