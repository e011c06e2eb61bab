package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
)

const EventCompleted = "export.completed"

type Event struct {
	Type        string     `json:"type"`
	Refcat      string     `json:"refcat"`
	Sink        string     `json:"sink"`
	ResolvedSRS string     `json:"resolved_srs,omitempty"`
	Artifacts   []Artifact `json:"artifacts"`
	TS          time.Time  `json:"ts"`
}

// Notifier announces completed exports. Notify must not block the export.
type Notifier interface {
	Notify(ev Event)
	Close() error
}

type nopNotifier struct{}

func NopNotifier() Notifier { return nopNotifier{} }

func (nopNotifier) Notify(Event) {}
func (nopNotifier) Close() error { return nil }

// KafkaNotifier publishes events as JSON through an async producer. Events
// are dropped when the queue is full.
type KafkaNotifier struct {
	topic    string
	events   chan Event
	prod     sarama.AsyncProducer
	logger   *slog.Logger
	stopped  chan struct{}
	errsDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaNotifier(brokers []string, topic string, queueSize int, logger *slog.Logger) (*KafkaNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("export: create async producer: %w", err)
	}
	return newKafkaNotifier(prod, topic, queueSize, logger), nil
}

func newKafkaNotifier(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *KafkaNotifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := &KafkaNotifier{
		topic:    topic,
		events:   make(chan Event, queueSize),
		prod:     prod,
		logger:   logger,
		stopped:  make(chan struct{}),
		errsDone: make(chan struct{}),
	}

	go func() {
		defer close(n.stopped)
		for ev := range n.events {
			b, err := json.Marshal(ev)
			if err != nil {
				n.logger.Error("export event marshal failed", "err", err)
				continue
			}
			n.prod.Input() <- &sarama.ProducerMessage{
				Topic: n.topic,
				Key:   sarama.StringEncoder(ev.Refcat),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(n.errsDone)
		for err := range n.prod.Errors() {
			if err != nil {
				observability.IncExportNotification("error")
				n.logger.Warn("export event publish failed", "topic", n.topic, "err", err)
			}
		}
	}()

	return n
}

func (n *KafkaNotifier) Notify(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		observability.IncExportNotification("dropped")
		return
	}
	select {
	case n.events <- ev:
		observability.IncExportNotification("queued")
	default:
		observability.IncExportNotification("dropped")
	}
}

// Close drains queued events and closes the producer. Events sent after Close
// are dropped.
func (n *KafkaNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.events)
	n.mu.Unlock()
	<-n.stopped

	if err := n.prod.Close(); err != nil {
		return fmt.Errorf("export: close producer: %w", err)
	}
	<-n.errsDone
	return nil
}
