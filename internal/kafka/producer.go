package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
)

var ErrProducerClosed = errors.New("producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer hands messages to a background goroutine that writes them to one
// topic. Write failures are logged, never returned to the publisher.
type Producer struct {
	w     messageWriter
	topic string
	log   *logger.Logger

	mu      sync.RWMutex
	closed  bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *logger.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, topic, buf, log)
}

func newProducer(w messageWriter, topic string, buf int, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Nop()
	}
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:       w,
		topic:   topic,
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Topic() string { return p.topic }

// Start runs the write loop until Close drains the inbox.
func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.Error("kafka write failed", "topic", p.topic, "key", string(m.Key), "error", err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("kafka writer close", "topic", p.topic, "error", err)
		}
	}()
}

// Publish queues a message, blocking while the inbox is full.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits until queued ones are flushed.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.closeCh
}
