package kafka

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
)

// Handler returns nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r          messageReader
	workers    int
	log        *logger.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewConsumer joins group on one or more topics.
func NewConsumer(brokers []string, group string, topics []string, workers int, log *logger.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	}
	if len(topics) == 1 {
		cfg.Topic = topics[0]
	} else {
		cfg.GroupTopics = topics
	}
	return newConsumer(kafka.NewReader(cfg), workers, log)
}

func newConsumer(r messageReader, workers int, log *logger.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{r: r, workers: workers, log: log, backoff: 200 * time.Millisecond, maxBackoff: 5 * time.Second}
}

// Start dispatches messages to a worker pool until ctx is cancelled. Every
// partition is pinned to one worker, so its messages are handled and
// committed in offset order. A failing message is retried with backoff and
// blocks its partition until it succeeds; nothing is committed past it.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.handle(ctx, id, h, m) {
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Error("commit failed", "worker", id, "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
				}
			}
		}(i, queues[i])
	}
	defer wg.Wait()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[c.route(m)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) route(m kafka.Message) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(m.Topic))
	return int((h.Sum32() + uint32(m.Partition)) % uint32(c.workers))
}

// handle runs h until it succeeds. It reports false when ctx ends first,
// in which case the message must not be committed.
func (c *Consumer) handle(ctx context.Context, id int, h Handler, m kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ctx.Err() == nil; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		c.log.Error("handler failed", "worker", id, "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.maxBackoff {
			wait = c.maxBackoff
		}
	}
	return false
}
