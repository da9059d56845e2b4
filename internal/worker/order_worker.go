package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/bakery-api/internal/model"
)

const (
	orderQueueName = "orders.events"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.events.dlq"
	idempotencyTTL = 24 * time.Hour
)

// SetupRabbitMQ declares the event queue and its dead-letter exchange/queue.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

// Broadcaster fans an order event out to live listeners.
type Broadcaster interface {
	Broadcast(event model.OrderEvent) error
}

// IdempotencyStore remembers which deliveries were already handled.
type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type redisIdempotency struct {
	client *redis.Client
}

func NewRedisIdempotency(client *redis.Client) IdempotencyStore {
	return &redisIdempotency{client: client}
}

func (r *redisIdempotency) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *redisIdempotency) Mark(ctx context.Context, key string) error {
	return r.client.Set(ctx, key, "1", idempotencyTTL).Err()
}

// OrderWorker consumes order events and forwards them to the admin feed.
type OrderWorker struct {
	channel     *amqp.Channel
	broadcaster Broadcaster
	seen        IdempotencyStore
	log         *slog.Logger
	done        chan struct{}
}

func NewOrderWorker(ch *amqp.Channel, broadcaster Broadcaster, seen IdempotencyStore, log *slog.Logger) *OrderWorker {
	return &OrderWorker{
		channel:     ch,
		broadcaster: broadcaster,
		seen:        seen,
		log:         log,
		done:        make(chan struct{}),
	}
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event model.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		w.log.Error("unmarshal order event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", event.OrderID, "type", event.Type, "status", event.Status)

	key := idempotencyKey(event)
	seen, err := w.seen.Seen(ctx, key)
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if seen {
		log.Info("order event already delivered, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.broadcaster.Broadcast(event); err != nil {
		log.Error("broadcast order event", "error", err)
		_ = msg.Nack(false, false) // dead-lettered
		return
	}

	if err := w.seen.Mark(ctx, key); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order event delivered")
}

func idempotencyKey(event model.OrderEvent) string {
	return "order_event:" + event.OrderID.String() + ":" + event.Type + ":" + string(event.Status)
}

// Publisher writes order events to the queue consumed by OrderWorker.
type Publisher struct {
	channel *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{channel: ch}
}

func (p *Publisher) Publish(ctx context.Context, event model.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.channel.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.At,
		Type:         event.Type,
	})
}
