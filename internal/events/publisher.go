package events

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/devflowhq/devflow/backend/internal/config"
	"github.com/devflowhq/devflow/backend/internal/models"
)

// Publisher forwards interaction records to the recommendation pipeline over
// RabbitMQ. A nil Publisher is valid and drops events, so the service runs
// without a broker configured.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *slog.Logger
}

func New(cfg *config.Config) *Publisher {
	url := cfg.RabbitMQ.Url
	if url == "" {
		log.Println("rabbitmq url empty, interaction events disabled")
		return nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Failed to open RabbitMQ channel: %v", err)
	}

	qname := cfg.RabbitMQ.Queue
	if _, err := ch.QueueDeclare(qname, true, false, false, false, nil); err != nil {
		log.Fatalf("Failed to declare RabbitMQ queue: %v", err)
	}

	log.Println("✅ RabbitMQ initialized, queue:", qname)
	return &Publisher{conn: conn, channel: ch, queue: qname, log: slog.Default()}
}

// PublishInteraction serializes the record onto the queue. Publishing is
// fire-and-forget: a broker failure is logged and never fails the request
// that produced the interaction.
func (p *Publisher) PublishInteraction(ctx context.Context, in models.Interaction) {
	if p == nil {
		return
	}

	body, err := json.Marshal(in)
	if err != nil {
		p.log.Error("marshaling interaction event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.log.Error("publishing interaction event",
			"action", in.Action, "user_id", in.UserID, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		p.log.Error("closing rabbitmq channel", "error", err)
	}
	if err := p.conn.Close(); err != nil {
		p.log.Error("closing rabbitmq connection", "error", err)
	}
}
