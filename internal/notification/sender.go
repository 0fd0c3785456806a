package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"nightbite-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliveryExchange is the fanout exchange push workers consume from.
const DeliveryExchange = "push_deliveries"

type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// Publisher is the part of *amqp.Channel the sender needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPSender struct {
	pub      Publisher
	exchange string
}

func NewAMQPSender(pub Publisher, exchange string) *AMQPSender {
	if exchange == "" {
		exchange = DeliveryExchange
	}
	return &AMQPSender{pub: pub, exchange: exchange}
}

func (s *AMQPSender) Send(ctx context.Context, d Delivery) error {
	if !validEndpoint(d.Endpoint) {
		return fmt.Errorf("%w: %q", ErrSubscriptionGone, d.Endpoint)
	}

	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}

	err = s.pub.PublishWithContext(ctx, s.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    d.NotificationID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

func validEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}

// Connection owns the broker connection and the publishing channel.
type Connection struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// DialAMQP connects and declares the durable delivery exchange.
func DialAMQP(rawURL string) (*Connection, error) {
	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		DeliveryExchange, // name
		"fanout",         // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Connection{Conn: conn, Channel: ch}, nil
}

func (c *Connection) Close() {
	if c.Channel != nil {
		c.Channel.Close()
	}
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// LogSender writes deliveries to the log. Used when no broker is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, d Delivery) error {
	logger.FromCtx(ctx).Info("push delivery",
		zap.String("notification_id", d.NotificationID),
		zap.Uint("user_id", d.UserID),
		zap.String("title", d.Title),
	)
	return nil
}
