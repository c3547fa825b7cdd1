package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"canalyzer/internal/mailer"

	amqp "github.com/rabbitmq/amqp091-go"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher hands verification emails to a mail worker through a durable
// queue. A send succeeds once the broker accepts the message.
type Publisher struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	timeout time.Duration
}

func New(urlForConn, queueName string, timeout time.Duration) (*Publisher, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   q.Name,
		timeout: timeout,
	}, nil
}

func newWithChannel(ch channel, queueName string, timeout time.Duration) *Publisher {
	return &Publisher{channel: ch, queue: queueName, timeout: timeout}
}

func (p *Publisher) SendVerificationEmail(ctx context.Context, email, link string) error {
	const op = "rabbitmq.SendVerificationEmail"

	if p == nil || p.channel == nil {
		return fmt.Errorf("%s: %w", op, mailer.ErrNotConfigured)
	}

	body, err := json.Marshal(mailer.VerificationMessage(email, link))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *Publisher) Close() {
	_ = p.channel.Close()
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
