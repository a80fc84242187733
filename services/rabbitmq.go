package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const notifyExchange = "notify_events"

// NotifyEvent - событие для push-коллаборатора. Ядро только пишет строку
// уведомления и публикует событие, транспорт доставки внешний.
type NotifyEvent struct {
	NotificationID int64     `json:"notification_id"`
	UserID         string    `json:"user_id"`
	ActorID        string    `json:"actor_id"`
	ContentID      int64     `json:"content_id"`
	Kind           string    `json:"kind"`
	CreatedAt      time.Time `json:"created_at"`
}

// Broker держит соединение с RabbitMQ и topic exchange уведомлений
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func ConnectBroker(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		notifyExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Printf("RabbitMQ initialized successfully with URL: %s", url)
	return &Broker{conn: conn, channel: channel}, nil
}

func (b *Broker) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

// PublishNotifyEvent публикует событие уведомления для конкретного получателя
func (b *Broker) PublishNotifyEvent(ctx context.Context, event NotifyEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	routingKey := fmt.Sprintf("user.%s", event.UserID)
	return b.channel.PublishWithContext(ctx,
		notifyExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// StartNotifyEventConsumer запускает воркер, который слушает события
// уведомлений и пушит их подключенным клиентам через WebSocket
func (b *Broker) StartNotifyEventConsumer(ctx context.Context, queueName string, ws *WSConnManager) error {
	q, err := b.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := b.channel.QueueBind(
		q.Name,
		"user.*",
		notifyExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := b.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event NotifyEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					log.Println("Failed to unmarshal notify event:", err)
					continue
				}
				pushData, _ := json.Marshal(struct {
					Event string `json:"event"`
					NotifyEvent
				}{Event: "notification", NotifyEvent: event})
				ws.Send(event.UserID, pushData)
			}
		}
	}()
	return nil
}
