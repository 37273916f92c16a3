package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// KafkaPublisher writes domain events to Kafka topics.
type KafkaPublisher struct {
	orders *kafka.Writer
	stock  *kafka.Writer
}

// NewKafkaPublisher builds a publisher writing to the order and stock topics.
func NewKafkaPublisher(brokers []string, orderTopic, stockTopic string) *KafkaPublisher {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		}
	}
	return &KafkaPublisher{
		orders: newWriter(orderTopic),
		stock:  newWriter(stockTopic),
	}
}

func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	return p.write(ctx, p.orders, event.OrderID, event)
}

func (p *KafkaPublisher) PublishStockEvent(ctx context.Context, event StockEvent) error {
	return p.write(ctx, p.stock, event.ProductID, event)
}

func (p *KafkaPublisher) write(ctx context.Context, w *kafka.Writer, key string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes and closes the underlying writers.
func (p *KafkaPublisher) Close() error {
	if err := p.orders.Close(); err != nil {
		_ = p.stock.Close()
		return err
	}
	return p.stock.Close()
}
