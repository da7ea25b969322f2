// Package publisher fans refreshed snapshots out to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/nerkh/internal/models"
)

const flushTimeoutMs = 5000

type Publisher interface {
	Publish(ctx context.Context, snapshot models.Snapshot) error
	Close()
}

// Encode is the wire form of a snapshot: JSON keyed by source.
func Encode(topic string, snapshot models.Snapshot) (*kafka.Message, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(snapshot.Source),
		Value:          payload,
		Headers:        []kafka.Header{{Key: "snapshot_id", Value: []byte(snapshot.ID)}},
	}, nil
}

type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *logrus.Entry
}

func NewKafkaPublisher(broker, topic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	config := kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         "nerkh",
		"acks":              "all",
	}

	producer, err := kafka.NewProducer(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.WithField("component", "publisher"),
	}, nil
}

// Publish blocks until the broker acknowledges the message or ctx is done.
func (p *KafkaPublisher) Publish(ctx context.Context, snapshot models.Snapshot) error {
	msg, err := Encode(p.topic, snapshot)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, delivery); err != nil {
		return fmt.Errorf("produce snapshot %s: %w", snapshot.ID, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery of snapshot %s failed: %w", snapshot.ID, m.TopicPartition.Error)
		}
		p.logger.Debugf("Published %s snapshot %s to %s[%d]", snapshot.Source, snapshot.ID, p.topic, m.TopicPartition.Partition)
		return nil
	}
}

func (p *KafkaPublisher) Close() {
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		p.logger.Warnf("%d snapshot messages not delivered before close", remaining)
	}
	p.producer.Close()
}
