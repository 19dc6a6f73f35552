// Package kafka publishes outbox messages with sarama.
package kafka

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
)

// Producer relays outbox messages to Kafka. Sends are synchronous so the
// worker only marks a record sent once every in-sync replica has it.
type Producer struct {
	broker sarama.SyncProducer
}

func producerConfig(base *sarama.Config, clientID string) *sarama.Config {
	cfg := base
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	if clientID != "" {
		cfg.ClientID = clientID
	}
	// idempotent writes need acks=all, one in-flight request and >= 2.8 brokers
	cfg.Version = sarama.V2_8_0_0
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	return cfg
}

func NewProducer(brokers []string, clientID string, base *sarama.Config) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig(base, clientID))
	if err != nil {
		return nil, fmt.Errorf("kafka producer %v: %w", brokers, err)
	}
	return NewProducerWith(sp), nil
}

// NewProducerWith wraps an existing sync producer.
func NewProducerWith(sp sarama.SyncProducer) *Producer {
	return &Producer{broker: sp}
}

// message keys by aggregate so one booking's events stay on one partition.
// Headers are sorted for stable output.
func message(topic, key string, payload []byte, headers map[string]string) *sarama.ProducerMessage {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	for _, name := range names {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(name), Value: []byte(headers[name])})
	}
	return msg
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.broker.SendMessage(message(topic, key, payload, headers))
	return err
}

func (p *Producer) Close() error {
	if p.broker == nil {
		return nil
	}
	return p.broker.Close()
}
