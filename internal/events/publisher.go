// Package events 把已入账的转化发布给下游消费方
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"postback-platform/internal/config"
	"postback-platform/internal/model"

	"github.com/segmentio/kafka-go"
)

// ConversionEvent 每笔入账转化对应的消息体
type ConversionEvent struct {
	ConversionID  string    `json:"conversion_id"`
	ClickID       string    `json:"click_id"`
	OfferID       string    `json:"offer_id"`
	UserID        string    `json:"user_id"`
	PlacementID   string    `json:"placement_id"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Base          int       `json:"base"`
	Bonus         int       `json:"bonus"`
	Total         int       `json:"total"`
	Currency      string    `json:"currency"`
	FraudStatus   string    `json:"fraud_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewConversionEvent 从转化记录中复制可发布的字段
func NewConversionEvent(c model.Conversion) ConversionEvent {
	return ConversionEvent{
		ConversionID:  c.ConversionID,
		ClickID:       c.ClickID,
		OfferID:       c.OfferID,
		UserID:        c.UserID,
		PlacementID:   c.PlacementID,
		TransactionID: c.TransactionID,
		Status:        c.Status,
		Base:          c.Base,
		Bonus:         c.Bonus,
		Total:         c.Total,
		Currency:      c.Currency,
		FraudStatus:   c.FraudStatus,
		CreatedAt:     c.CreatedAt,
	}
}

type Publisher interface {
	PublishConversion(ctx context.Context, event ConversionEvent) error
	Close() error
}

// MessageWriter *kafka.Writer 中发布器用到的部分
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 以 user id 为 key 写入 JSON 事件
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// New 返回 Kafka 发布器，未配置 broker 时返回空实现
func New(cfg config.Kafka) Publisher {
	if len(cfg.Brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	})
}

func (p *KafkaPublisher) PublishConversion(ctx context.Context, event ConversionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化转化事件失败: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("conversion.credited")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("写入转化事件失败: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) PublishConversion(context.Context, ConversionEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
