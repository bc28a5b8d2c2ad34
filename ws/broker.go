package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hrportal_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Области доставки
const (
	ScopeUser   = "user"
	ScopeAdmins = "admins"
	ScopeRoom   = "room"
	ScopeConn   = "conn"
)

// Target - кому доставить кадр; Exclude - соединение-отправитель
type Target struct {
	Scope   string `json:"scope"`
	Key     string `json:"key,omitempty"`
	Exclude string `json:"exclude,omitempty"`
}

// BrokerMessage - готовый кадр и адресат, одинаковый для всех инстансов
type BrokerMessage struct {
	Target Target          `json:"target"`
	Frame  json.RawMessage `json:"frame"`
}

// Broker раздает кадры всем инстансам, включая отправителя
type Broker interface {
	Publish(ctx context.Context, msg BrokerMessage) error
	// Subscribe блокируется до отмены ctx
	Subscribe(ctx context.Context, deliver func(BrokerMessage)) error
	Close() error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisBroker - один канал pub/sub; порядок сохраняется, т.к. публикация и
// чтение идут через одно соединение каждого инстанса
type RedisBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisBroker(ctx context.Context, cfg RedisConfig) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisBroker{client: client, channel: cfg.Channel}, nil
}

func NewRedisBrokerWithClient(client *redis.Client, channel string) *RedisBroker {
	return &RedisBroker{client: client, channel: channel}
}

func (b *RedisBroker) Publish(ctx context.Context, msg BrokerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, deliver func(BrokerMessage)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Ждем подтверждения подписки, иначе первые кадры могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var msg BrokerMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				logger.Warn("malformed broker message", "error", err.Error())
				continue
			}
			deliver(msg)
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
