// Package notify доставляет уведомления о новых сообщениях.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// DefaultChannelPrefix префикс канала уведомлений пользователя
const DefaultChannelPrefix = "notifications:user:"

// ErrPublish возвращается, когда уведомление не удалось опубликовать
var ErrPublish = errors.New("notify: failed to publish notification")

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
}

// Publisher часть клиента Redis, нужная для публикации
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Log пишет уведомления в лог (локальный запуск без Redis)
type Log struct {
	logger Logger
}

// NewLog создает уведомитель, пишущий в лог
func NewLog(logger Logger) *Log {
	return &Log{logger: logger}
}

func (n *Log) Notify(_ context.Context, notification domain.Notification) error {
	n.logger.Info("Notify: user=%s conversation=%s message=%s title=%q",
		notification.UserID, notification.ConversationID, notification.MessageID, notification.Title)
	return nil
}

// Redis публикует уведомления в канал пользователя через Redis pub/sub
type Redis struct {
	publisher Publisher
	prefix    string
}

// NewRedis создает уведомитель поверх Redis pub/sub
func NewRedis(publisher Publisher, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Redis{publisher: publisher, prefix: prefix}
}

// Channel возвращает канал уведомлений пользователя
func (n *Redis) Channel(userID string) string {
	return n.prefix + userID
}

func (n *Redis) Notify(ctx context.Context, notification domain.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPublish, err)
	}

	if err := n.publisher.Publish(ctx, n.Channel(notification.UserID), payload).Err(); err != nil {
		return fmt.Errorf("%w: user=%s: %v", ErrPublish, notification.UserID, err)
	}
	return nil
}
