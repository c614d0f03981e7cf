package mq

import (
	"context"
)

// Publisher 账本事件投递
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}
